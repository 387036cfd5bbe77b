package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapconnect/internal/mockapi"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
	"github.com/spf13/cobra"
)

// NewMockServerCommand creates the mock-server command.
func NewMockServerCommand() *cobra.Command {
	var (
		addr  string
		seed  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a local mock of the remote people API",
		Long: `Start an HTTP server that mimics the remote API's people endpoints.

Requests are authenticated with the configured username and password,
either as basic auth or as an HMAC signature. Records are kept in memory
and can be seeded from a YAML file, optionally reloaded on change.`,
		Example: `  leapconnect mock-server --seed people.yaml --watch
  leapconnect mock-server --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutConnection(cmd)
			p := cc.Cfg.Resolved

			if !cmd.Flags().Changed("addr") {
				addr = cc.Cfg.MockAddr
			}

			var signer *transport.Signer
			if keyID, secret := p.SigningKey(); secret != "" {
				var err error
				signer, err = transport.NewSigner(keyID, secret, p.HMACAlgo)
				if err != nil {
					return fmt.Errorf("invalid hmac settings: %w", err)
				}
			}

			srv, err := mockapi.New(mockapi.Config{
				Addr:     addr,
				Username: p.Username,
				Password: p.Password,
				Signer:   signer,
				SeedFile: seed,
				Watch:    watch,
				Logger:   cc.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mock API listening on http://%s\n", addr)
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from mock_addr)")
	cmd.Flags().StringVar(&seed, "seed", "", "YAML seed file with initial records")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the seed file when it changes")

	return cmd
}
