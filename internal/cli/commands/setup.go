package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapconnect/internal/cli/config"
	"github.com/leapstack-labs/leapconnect/internal/state"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/dispatch"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg        *config.Config
	Logger     *slog.Logger
	Dispatcher *dispatch.Dispatcher

	// Store is the request journal; nil when journaling is disabled.
	Store *state.SQLiteStore
}

// NewCommandContext creates a CommandContext with a connected dispatcher.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	signer, err := newSigner(cfg.Resolved)
	if err != nil {
		return nil, nil, err
	}

	dcfg := dispatch.Config{
		Transport: transport.New(transport.Config{
			Client: &http.Client{Timeout: cfg.Timeout},
			Signer: signer,
			Logger: logger,
		}),
		Logger: logger,
	}

	var store *state.SQLiteStore
	if cfg.Journal {
		store, err = openStore(cfg.StatePath, logger)
		if err != nil {
			return nil, nil, err
		}
		dcfg.Journal = store
	}

	d := dispatch.New(dcfg)
	if err := d.Connect(cmd.Context(), cfg.Resolved.ConnectionConfig()); err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		d.Disconnect()
		if store != nil {
			_ = store.Close()
		}
	}

	return &CommandContext{
		Cfg:        cfg,
		Logger:     logger,
		Dispatcher: d,
		Store:      store,
	}, cleanup, nil
}

// NewCommandContextWithoutConnection creates a CommandContext without a
// dispatcher. Useful for commands that don't talk to the remote API.
func NewCommandContextWithoutConnection(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// newSigner returns the HMAC signer for a profile, or nil when the profile
// uses basic auth or has no secret.
func newSigner(p config.ConnectionProfile) (*transport.Signer, error) {
	if core.AuthMode(p.AuthMode) == core.AuthModeDisabled {
		return nil, nil
	}
	keyID, secret := p.SigningKey()
	if secret == "" {
		return nil, nil
	}
	signer, err := transport.NewSigner(keyID, secret, p.HMACAlgo)
	if err != nil {
		return nil, fmt.Errorf("invalid hmac settings: %w", err)
	}
	return signer, nil
}

// openStore opens and migrates the journal database.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return store, nil
}
