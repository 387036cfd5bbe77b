package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <entity> [field=value ...]",
		Short: "Query records of an entity type",
		Long: `Query records from the remote API.

Each field=value argument becomes an equality constraint; all constraints
are combined with AND. The identifier field addresses a single record.`,
		Example: `  leapconnect query Person
  leapconnect query Person id=42
  leapconnect query Person lastname=Lovelace -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], args[1:])
		},
	}
	return cmd
}

func runQuery(cmd *cobra.Command, entityType string, args []string) error {
	filter, err := parseFilter(args)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := cc.Dispatcher.Query(cmd.Context(), entityType, filter)
	if err != nil {
		return err
	}
	return renderRecords(cmd.OutOrStdout(), records, cc.Cfg.Output)
}

// parseFilter builds a conjunction of equality comparisons from key=value
// arguments. No arguments yields a nil filter.
func parseFilter(args []string) (core.Expression, error) {
	exprs := make([]core.Expression, 0, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid constraint %q, expected field=value", arg)
		}
		exprs = append(exprs, core.Eq(field, value))
	}
	return core.And(exprs...), nil
}
