package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/leapstack-labs/leapconnect/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit      int
		entityType string
		pruneAge   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the request journal",
		Long: `Show recent requests recorded in the state database, newest first.
With --prune-older-than, delete entries older than the given age instead.`,
		Example: `  leapconnect history
  leapconnect history --entity Person --limit 10
  leapconnect history --prune-older-than 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutConnection(cmd)

			store, err := openStore(cc.Cfg.StatePath, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if pruneAge > 0 {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-pruneAge))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
				return nil
			}

			entries, err := store.ListEntries(cmd.Context(), state.ListOptions{
				EntityType: entityType,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return renderHistory(cmd.OutOrStdout(), entries, cc.Cfg.Output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries to show")
	cmd.Flags().StringVar(&entityType, "entity", "", "Only show entries for this entity type")
	cmd.Flags().DurationVar(&pruneAge, "prune-older-than", 0, "Delete entries older than this age")

	return cmd
}

func renderHistory(w io.Writer, entries []state.Entry, format string) error {
	cols := []string{"started", "entity", "operation", "method", "status", "duration", "error", "url"}
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		row := map[string]any{
			"started":   e.StartedAt.Local().Format(time.DateTime),
			"entity":    e.EntityType,
			"operation": e.Operation,
			"method":    e.Method,
			"status":    e.Status,
			"duration":  e.Duration.Round(time.Millisecond).String(),
			"error":     e.Error,
			"url":       e.URL,
		}
		if e.Status == 0 {
			row["status"] = nil
		}
		rows = append(rows, row)
	}
	return renderRows(w, cols, rows, format)
}
