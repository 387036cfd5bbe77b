package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var (
		file        string
		assignments []string
	)

	cmd := &cobra.Command{
		Use:   "create <entity>",
		Short: "Create records of an entity type",
		Long: `Create one or more records on the remote API.

Records come from a YAML file (a single mapping or a list of mappings) or
from --set field=value assignments describing one record. Dotted keys
address nested objects. Records from a file are sent concurrently, bounded
by the concurrency setting.`,
		Example: `  leapconnect create Person --set firstname=Ada --set lastname=Lovelace
  leapconnect create Person --set folder.id=7 --set email=ada@example.com
  leapconnect create Person -f people.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args[0], file, assignments)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the records to create")
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "Field assignment (field=value), repeatable")
	cmd.MarkFlagsMutuallyExclusive("file", "set")

	return cmd
}

type createResult struct {
	Index    int
	Location string
	Err      error
}

func runCreate(cmd *cobra.Command, entityType, file string, assignments []string) error {
	var inputs []map[string]any
	switch {
	case file != "":
		var err error
		inputs, err = loadRecordsFile(file)
		if err != nil {
			return err
		}
	case len(assignments) > 0:
		m, err := parseAssignments(assignments)
		if err != nil {
			return err
		}
		inputs = []map[string]any{m}
	default:
		return fmt.Errorf("nothing to create: use --file or --set")
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	def, err := cc.Dispatcher.Registry().Lookup(entityType, core.OperationCreate)
	if err != nil {
		return err
	}

	records := make([]*core.Record, len(inputs))
	for i, m := range inputs {
		rec, err := recordFromMap(def, m)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		records[i] = rec
	}

	results := make([]createResult, len(records))
	var g errgroup.Group
	g.SetLimit(cc.Cfg.Concurrency)
	for i, rec := range records {
		g.Go(func() error {
			res := createResult{Index: i + 1}
			out, err := cc.Dispatcher.Create(cmd.Context(), rec)
			if err != nil {
				res.Err = err
			} else if len(out.Output) > 0 && def.OutputField != "" {
				res.Location = out.Output[0].Text(def.OutputField)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	rows := make([]map[string]any, 0, len(results))
	for _, res := range results {
		row := map[string]any{"#": res.Index, "location": res.Location, "status": "created"}
		if res.Err != nil {
			failed++
			row["status"] = "failed"
			row["error"] = res.Err.Error()
		}
		rows = append(rows, row)
	}

	if err := renderRows(cmd.OutOrStdout(), []string{"#", "status", "location", "error"}, rows, cc.Cfg.Output); err != nil {
		return err
	}

	if failed > 0 {
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("%d of %d records failed", failed, len(results))
	}
	return nil
}

// loadRecordsFile reads a YAML document holding one mapping or a list of
// mappings.
func loadRecordsFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	switch val := doc.(type) {
	case map[string]any:
		return []map[string]any{val}, nil
	case []any:
		out := make([]map[string]any, 0, len(val))
		for i, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: entry %d is not a mapping", path, i+1)
			}
			out = append(out, m)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%s contains no records", path)
	default:
		return nil, fmt.Errorf("%s: expected a mapping or a list of mappings", path)
	}
}
