package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities [entity]",
		Short: "List supported entity types and their fields",
		Long: `Without arguments, list the entity types the connector supports.
With an entity name, show its fields and how each may be used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutConnection(cmd)
			reg := entity.Default()
			if len(args) == 0 {
				return renderEntities(cmd.OutOrStdout(), reg.Definitions(), cc.Cfg.Output)
			}
			def, ok := reg.Get(args[0])
			if !ok {
				return &core.UnsupportedEntityTypeError{EntityType: args[0], Available: reg.Names()}
			}
			return renderFields(cmd.OutOrStdout(), def, cc.Cfg.Output)
		},
	}
	return cmd
}

// fieldLabel turns a field name into a display label: customerId -> Customer Id.
func fieldLabel(name string) string {
	return cases.Title(language.English).String(strcase.ToDelimited(name, ' '))
}

func renderEntities(w io.Writer, defs []*entity.Definition, format string) error {
	rows := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		ops := make([]string, 0, len(def.Operations))
		for _, op := range def.Operations {
			ops = append(ops, string(op))
		}
		rows = append(rows, map[string]any{
			"name":        def.Name,
			"operations":  strings.Join(ops, ", "),
			"collection":  def.CollectionPath,
			"item":        def.ItemPath(),
			"description": def.Description,
		})
	}
	return renderRows(w, []string{"name", "operations", "collection", "item", "description"}, rows, format)
}

type fieldRow struct {
	Path  string
	Label string
	Rule  core.FieldRule
}

func collectFields(prefix string, rules []core.FieldRule, out []fieldRow) []fieldRow {
	for _, r := range rules {
		path := prefix + r.Name
		out = append(out, fieldRow{Path: path, Label: fieldLabel(r.Name), Rule: r})
		if len(r.Fields) > 0 {
			sep := "."
			if r.Type == core.FieldList {
				sep = "[]."
			}
			out = collectFields(path+sep, r.Fields, out)
		}
	}
	return out
}

func renderFields(w io.Writer, def *entity.Definition, format string) error {
	fields := collectFields("", def.Fields, nil)

	if format != "" && format != "table" {
		rows := make([]map[string]any, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, map[string]any{
				"field":      f.Path,
				"label":      f.Label,
				"type":       string(f.Rule.Type),
				"constraint": f.Rule.UsableInQueryConstraint,
				"select":     f.Rule.UsableInQuerySelect,
				"input":      f.Rule.UsableInActionInput,
				"output":     f.Rule.UsableInActionOutput,
				"required":   f.Rule.RequiredInActionInput,
			})
		}
		return renderRows(w, []string{"field", "label", "type", "constraint", "select", "input", "output", "required"}, rows, format)
	}

	_, _ = fmt.Fprintf(w, "%s: %s\n", def.Name, def.Description)
	_, _ = fmt.Fprintf(w, "Collection: %s\n", def.CollectionPath)
	if item := def.ItemPath(); item != "" {
		_, _ = fmt.Fprintf(w, "Item:       %s\n", item)
	}
	_, _ = fmt.Fprintln(w)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Label", "Type", "Constraint", "Select", "Input", "Output", "Required"})
	for _, f := range fields {
		t.AppendRow(table.Row{
			f.Path,
			f.Label,
			string(f.Rule.Type),
			mark(f.Rule.UsableInQueryConstraint),
			mark(f.Rule.UsableInQuerySelect),
			mark(f.Rule.UsableInActionInput),
			mark(f.Rule.UsableInActionOutput),
			mark(f.Rule.RequiredInActionInput),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d fields)\n", len(fields))
	return nil
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
