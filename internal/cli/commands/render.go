package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/mapping"
)

// renderRecords writes canonical records in the requested format. Table, CSV
// and markdown output flatten nested objects into dotted columns.
func renderRecords(w io.Writer, records []*core.Record, format string) error {
	if format == "json" {
		results := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			results = append(results, recordToMap(rec))
		}
		return renderJSON(w, results)
	}

	var results []map[string]any
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		row := make(map[string]any)
		flatten("", recordToMap(rec), row)
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
		results = append(results, row)
	}
	sort.Strings(cols)

	return renderRows(w, cols, results, format)
}

// renderRows writes rows with a fixed column order.
func renderRows(w io.Writer, cols []string, results []map[string]any, format string) error {
	switch format {
	case "json":
		return renderJSON(w, results)
	case "csv":
		return renderCSV(w, cols, results)
	case "md", "markdown":
		return renderMarkdown(w, cols, results)
	default:
		return renderTable(w, cols, results)
	}
}

// recordToMap converts a record to plain values with dates in wire format.
func recordToMap(rec *core.Record) map[string]any {
	out := make(map[string]any, len(rec.Properties))
	for _, name := range rec.Names() {
		out[name] = plainValue(rec.Properties[name])
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return mapping.FormatDate(val)
	case *core.Record:
		if val == nil {
			return nil
		}
		return recordToMap(val)
	case []*core.Record:
		list := make([]any, 0, len(val))
		for _, item := range val {
			if item != nil {
				list = append(list, recordToMap(item))
			}
		}
		return list
	default:
		return val
	}
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := prefix + k
		switch val := v.(type) {
		case map[string]any:
			flatten(key+".", val, out)
		case []any:
			for i, item := range val {
				if im, ok := item.(map[string]any); ok {
					flatten(fmt.Sprintf("%s[%d].", key, i), im, out)
				} else {
					out[fmt.Sprintf("%s[%d]", key, i)] = item
				}
			}
		default:
			out[key] = val
		}
	}
}

func renderTable(w io.Writer, cols []string, results []map[string]any) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, result := range results {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(results))
	return nil
}

func renderJSON(w io.Writer, results any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderCSV(w io.Writer, cols []string, results []map[string]any) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))

	for _, result := range results {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(result[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, results []map[string]any) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, result := range results {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = formatValue(result[col])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
