package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/vivialconnect/resource"
)

// column renders one table column of a resource listing
type column struct {
	header string
	value  func(r *resource.Resource) string
}

// attrColumn shows an attribute as text
func attrColumn(header, key string) column {
	return column{header: header, value: func(r *resource.Resource) string { return r.String(key) }}
}

// truncColumn shows an attribute cut to max characters
func truncColumn(header, key string, max int) column {
	return column{header: header, value: func(r *resource.Resource) string { return truncate(r.String(key), max) }}
}

var idColumn = attrColumn("ID", "id")

type raw interface {
	Raw() *resource.Resource
}

// raws unwraps typed resources for filtering and rendering
func raws[T raw](items []T) []*resource.Resource {
	out := make([]*resource.Resource, 0, len(items))
	for _, item := range items {
		out = append(out, item.Raw())
	}
	return out
}

// where applies the --where filter, if any
func where(ctx context.Context, rs []*resource.Resource) ([]*resource.Resource, error) {
	if whereExpr == "" {
		return rs, nil
	}
	matched, err := filters.Apply(ctx, whereExpr, rs)
	if err != nil {
		return nil, fmt.Errorf("failed to apply filter: %w", err)
	}
	logger.Debug().
		Str("where", whereExpr).
		Int("total", len(rs)).
		Int("matched", len(matched)).
		Msg("Filtered resources")
	return matched, nil
}

// renderResources filters rs and prints them in the selected format. Table
// output shows columns; JSON and YAML output carry every attribute.
func renderResources(cmd *cobra.Command, rs []*resource.Resource, columns []column) error {
	rs, err := where(cmd.Context(), rs)
	if err != nil {
		return err
	}

	attrs := make([]map[string]any, 0, len(rs))
	for _, r := range rs {
		attrs = append(attrs, r.Attributes())
	}

	return render(cmd, attrs, func(t *tablewriter.Table) {
		headers := make([]string, 0, len(columns))
		for _, c := range columns {
			headers = append(headers, c.header)
		}
		t.SetHeader(headers)
		for _, r := range rs {
			row := make([]string, 0, len(columns))
			for _, c := range columns {
				row = append(row, c.value(r))
			}
			t.Append(row)
		}
	})
}

// renderMap prints a flat key/value document
func renderMap(cmd *cobra.Command, m map[string]any) error {
	return render(cmd, m, func(t *tablewriter.Table) {
		t.SetHeader([]string{"Key", "Value"})
		for _, k := range slices.Sorted(maps.Keys(m)) {
			t.Append([]string{k, fmt.Sprint(m[k])})
		}
	})
}

// render writes v as JSON or YAML, or calls fill to build a table
func render(cmd *cobra.Command, v any, fill func(t *tablewriter.Table)) error {
	out := cmd.OutOrStdout()

	switch outputMode() {
	case "json":
		return writeJSON(out, v)
	case "yaml":
		return writeYAML(out, v)
	case "table":
		table := newTable(out)
		fill(table)
		table.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputMode())
	}
}

func newTable(out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// truncate truncates a string to max runes
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
