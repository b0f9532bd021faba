package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/roach88/drolta/internal/engine"
)

// formatTable renders query rows as a markdown table followed by a row
// count line.
func formatTable(columns []string, rows []engine.Row) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %s_\n\n_No rows_\n", strings.Join(columns, ", "))
	}

	var sb strings.Builder

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(&sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Fprintf(&sb, "\n_%d rows_\n", len(rows))
	return sb.String()
}

// formatValue converts a SQLite value to its table cell text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
