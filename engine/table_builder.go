package engine

import (
	"fmt"

	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a projected Table
// ============================================================================
// Gap columns render as blank headers so positions match the schema.
// Unset cells render empty.
// ============================================================================

// BuildTable renders t for display. rejected is the number of rows the
// projector dropped.
func BuildTable(title string, t *Table, rejected int) *TableData {
	if t == nil {
		return &TableData{
			Title:   title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	cols := t.Schema.Columns()
	columns := make([]Column, 0, len(cols))
	for _, c := range cols {
		columns = append(columns, renderColumn(c))
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := r.Cells()
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = c.String()
		}
		rows = append(rows, out)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label:    fmt.Sprintf("%d rows", len(rows)),
			Rows:     len(rows),
			Rejected: rejected,
		},
	}
}

func renderColumn(c schema.Column) Column {
	switch {
	case c.Gap:
		return Column{Key: "", Label: "", Type: "text", Align: "left"}
	case c.Type == schema.Integer:
		return Column{Key: c.Name, Label: c.Name, Type: "number", Align: "right"}
	case c.Type == schema.Timestamp:
		return Column{Key: c.Name, Label: c.Name, Type: "timestamp", Align: "center"}
	default:
		return Column{Key: c.Name, Label: c.Name, Type: "text", Align: "left"}
	}
}
