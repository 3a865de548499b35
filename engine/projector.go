package engine

import (
	"strconv"
	"time"

	"github.com/spektr-org/myriad/epoch"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// RESULT PROJECTOR — Raw key/value rows → typed table
// ============================================================================
// Schema: Ordinal, dimension columns, Value, UserName, Timestamp.
// Projection: one cell per declared column. Absent keys stay unset, unknown
// keys are dropped. A cell that fails to parse rejects its whole row; the
// rest of the batch is still projected, in store order.
// ============================================================================

// DeriveSchema builds the result schema for a dimension list.
//
// With ValueFixed (default) Value sits at index 2 whatever the number of
// dimension columns; with no dimensions a gap column holds index 1.
// Dimensions named Ordinal or Value, empty names and repeats are dropped so
// those columns keep their positions. A dimension named UserName or
// Timestamp occupies the dimension position and the system column is not
// repeated.
func DeriveSchema(dimensionNames []string, opts ...Option) schema.Schema {
	cfg := applyOptions(opts)

	cols := make([]schema.Column, 0, len(dimensionNames)+5)
	cols = append(cols, schema.Column{Name: schema.OrdinalColumn, Type: schema.Integer})
	seen := make(map[string]bool, len(dimensionNames))
	for _, name := range dimensionNames {
		if name == "" || name == schema.OrdinalColumn || name == schema.ValueColumn || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, schema.Column{Name: name, Type: schema.SystemColumnType(name)})
	}

	value := schema.Column{Name: schema.ValueColumn, Type: schema.String}
	if cfg.Placement == ValueAfterDimensions {
		cols = append(cols, value)
	} else {
		if len(cols) < 2 {
			cols = append(cols, schema.Column{Type: schema.String, Gap: true})
		}
		cols = append(cols[:2], append([]schema.Column{value}, cols[2:]...)...)
	}

	cols = append(cols,
		schema.Column{Name: schema.UserNameColumn, Type: schema.String},
		schema.Column{Name: schema.TimestampColumn, Type: schema.Timestamp},
	)
	return schema.NewSchema(cols)
}

// Cell is one typed value. Raw keeps the serialized input.
type Cell struct {
	Set  bool
	Type schema.ColumnType
	Raw  string
	Int  int64
	Time time.Time
}

// String renders the cell for display. Unset cells render empty.
func (c Cell) String() string {
	if !c.Set {
		return ""
	}
	switch c.Type {
	case schema.Integer:
		return strconv.FormatInt(c.Int, 10)
	case schema.Timestamp:
		return c.Time.Format(time.RFC3339Nano)
	default:
		return c.Raw
	}
}

// Row is a projected result row, one cell per schema column.
type Row struct {
	schema schema.Schema
	cells  []Cell
}

// Cells returns a copy of the cells in column order.
func (r Row) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Get returns the named cell; ok is false when the cell is unset or the
// column is not declared.
func (r Row) Get(name string) (Cell, bool) {
	i, declared := r.schema.Index(name)
	if !declared {
		return Cell{}, false
	}
	c := r.cells[i]
	return c, c.Set
}

// Text returns the raw text of a set cell.
func (r Row) Text(name string) (string, bool) {
	c, ok := r.Get(name)
	return c.Raw, ok
}

// Time returns a set timestamp cell.
func (r Row) Time(name string) (time.Time, bool) {
	c, ok := r.Get(name)
	if !ok || c.Type != schema.Timestamp {
		return time.Time{}, false
	}
	return c.Time, true
}

// Int returns a set integer cell.
func (r Row) Int(name string) (int64, bool) {
	c, ok := r.Get(name)
	if !ok || c.Type != schema.Integer {
		return 0, false
	}
	return c.Int, true
}

// ValueMap returns the raw text of every set, named cell.
func (r Row) ValueMap() map[string]string {
	out := make(map[string]string, len(r.cells))
	for i, c := range r.cells {
		col := r.schema.Column(i)
		if c.Set && !col.Gap {
			out[col.Name] = c.Raw
		}
	}
	return out
}

// Table is a projected result set.
type Table struct {
	Schema schema.Schema
	Rows   []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Project coerces one raw row into sch.
func Project(raw store.RawRow, sch schema.Schema) (Row, error) {
	row := Row{schema: sch, cells: make([]Cell, sch.Len())}

	for i := 0; i < sch.Len(); i++ {
		col := sch.Column(i)
		if col.Gap {
			continue
		}
		v, ok := raw[col.Name]
		if !ok {
			continue
		}

		cell := Cell{Set: true, Type: col.Type, Raw: v}
		switch col.Type {
		case schema.Integer:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Row{}, &ParseError{Row: -1, Column: col.Name, Value: v, Err: err}
			}
			cell.Int = n
		case schema.Timestamp:
			ts, err := epoch.Parse(v)
			if err != nil {
				return Row{}, &ParseError{Row: -1, Column: col.Name, Value: v, Err: err}
			}
			cell.Time = ts
		}
		row.cells[i] = cell
	}

	return row, nil
}

// ProjectAll projects a whole batch. Rows that fail are omitted and their
// errors returned alongside the table.
func ProjectAll(raws []store.RawRow, sch schema.Schema) (*Table, []error) {
	table := &Table{Schema: sch, Rows: make([]Row, 0, len(raws))}
	var errs []error

	for i, raw := range raws {
		row, err := Project(raw, sch)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Row = i
			}
			errs = append(errs, err)
			rowErrors.WithLabelValues("parse").Inc()
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	rowsProjected.Add(float64(len(table.Rows)))
	return table, errs
}
