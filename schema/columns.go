package schema

// ============================================================================
// COLUMNS — Typed tabular schema for projected query results
// ============================================================================

// ColumnType is the declared type of a result column.
type ColumnType int

const (
	String ColumnType = iota
	Integer
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	default:
		return "string"
	}
}

// SystemColumnType returns the fixed type of a system column name.
// Dimension columns are always strings.
func SystemColumnType(name string) ColumnType {
	switch name {
	case OrdinalColumn:
		return Integer
	case TimestampColumn:
		return Timestamp
	default:
		return String
	}
}

// Column is one declared result column.
// A Gap column reserves a position and never carries data.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	Gap  bool       `json:"gap,omitempty"`
}

// Schema is an ordered, name-indexed sequence of columns.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a Schema. Later columns with a name already present
// are dropped; gap columns are never indexed.
func NewSchema(cols []Column) Schema {
	s := Schema{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if !c.Gap {
			if _, dup := s.index[c.Name]; dup {
				continue
			}
			s.index[c.Name] = len(s.columns)
		}
		s.columns = append(s.columns, c)
	}
	return s
}

// Len returns the number of columns, gaps included.
func (s Schema) Len() int { return len(s.columns) }

// Column returns the column at position i.
func (s Schema) Column(i int) Column { return s.columns[i] }

// Columns returns a copy of the columns.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Index returns the position of the named column.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the schema declares a column called name.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns column names in order. Gap columns yield "".
func (s Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}
