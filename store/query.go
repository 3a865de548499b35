package store

// ============================================================================
// QUERY — Dimension-value constraints sent to a backend
// ============================================================================
// OR within a dimension, AND across dimensions. A dimension with no term is
// unconstrained. Matching is exact: store values are identifiers.
// ============================================================================

// Term constrains one dimension to a set of values.
type Term struct {
	Dimension string   `json:"dimension"`
	Values    []string `json:"values"`
}

// Query is an ordered list of terms, at most one per dimension.
type Query struct {
	Terms []Term `json:"terms"`
}

// IsEmpty returns true if no term constrains anything.
func (q Query) IsEmpty() bool {
	for _, t := range q.Terms {
		if len(t.Values) > 0 {
			return false
		}
	}
	return true
}

// HasTerm returns true if dimension is constrained.
func (q Query) HasTerm(dimension string) bool {
	for _, t := range q.Terms {
		if t.Dimension == dimension && len(t.Values) > 0 {
			return true
		}
	}
	return false
}

// Filters returns the terms as a dimension → allowed values map.
func (q Query) Filters() map[string][]string {
	out := make(map[string][]string, len(q.Terms))
	for _, t := range q.Terms {
		if len(t.Values) > 0 {
			out[t.Dimension] = append([]string(nil), t.Values...)
		}
	}
	return out
}

// Matcher evaluates a Query against raw rows in a single pass per row.
type Matcher struct {
	sets map[string]map[string]struct{}
}

// NewMatcher pre-builds lookup sets for q.
func NewMatcher(q Query) *Matcher {
	m := &Matcher{sets: make(map[string]map[string]struct{})}
	for dim, allowed := range q.Filters() {
		set := make(map[string]struct{}, len(allowed))
		for _, v := range allowed {
			set[v] = struct{}{}
		}
		m.sets[dim] = set
	}
	return m
}

// Match reports whether row satisfies every dimension constraint.
func (m *Matcher) Match(row RawRow) bool {
	for dim, set := range m.sets {
		if _, ok := set[row[dim]]; !ok {
			return false
		}
	}
	return true
}

// Filter returns the rows matching q, preserving order.
func Filter(rows []RawRow, q Query) []RawRow {
	if q.IsEmpty() {
		return rows
	}
	m := NewMatcher(q)
	out := make([]RawRow, 0, len(rows))
	for _, r := range rows {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
