package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// TEXT BUILDER — Produces TextData for a result table
// ============================================================================
// Period spans the earliest and latest Timestamp cells; rows without one
// still count.
// ============================================================================

// BuildText summarizes t in one line plus structured fields.
func BuildText(t *Table, rejected int) *TextData {
	if t.Len() == 0 {
		return &TextData{
			Value:    "No results",
			Period:   "No data",
			Rejected: rejected,
		}
	}

	var earliest, latest time.Time
	authors := make(map[string]bool)
	for _, r := range t.Rows {
		if ts, ok := r.Time(schema.TimestampColumn); ok {
			if earliest.IsZero() || ts.Before(earliest) {
				earliest = ts
			}
			if latest.IsZero() || ts.After(latest) {
				latest = ts
			}
		}
		if a, ok := r.Text(schema.UserNameColumn); ok && a != "" {
			authors[a] = true
		}
	}

	names := make([]string, 0, len(authors))
	for a := range authors {
		names = append(names, a)
	}
	sort.Strings(names)

	return &TextData{
		Value:    fmt.Sprintf("%d rows by %d authors", t.Len(), len(names)),
		Period:   DerivePeriod(earliest, latest),
		Count:    t.Len(),
		Rejected: rejected,
		Authors:  names,
	}
}

// DerivePeriod renders a time span at day resolution.
func DerivePeriod(earliest, latest time.Time) string {
	const layout = "2006-01-02"
	switch {
	case earliest.IsZero():
		return "No timestamps"
	case earliest.Format(layout) == latest.Format(layout):
		return earliest.Format(layout)
	default:
		return earliest.Format(layout) + " – " + latest.Format(layout)
	}
}
