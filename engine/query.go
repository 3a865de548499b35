package engine

import (
	"fmt"

	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// QUERY COMPOSER — Selections → store.Query
// ============================================================================
// Pure data transformation; no store access. Every chosen (dimension, value)
// pair appears in the query. Empty selections are omitted (unconstrained).
// Selections on dimensions the store no longer lists are dropped and
// reported, never failed.
// ============================================================================

// ComposedQuery is the composer's output: the request plus dropped terms.
type ComposedQuery struct {
	Query   store.Query
	Dropped []*SchemaMismatchError
}

// BuildQuery composes a store query from the current selections.
// dimensionList is the store-reported dimension list; empty disables the
// mismatch check.
func BuildQuery(selections []schema.DimensionValues, dimensionList []string) (ComposedQuery, error) {
	known := make(map[string]bool, len(dimensionList))
	for _, name := range dimensionList {
		known[name] = true
	}

	seen := make(map[string]bool, len(selections))
	var out ComposedQuery

	for _, sel := range selections {
		name := sel.Dimension.Name
		if seen[name] {
			return ComposedQuery{}, fmt.Errorf("%w: %q", ErrDuplicateDimension, name)
		}
		seen[name] = true

		if len(sel.Values) == 0 {
			continue
		}
		if len(known) > 0 && !known[name] {
			out.Dropped = append(out.Dropped, &SchemaMismatchError{Dimension: name})
			continue
		}

		values := make([]string, len(sel.Values))
		copy(values, sel.Values)
		out.Query.Terms = append(out.Query.Terms, store.Term{Dimension: name, Values: values})
	}

	return out, nil
}
