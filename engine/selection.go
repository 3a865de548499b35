package engine

import (
	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// SELECTION STATE — Per-dimension ordered set of chosen values
// ============================================================================
// Owned by one dimension's UI surface; not safe for concurrent mutation.
// Empty → Populated on Add, back to Empty on Clear or last Remove.
// Multi-valued dimensions accumulate; others hold one value, last write wins.
// ============================================================================

// SelectionStatus is the lifecycle state of a SelectionState.
type SelectionStatus int

const (
	SelectionEmpty SelectionStatus = iota
	SelectionPopulated
)

// SelectionState tracks the values chosen for one dimension.
type SelectionState struct {
	dimension  schema.Dimension
	multi      bool
	vocabulary schema.DimensionValues
	vocabSet   map[string]struct{}

	chosen []string
	index  map[string]int // value → position in chosen
}

// NewSelection creates an empty selection over dv's vocabulary.
func NewSelection(dv schema.DimensionValues, multi bool) *SelectionState {
	s := &SelectionState{
		dimension: dv.Dimension,
		multi:     multi,
		index:     make(map[string]int),
	}
	s.setVocabulary(dv)
	return s
}

// Dimension returns the dimension this selection belongs to.
func (s *SelectionState) Dimension() schema.Dimension { return s.dimension }

// MultiValued reports whether more than one value may be chosen.
func (s *SelectionState) MultiValued() bool { return s.multi }

// Add chooses value. Returns false when value is already chosen or is not in
// the vocabulary.
func (s *SelectionState) Add(value string) bool {
	if _, ok := s.index[value]; ok {
		return false
	}
	if _, ok := s.vocabSet[value]; !ok {
		return false
	}
	if !s.multi {
		s.chosen = s.chosen[:0]
		clear(s.index)
	}
	s.index[value] = len(s.chosen)
	s.chosen = append(s.chosen, value)
	return true
}

// Remove drops value if chosen.
func (s *SelectionState) Remove(value string) bool {
	i, ok := s.index[value]
	if !ok {
		return false
	}
	delete(s.index, value)
	s.chosen = append(s.chosen[:i], s.chosen[i+1:]...)
	for j := i; j < len(s.chosen); j++ {
		s.index[s.chosen[j]] = j
	}
	return true
}

// Clear empties the selection.
func (s *SelectionState) Clear() {
	s.chosen = nil
	clear(s.index)
}

// Snapshot returns the chosen values in insertion order.
func (s *SelectionState) Snapshot() []string {
	out := make([]string, len(s.chosen))
	copy(out, s.chosen)
	return out
}

// Len returns the number of chosen values.
func (s *SelectionState) Len() int { return len(s.chosen) }

// Contains reports whether value is chosen.
func (s *SelectionState) Contains(value string) bool {
	_, ok := s.index[value]
	return ok
}

// State returns Empty or Populated.
func (s *SelectionState) State() SelectionStatus {
	if len(s.chosen) == 0 {
		return SelectionEmpty
	}
	return SelectionPopulated
}

// Values returns the chosen set as DimensionValues, the query-side view.
func (s *SelectionState) Values() schema.DimensionValues {
	return schema.NewDimensionValues(s.dimension, s.chosen)
}

// Measure returns the current single choice as a filter term.
// Multi-valued selections yield their most recent choice.
func (s *SelectionState) Measure() (schema.Measure, bool) {
	if len(s.chosen) == 0 {
		return schema.Measure{}, false
	}
	return schema.NewMeasure(s.dimension, s.chosen[len(s.chosen)-1]), true
}

// Vocabulary returns the known values in ascending order.
func (s *SelectionState) Vocabulary() []string {
	return s.vocabulary.Sorted()
}

// Update replaces the vocabulary. Snapshots for another dimension are
// ignored. Chosen values missing from the new vocabulary are dropped.
func (s *SelectionState) Update(dv schema.DimensionValues) bool {
	if dv.Dimension != s.dimension || dv.Values == nil {
		return false
	}
	s.setVocabulary(dv)

	kept := s.chosen[:0]
	clear(s.index)
	for _, v := range s.chosen {
		if _, ok := s.vocabSet[v]; ok {
			s.index[v] = len(kept)
			kept = append(kept, v)
		}
	}
	s.chosen = kept
	return true
}

// Propose turns an operator-entered value into a Measure. Empty values are
// rejected. The selection itself is unchanged: persisting the value is the
// caller's decision.
func (s *SelectionState) Propose(value string) (schema.Measure, bool) {
	if value == "" {
		return schema.Measure{}, false
	}
	return schema.NewMeasure(s.dimension, value), true
}

func (s *SelectionState) setVocabulary(dv schema.DimensionValues) {
	s.vocabulary = schema.NewDimensionValues(dv.Dimension, dv.Values)
	s.vocabSet = make(map[string]struct{}, len(dv.Values))
	for _, v := range dv.Values {
		s.vocabSet[v] = struct{}{}
	}
}
