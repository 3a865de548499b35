package schema

// MeasureSet is an insertion-ordered set of Measures.
// The zero value is ready to use.
type MeasureSet struct {
	items []Measure
	index map[Measure]struct{}
}

// NewMeasureSet builds a set from ms, collapsing duplicates.
func NewMeasureSet(ms ...Measure) MeasureSet {
	var s MeasureSet
	for _, m := range ms {
		s.Add(m)
	}
	return s
}

// Add inserts m and reports whether it was new.
func (s *MeasureSet) Add(m Measure) bool {
	if s.index == nil {
		s.index = make(map[Measure]struct{})
	}
	if _, ok := s.index[m]; ok {
		return false
	}
	s.index[m] = struct{}{}
	s.items = append(s.items, m)
	return true
}

// Contains reports whether m is in the set.
func (s MeasureSet) Contains(m Measure) bool {
	_, ok := s.index[m]
	return ok
}

// Len returns the number of measures.
func (s MeasureSet) Len() int { return len(s.items) }

// Items returns a copy of the measures in insertion order.
func (s MeasureSet) Items() []Measure {
	out := make([]Measure, len(s.items))
	copy(out, s.items)
	return out
}

// Equal compares two sets ignoring order.
func (s MeasureSet) Equal(other MeasureSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, m := range s.items {
		if !other.Contains(m) {
			return false
		}
	}
	return true
}
