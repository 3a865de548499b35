package schema

import "sort"

// ============================================================================
// SCHEMA — Dimensions, vocabularies and filter terms
// ============================================================================
// Value objects shared by the engine, the store backends and the shell.
// Everything here is immutable once constructed; refreshes replace values
// wholesale instead of mutating them.
// ============================================================================

// System dimension and column names.
const (
	PropertyDimension = "Property"

	OrdinalColumn   = "Ordinal"
	ValueColumn     = "Value"
	UserNameColumn  = "UserName"
	TimestampColumn = "Timestamp"
)

// Dimension names one axis of classification. Compared by name.
type Dimension struct {
	Name string `json:"name" yaml:"name"`
}

// NewDimension creates a Dimension.
func NewDimension(name string) Dimension {
	return Dimension{Name: name}
}

// IsProperty reports whether d is the subject dimension.
func (d Dimension) IsProperty() bool {
	return d.Name == PropertyDimension
}

func (d Dimension) String() string { return d.Name }

// DimensionValues pairs a Dimension with its vocabulary as reported by the store.
type DimensionValues struct {
	Dimension Dimension `json:"dimension"`
	Values    []string  `json:"values"`
}

// NewDimensionValues snapshots values so later changes to the input slice
// are not observed.
func NewDimensionValues(d Dimension, values []string) DimensionValues {
	cp := make([]string, len(values))
	copy(cp, values)
	return DimensionValues{Dimension: d, Values: cp}
}

// Sorted returns the vocabulary in ascending order.
func (dv DimensionValues) Sorted() []string {
	out := make([]string, len(dv.Values))
	copy(out, dv.Values)
	sort.Strings(out)
	return out
}

// Contains reports whether value is part of the vocabulary.
func (dv DimensionValues) Contains(value string) bool {
	for _, v := range dv.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Measure is one committed (dimension, value) filter term.
// Comparable, so it can key a map.
type Measure struct {
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value"`
}

// NewMeasure creates a Measure.
func NewMeasure(d Dimension, value string) Measure {
	return Measure{Dimension: d, Value: value}
}

// Dimensions converts names into Dimensions, preserving order.
func Dimensions(names []string) []Dimension {
	out := make([]Dimension, len(names))
	for i, n := range names {
		out[i] = NewDimension(n)
	}
	return out
}

// Names returns the dimension names of a DimensionValues list, preserving order.
func Names(list []DimensionValues) []string {
	out := make([]string, len(list))
	for i, dv := range list {
		out[i] = dv.Dimension.Name
	}
	return out
}
