// Package store defines the contract between the explorer core and the
// backing event store, plus the value types that cross it.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// STORE CLIENT — External collaborator contract
// ============================================================================
// Backends: store/memory (fixture-backed), store/influx (InfluxDB 2.x).
// The core never retries; retry policy, if any, belongs to a backend.
// ============================================================================

// RawRow is one query result row: column name → serialized value.
// Timestamps are base-10 epoch tick offsets.
type RawRow map[string]string

// Client is implemented by every store backend.
type Client interface {
	// GetMetadata returns the vocabulary of every dimension.
	GetMetadata(ctx context.Context) ([]schema.DimensionValues, error)
	// GetDimensionList returns dimension names in store order.
	GetDimensionList(ctx context.Context) ([]string, error)
	// Query returns rows matching q, in store order.
	Query(ctx context.Context, q Query) ([]RawRow, error)
	// GetProperties resolves subjects by key.
	GetProperties(ctx context.Context, keys []string) (*PropertyResponse, error)
	// PutProperty applies op and returns the updated subject.
	PutProperty(ctx context.Context, op PropertyOperation) (*Property, error)
}

// Property is a subject and every cluster recorded against it.
type Property struct {
	Key      string           `json:"key"`
	Clusters []schema.Cluster `json:"clusters"`
}

// PropertyResponse is the result of GetProperties. Unknown keys are absent.
type PropertyResponse struct {
	Properties []Property `json:"properties"`
}

// First returns the first property, if any.
func (r *PropertyResponse) First() (Property, bool) {
	if r == nil || len(r.Properties) == 0 {
		return Property{}, false
	}
	return r.Properties[0], true
}

// PropertyOperation replaces clusters on one property.
// Removals are applied before additions. With Stamp set the store gives
// every added cluster its current time; otherwise timestamps, epoch zero
// included, are written as given.
type PropertyOperation struct {
	ID     uuid.UUID        `json:"id"`
	Key    string           `json:"key"`
	Remove []schema.Cluster `json:"remove,omitempty"`
	Add    []schema.Cluster `json:"add,omitempty"`
	Stamp  bool             `json:"stamp,omitempty"`
}

// NewPropertyOperation creates an operation with a fresh request ID.
func NewPropertyOperation(key string) PropertyOperation {
	return PropertyOperation{ID: uuid.New(), Key: key}
}

// Replace returns a copy of op that swaps original for updated.
func (op PropertyOperation) Replace(original, updated schema.Cluster) PropertyOperation {
	op.Remove = append(append([]schema.Cluster(nil), op.Remove...), original)
	op.Add = append(append([]schema.Cluster(nil), op.Add...), updated)
	return op
}
