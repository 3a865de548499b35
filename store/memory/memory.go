// Package memory is an in-process store.Client backed by a CSV fixture.
// Used by the CLI for offline exploration and by tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/epoch"
	"github.com/spektr-org/myriad/helpers"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ErrEmptyKey is returned by PutProperty for an operation without a key.
var ErrEmptyKey = errors.New("property operation has no key")

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used to stamp new clusters.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds every property in memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	dimensions []string
	properties []store.Property
	index      map[string]int // key → position in properties

	log *slog.Logger
	now func() time.Time
}

var _ store.Client = (*Store)(nil)

// New creates a store over properties. dimensions is the reported
// dimension list; Property is prepended when missing.
func New(dimensions []string, properties []store.Property, opts ...Option) *Store {
	s := &Store{
		index: make(map[string]int),
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	hasProperty := false
	for _, d := range dimensions {
		if d == schema.PropertyDimension {
			hasProperty = true
		}
	}
	if !hasProperty {
		s.dimensions = append(s.dimensions, schema.PropertyDimension)
	}
	s.dimensions = append(s.dimensions, dimensions...)

	for _, p := range properties {
		s.upsert(p.Key).Clusters = append([]schema.Cluster(nil), p.Clusters...)
	}
	return s
}

// Open loads a CSV fixture from path.
func Open(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	props, dims, err := helpers.LoadProperties(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture %s: %w", path, err)
	}
	s := New(dims, props, opts...)
	s.log.Info("fixture loaded", "path", path, "properties", len(props), "dimensions", len(dims))
	return s, nil
}

// GetDimensionList returns the configured dimensions, Property first
// unless the fixture placed it elsewhere.
func (s *Store) GetDimensionList(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dimensions...), nil
}

// GetMetadata derives each dimension's vocabulary from the stored clusters,
// in first-seen order.
func (s *Store) GetMetadata(ctx context.Context) ([]schema.DimensionValues, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[schema.Measure]bool)
	values := make(map[string][]string, len(s.dimensions))
	note := func(m schema.Measure) {
		if m.Value == "" || seen[m] {
			return
		}
		seen[m] = true
		values[m.Dimension.Name] = append(values[m.Dimension.Name], m.Value)
	}

	property := schema.NewDimension(schema.PropertyDimension)
	for _, p := range s.properties {
		note(schema.NewMeasure(property, p.Key))
		for _, c := range p.Clusters {
			for _, m := range c.Measures.Items() {
				note(m)
			}
		}
	}

	out := make([]schema.DimensionValues, 0, len(s.dimensions))
	for _, d := range s.dimensions {
		vals := values[d]
		if vals == nil {
			vals = []string{}
		}
		out = append(out, schema.NewDimensionValues(schema.NewDimension(d), vals))
	}
	return out, nil
}

// Query returns one row per matching cluster, in property then cluster
// order. Ordinal is the row's position in the result.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := store.NewMatcher(q)
	var out []store.RawRow
	for _, p := range s.properties {
		for _, c := range p.Clusters {
			row := engine.ClusterRow(p.Key, c, -1)
			if !m.Match(row) {
				continue
			}
			row[schema.OrdinalColumn] = fmt.Sprint(len(out))
			out = append(out, row)
		}
	}

	s.log.Debug("memory query", "terms", len(q.Terms), "rows", len(out))
	return out, nil
}

// GetProperties returns the known keys in request order.
func (s *Store) GetProperties(ctx context.Context, keys []string) (*store.PropertyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := &store.PropertyResponse{Properties: []store.Property{}}
	for _, k := range keys {
		if pos, ok := s.index[k]; ok {
			resp.Properties = append(resp.Properties, copyProperty(s.properties[pos]))
		}
	}
	return resp, nil
}

// PutProperty removes op.Remove then appends op.Add. Unknown keys create a
// property. op.Stamp stamps the added clusters with the current time.
func (s *Store) PutProperty(ctx context.Context, op store.PropertyOperation) (*store.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if op.Key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.upsert(op.Key)
	for _, r := range op.Remove {
		removed := false
		kept := p.Clusters[:0]
		for _, c := range p.Clusters {
			if !removed && c.Equal(r) {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		p.Clusters = kept
		if !removed {
			s.log.Debug("cluster to remove not found", "key", op.Key, "op", op.ID)
		}
	}

	for _, c := range op.Add {
		if op.Stamp {
			c.Timestamp = epoch.FromTime(s.now())
		}
		p.Clusters = append(p.Clusters, c)
	}

	s.log.Info("property updated", "key", op.Key, "op", op.ID, "clusters", len(p.Clusters))
	out := copyProperty(*p)
	return &out, nil
}

// upsert returns the property for key, creating it; callers hold mu.
func (s *Store) upsert(key string) *store.Property {
	if pos, ok := s.index[key]; ok {
		return &s.properties[pos]
	}
	s.index[key] = len(s.properties)
	s.properties = append(s.properties, store.Property{Key: key})
	return &s.properties[len(s.properties)-1]
}

func copyProperty(p store.Property) store.Property {
	return store.Property{Key: p.Key, Clusters: append([]schema.Cluster(nil), p.Clusters...)}
}
