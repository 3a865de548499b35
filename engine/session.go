package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// SESSION — Store client + selection state + last result table
// ============================================================================
// Pipeline for Query():
//   1. Snapshot every selection → DimensionValues
//   2. BuildQuery (drops stale dimensions, reports them)
//   3. store.Query
//   4. ProjectAll (rejects bad rows, keeps the rest)
//   5. Replace the table, queue events
//
// A failed store call leaves the previous table, dimension list and
// vocabulary untouched. Operations are serialized: one query in flight.
// ============================================================================

// Session is one operator's view of a store.
type Session struct {
	client store.Client
	cfg    *config
	log    *slog.Logger
	events *EventQueue
	flight singleflight.Group

	mu         sync.Mutex
	dimensions []string
	schema     schema.Schema
	metadata   []schema.DimensionValues
	selections map[string]*SelectionState
	order      []string // selection display order, metadata order
	table      *Table
	rejected   int
}

// QueryResult is what Session.Query returns to the shell.
type QueryResult struct {
	Table    *Table
	Rejected []error
	Dropped  []*SchemaMismatchError
}

// EditRequest is everything an editor needs to edit one row's subject.
type EditRequest struct {
	Property   store.Property
	Found      bool
	Cluster    schema.Cluster
	ValueMap   map[string]string
	Dimensions []schema.DimensionValues
}

// EditFunc turns an EditRequest into an operation. Returning false cancels.
type EditFunc func(EditRequest) (store.PropertyOperation, bool)

// NewSession creates a session. Call Reset before querying.
func NewSession(client store.Client, opts ...Option) *Session {
	cfg := applyOptions(opts)
	return &Session{
		client:     client,
		cfg:        cfg,
		log:        cfg.Logger,
		events:     NewEventQueue(cfg.EventLimit),
		schema:     DeriveSchema(nil, opts...),
		selections: make(map[string]*SelectionState),
	}
}

// Events returns the session's event queue.
func (s *Session) Events() *EventQueue { return s.events }

// Reset reloads the dimension list, result schema and vocabulary, and clears
// the table. Used when connecting or reconnecting to a store.
func (s *Session) Reset(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dims, err := s.client.GetDimensionList(ctx)
	if err != nil {
		storeErrors.WithLabelValues("dimension_list").Inc()
		s.log.Error("dimension list fetch failed", "error", err)
		return storeErr("get dimension list", err)
	}
	metadata, err := s.client.GetMetadata(ctx)
	if err != nil {
		storeErrors.WithLabelValues("metadata").Inc()
		s.log.Error("metadata fetch failed", "error", err)
		return storeErr("get metadata", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dimensions = append([]string(nil), dims...)
	s.schema = DeriveSchema(dims, WithValuePlacement(s.cfg.Placement))
	s.selections = make(map[string]*SelectionState)
	s.order = nil
	s.table = nil
	s.rejected = 0
	s.applyMetadata(metadata)

	s.log.Info("session reset",
		"dimensions", len(dims), "columns", s.schema.Len(), "vocabularies", len(metadata))
	return nil
}

// Refresh re-fetches vocabularies only. Concurrent callers share one fetch.
func (s *Session) Refresh(ctx context.Context) error {
	v, err, shared := s.flight.Do("metadata", func() (interface{}, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		return s.client.GetMetadata(ctx)
	})
	if err != nil {
		storeErrors.WithLabelValues("metadata").Inc()
		s.log.Warn("metadata refresh failed, keeping previous vocabulary", "error", err)
		return storeErr("get metadata", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyMetadata(v.([]schema.DimensionValues))
	s.log.Debug("metadata refreshed", "shared", shared)
	return nil
}

// applyMetadata replaces vocabularies; callers hold mu.
func (s *Session) applyMetadata(metadata []schema.DimensionValues) {
	s.metadata = metadata
	seen := make(map[string]bool, len(metadata))
	order := make([]string, 0, len(metadata))

	for _, dv := range metadata {
		name := dv.Dimension.Name
		if seen[name] {
			s.log.Warn("duplicate dimension in metadata ignored", "dimension", name)
			continue
		}
		seen[name] = true
		order = append(order, name)

		if sel, ok := s.selections[name]; ok {
			sel.Update(dv)
			continue
		}
		s.selections[name] = NewSelection(dv, s.cfg.MultiValued[name])
	}

	// dimensions that vanished keep their state until the next Reset so
	// stale selections surface as SchemaMismatch rather than disappearing
	for _, name := range s.order {
		if !seen[name] {
			order = append(order, name)
		}
	}
	s.order = order
	s.events.Push(Event{Kind: EventMetadataRefreshed, Rows: len(metadata)})
}

// Dimensions returns the store-reported dimension list.
func (s *Session) Dimensions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dimensions...)
}

// Schema returns the current result schema.
func (s *Session) Schema() schema.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// Metadata returns the last fetched vocabularies.
func (s *Session) Metadata() []schema.DimensionValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.DimensionValues(nil), s.metadata...)
}

// Selections returns a snapshot of every selection, in display order.
func (s *Session) Selections() []schema.DimensionValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotSelections()
}

func (s *Session) snapshotSelections() []schema.DimensionValues {
	out := make([]schema.DimensionValues, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.selections[name].Values())
	}
	return out
}

// Vocabulary returns the sorted vocabulary for dimension.
func (s *Session) Vocabulary(dimension string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	return sel.Vocabulary(), nil
}

// Select adds value to a dimension's selection.
func (s *Session) Select(dimension, value string) (bool, error) {
	return s.mutate(dimension, func(sel *SelectionState) bool { return sel.Add(value) })
}

// Deselect removes value from a dimension's selection.
func (s *Session) Deselect(dimension, value string) (bool, error) {
	return s.mutate(dimension, func(sel *SelectionState) bool { return sel.Remove(value) })
}

// ClearSelection empties a dimension's selection.
func (s *Session) ClearSelection(dimension string) error {
	_, err := s.mutate(dimension, func(sel *SelectionState) bool {
		changed := sel.Len() > 0
		sel.Clear()
		return changed
	})
	return err
}

func (s *Session) mutate(dimension string, fn func(*SelectionState) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selections[dimension]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	changed := fn(sel)
	if changed {
		s.events.Push(Event{Kind: EventSelectionChanged, Dimension: dimension, Values: sel.Snapshot()})
	}
	return changed, nil
}

// Propose queues an operator-entered value for dimension as a new Measure.
func (s *Session) Propose(dimension, value string) (schema.Measure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selections[dimension]
	if !ok {
		return schema.Measure{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	m, ok := sel.Propose(value)
	if !ok {
		return schema.Measure{}, errors.New("empty value")
	}
	s.events.Push(Event{Kind: EventMeasureProposed, Dimension: dimension, Measure: &m})
	s.log.Info("measure proposed", "dimension", dimension, "value", value)
	return m, nil
}

// Query runs the current selections against the store and replaces the
// table. On store failure the previous table is kept.
func (s *Session) Query(ctx context.Context) (*QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(ctx)
}

// query runs Query; callers hold mu.
func (s *Session) query(ctx context.Context) (*QueryResult, error) {
	start := time.Now()
	composed, err := BuildQuery(s.snapshotSelections(), s.dimensions)
	if err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	for _, d := range composed.Dropped {
		s.log.Warn("selection ignored", "dimension", d.Dimension, "reason", "not in dimension list")
	}

	s.log.Info("querying store", "terms", len(composed.Query.Terms), "dropped", len(composed.Dropped))

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()
	raws, err := s.client.Query(qctx, composed.Query)
	if err != nil {
		queriesTotal.WithLabelValues("store_error").Inc()
		storeErrors.WithLabelValues("query").Inc()
		s.log.Error("query failed, keeping previous results", "error", err)
		s.events.Push(Event{Kind: EventQueryFailed, Error: err.Error()})
		return nil, storeErr("query", err)
	}

	table, rejected := ProjectAll(raws, s.schema)
	for _, rerr := range rejected {
		s.log.Warn("row rejected", "error", rerr)
		s.events.Push(Event{Kind: EventRowRejected, Error: rerr.Error()})
	}

	s.table = table
	s.rejected = len(rejected)
	queriesTotal.WithLabelValues("ok").Inc()
	queryDuration.Observe(time.Since(start).Seconds())
	s.events.Push(Event{Kind: EventQueryCompleted, Rows: table.Len()})

	s.log.Info("query complete",
		"rows", table.Len(), "rejected", len(rejected), "elapsed", time.Since(start))

	return &QueryResult{Table: table, Rejected: rejected, Dropped: composed.Dropped}, nil
}

// Table returns the last projected table, or nil before the first query.
func (s *Session) Table() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// TableData renders the last table for display.
func (s *Session) TableData(title string) *TableData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return BuildTable(title, &Table{Schema: s.schema}, 0)
	}
	return BuildTable(title, s.table, s.rejected)
}

// TextData summarizes the last table.
func (s *Session) TextData() *TextData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildText(s.table, s.rejected)
}

// Cluster reconstructs the cluster behind result row index.
func (s *Session) Cluster(index int) (*schema.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.row(index)
	if err != nil {
		return nil, err
	}
	return s.rebuild(row)
}

func (s *Session) row(index int) (Row, error) {
	if s.table == nil || index < 0 || index >= len(s.table.Rows) {
		return Row{}, fmt.Errorf("%w: %d", ErrNoRow, index)
	}
	return s.table.Rows[index], nil
}

func (s *Session) rebuild(row Row) (*schema.Cluster, error) {
	c, err := Rebuild(row, schema.Dimensions(s.dimensions))
	if err != nil {
		rowErrors.WithLabelValues("incomplete").Inc()
		s.log.Warn("cluster reconstruction failed", "error", err)
		return nil, err
	}
	return c, nil
}

// Edit resolves the subject of a result row, hands it to edit and writes
// the returned operation, then re-runs the current query so the table shows
// the write. If that re-query fails the previous table is kept and the
// written property is still returned. A cancelled edit returns (nil, nil).
//
// edit runs with the session locked and must not call back into s.
func (s *Session) Edit(ctx context.Context, index int, edit EditFunc) (*store.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.row(index)
	if err != nil {
		return nil, err
	}
	cluster, err := s.rebuild(row)
	if err != nil {
		return nil, err
	}

	valueMap := row.ValueMap()
	ectx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.GetProperties(ectx, []string{valueMap[schema.PropertyDimension]})
	if err != nil {
		storeErrors.WithLabelValues("get_properties").Inc()
		return nil, storeErr("get properties", err)
	}
	property, found := resp.First()

	op, ok := edit(EditRequest{
		Property:   property,
		Found:      found,
		Cluster:    *cluster,
		ValueMap:   valueMap,
		Dimensions: append([]schema.DimensionValues(nil), s.metadata...),
	})
	if !ok {
		s.log.Info("edit cancelled", "row", index)
		return nil, nil
	}

	updated, err := s.client.PutProperty(ectx, op)
	if err != nil {
		storeErrors.WithLabelValues("put_property").Inc()
		s.log.Error("property write failed", "key", op.Key, "op", op.ID, "error", err)
		return nil, storeErr("put property", err)
	}
	s.log.Info("property written", "key", op.Key, "op", op.ID,
		"removed", len(op.Remove), "added", len(op.Add))

	if _, err := s.query(ctx); err != nil {
		s.log.Warn("re-query after edit failed, table is stale", "key", op.Key, "error", err)
	}
	return updated, nil
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}
