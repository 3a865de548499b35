// Package influx is a store.Client backed by InfluxDB 2.x.
//
// Each cluster is one point in the event measurement:
//
//	tags:   Property=<key>, <dimension>=<value>..., <author tag>=<user>
//	fields: value=<cluster value>
//	time:   the cluster timestamp
//
// The dimension list is the measurement's tag keys minus the author tag.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/spektr-org/myriad/epoch"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

const valueField = "value"

// ErrEmptyKey is returned by PutProperty for an operation without a key.
var ErrEmptyKey = errors.New("property operation has no key")

// Config locates the bucket and measurement holding clusters.
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	AuthorTag   string // default "user"
	Start       string // Flux range start, default "0"
}

func (c Config) withDefaults() Config {
	if c.Measurement == "" {
		c.Measurement = "clusters"
	}
	if c.AuthorTag == "" {
		c.AuthorTag = "user"
	}
	if c.Start == "" {
		c.Start = "0"
	}
	return c
}

// querier runs Flux and returns each record's values.
type querier interface {
	records(ctx context.Context, flux string) ([]map[string]interface{}, error)
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type deleter interface {
	DeleteWithName(ctx context.Context, orgName, bucketName string, start, stop time.Time, predicate string) error
}

// fluxQuerier adapts api.QueryAPI.
type fluxQuerier struct {
	api api.QueryAPI
}

func (f fluxQuerier) records(ctx context.Context, flux string) ([]map[string]interface{}, error) {
	result, err := f.api.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	defer result.Close()

	var out []map[string]interface{}
	for result.Next() {
		out = append(out, result.Record().Values())
	}
	if result.Err() != nil {
		return nil, result.Err()
	}
	return out, nil
}

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

// Store talks to one bucket.
type Store struct {
	org         string
	bucket      string
	measurement string
	propertyTag string
	authorTag   string
	start       string

	query  querier
	write  pointWriter
	delete deleter
	client influxdb2.Client

	log *slog.Logger
	now func() time.Time
}

var _ store.Client = (*Store)(nil)

// Open connects to InfluxDB and checks its health once.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb health check: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return nil, fmt.Errorf("influxdb not ready: %s %s", health.Status, msg)
	}

	s := newStore(cfg,
		fluxQuerier{api: client.QueryAPI(cfg.Org)},
		client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		client.DeleteAPI(),
		opts...)
	s.client = client
	s.log.Info("connected to influxdb", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return s, nil
}

func newStore(cfg Config, q querier, w pointWriter, d deleter, opts ...Option) *Store {
	cfg = cfg.withDefaults()
	s := &Store{
		org:         cfg.Org,
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		propertyTag: schema.PropertyDimension,
		authorTag:   cfg.AuthorTag,
		start:       cfg.Start,
		query:       q,
		write:       w,
		delete:      d,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying client.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// GetDimensionList returns the measurement's tag keys in store order.
func (s *Store) GetDimensionList(ctx context.Context) ([]string, error) {
	recs, err := s.query.records(ctx, s.tagKeysFlux())
	if err != nil {
		return nil, fmt.Errorf("tag keys: %w", err)
	}

	var dims []string
	for _, r := range recs {
		key, _ := r["_value"].(string)
		if key == "" || strings.HasPrefix(key, "_") || key == s.authorTag {
			continue
		}
		dims = append(dims, key)
	}
	return dims, nil
}

// GetMetadata returns the tag values of every dimension.
func (s *Store) GetMetadata(ctx context.Context) ([]schema.DimensionValues, error) {
	dims, err := s.GetDimensionList(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]schema.DimensionValues, 0, len(dims))
	for _, d := range dims {
		recs, err := s.query.records(ctx, s.tagValuesFlux(d))
		if err != nil {
			return nil, fmt.Errorf("tag values for %q: %w", d, err)
		}
		values := make([]string, 0, len(recs))
		for _, r := range recs {
			if v, ok := r["_value"].(string); ok && v != "" {
				values = append(values, v)
			}
		}
		out = append(out, schema.NewDimensionValues(schema.NewDimension(d), values))
	}
	return out, nil
}

// Query returns one row per matching point, oldest first.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.RawRow, error) {
	flux := s.queryFlux(q)
	s.log.Debug("flux query", "query", flux)

	recs, err := s.query.records(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	rows := make([]store.RawRow, 0, len(recs))
	for i, r := range recs {
		rows = append(rows, s.rawRow(r, i))
	}
	return rows, nil
}

// rawRow serializes one Flux record the way the projector expects.
func (s *Store) rawRow(values map[string]interface{}, ordinal int) store.RawRow {
	row := store.RawRow{schema.OrdinalColumn: strconv.Itoa(ordinal)}
	for k, v := range values {
		switch {
		case k == "_value":
			row[schema.ValueColumn] = fmt.Sprint(v)
		case k == "_time":
			if t, ok := v.(time.Time); ok {
				row[schema.TimestampColumn] = epoch.Format(t)
			}
		case k == s.authorTag:
			row[schema.UserNameColumn] = fmt.Sprint(v)
		case k == "result" || k == "table" || strings.HasPrefix(k, "_"):
		default:
			if v != nil {
				row[k] = fmt.Sprint(v)
			}
		}
	}
	return row
}

// cluster converts one Flux record into a cluster. Measures are added in
// tag-key order.
func (s *Store) cluster(values map[string]interface{}) schema.Cluster {
	var c schema.Cluster
	c.Value = fmt.Sprint(values["_value"])
	if t, ok := values["_time"].(time.Time); ok {
		c.Timestamp = epoch.FromTime(t)
	}
	c.Author, _ = values[s.authorTag].(string)

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == s.propertyTag || k == s.authorTag || k == "result" || k == "table" || strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := values[k].(string); ok && v != "" {
			c.Measures.Add(schema.NewMeasure(schema.NewDimension(k), v))
		}
	}
	return c
}

// GetProperties returns the known keys in request order.
func (s *Store) GetProperties(ctx context.Context, keys []string) (*store.PropertyResponse, error) {
	resp := &store.PropertyResponse{Properties: []store.Property{}}
	if len(keys) == 0 {
		return resp, nil
	}

	recs, err := s.query.records(ctx, s.propertiesFlux(keys))
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}

	grouped := make(map[string][]schema.Cluster)
	for _, r := range recs {
		key, _ := r[s.propertyTag].(string)
		grouped[key] = append(grouped[key], s.cluster(r))
	}
	for _, k := range keys {
		if clusters, ok := grouped[k]; ok {
			resp.Properties = append(resp.Properties, store.Property{Key: k, Clusters: clusters})
			delete(grouped, k)
		}
	}
	return resp, nil
}

// PutProperty deletes each removed cluster's point, writes the added ones,
// then reads the property back.
func (s *Store) PutProperty(ctx context.Context, op store.PropertyOperation) (*store.Property, error) {
	if op.Key == "" {
		return nil, ErrEmptyKey
	}

	for _, c := range op.Remove {
		start := epoch.ToTime(c.Timestamp)
		stop := start.Add(epoch.Tick - time.Nanosecond)
		if err := s.delete.DeleteWithName(ctx, s.org, s.bucket, start, stop, s.deletePredicate(op.Key, c.Author)); err != nil {
			return nil, fmt.Errorf("delete cluster: %w", err)
		}
	}

	if len(op.Add) > 0 {
		points := make([]*write.Point, 0, len(op.Add))
		for _, c := range op.Add {
			if op.Stamp {
				c.Timestamp = epoch.FromTime(s.now())
			}
			points = append(points, s.point(op.Key, c))
		}
		if err := s.write.WritePoint(ctx, points...); err != nil {
			return nil, fmt.Errorf("write clusters: %w", err)
		}
	}

	s.log.Info("property updated", "key", op.Key, "op", op.ID,
		"removed", len(op.Remove), "added", len(op.Add))

	resp, err := s.GetProperties(ctx, []string{op.Key})
	if err != nil {
		return nil, err
	}
	p, ok := resp.First()
	if !ok {
		p = store.Property{Key: op.Key, Clusters: []schema.Cluster{}}
	}
	return &p, nil
}

func (s *Store) point(key string, c schema.Cluster) *write.Point {
	tags := map[string]string{
		s.propertyTag: key,
		s.authorTag:   c.Author,
	}
	for _, m := range c.Measures.Items() {
		if m.Dimension.IsProperty() || m.Dimension.Name == s.authorTag || m.Value == "" {
			continue
		}
		tags[m.Dimension.Name] = m.Value
	}

	return influxdb2.NewPoint(s.measurement, tags, map[string]interface{}{valueField: c.Value}, epoch.ToTime(c.Timestamp))
}
