package engine

import (
	"log/slog"
	"time"

	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for DeriveSchema() and NewSession()
// ============================================================================

// ValuePlacement selects where the Value column goes in a derived schema.
type ValuePlacement int

const (
	// ValueFixed puts Value at index 2 regardless of dimension count,
	// inserting a gap column when fewer than one dimension precedes it.
	ValueFixed ValuePlacement = iota
	// ValueAfterDimensions appends Value after every dimension column.
	ValueAfterDimensions
)

// ParseValuePlacement maps a config string to a placement. Unknown → ValueFixed.
func ParseValuePlacement(s string) ValuePlacement {
	if s == "append" || s == "after-dimensions" {
		return ValueAfterDimensions
	}
	return ValueFixed
}

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Placement    ValuePlacement
	MultiValued  map[string]bool // dimensions allowing more than one chosen value
	Logger       *slog.Logger
	QueryTimeout time.Duration // 0 = caller's context only
	EventLimit   int           // max queued events before the oldest are dropped
}

// WithValuePlacement sets where DeriveSchema places the Value column.
func WithValuePlacement(p ValuePlacement) Option {
	return func(c *config) {
		c.Placement = p
	}
}

// WithMultiValued replaces the set of multi-select dimensions.
func WithMultiValued(names ...string) Option {
	return func(c *config) {
		c.MultiValued = make(map[string]bool, len(names))
		for _, n := range names {
			c.MultiValued[n] = true
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithQueryTimeout bounds every store call made by a Session.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) {
		c.QueryTimeout = d
	}
}

// WithEventLimit caps the session event queue.
func WithEventLimit(n int) Option {
	return func(c *config) {
		c.EventLimit = n
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Placement:   ValueFixed,
		MultiValued: map[string]bool{schema.PropertyDimension: true},
		Logger:      slog.Default(),
		EventLimit:  1024,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
