package engine

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every typed error below unwraps to one of them.
var (
	ErrParse              = errors.New("cell parse failed")
	ErrSchemaMismatch     = errors.New("dimension not in schema")
	ErrIncompleteRow      = errors.New("row missing mandatory column")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrDuplicateDimension = errors.New("dimension selected more than once")
	ErrUnknownDimension   = errors.New("unknown dimension")
	ErrNoRow              = errors.New("no such result row")
)

// ParseError reports a raw cell that could not be coerced to its column type.
// Row is the position in the input batch, or -1 when projecting a single row.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: cannot parse %q: %v", e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// SchemaMismatchError reports a selection on a dimension the store no longer lists.
type SchemaMismatchError struct {
	Dimension string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("dimension %q not in dimension list; term ignored", e.Dimension)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// IncompleteRowError reports a row missing a mandatory system column.
type IncompleteRowError struct {
	Column string
}

func (e *IncompleteRowError) Error() string {
	return fmt.Sprintf("row has no %q cell", e.Column)
}

func (e *IncompleteRowError) Unwrap() error { return ErrIncompleteRow }

// StoreUnavailableError wraps a failed or timed-out store call.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreUnavailableError{Op: op, Err: err}
}
