// Package epoch converts between integer tick offsets and absolute
// timestamps. Every timestamp that crosses the store boundary goes through
// this package, for display and for writing back.
package epoch

import (
	"fmt"
	"strconv"
	"time"
)

// ============================================================================
// EPOCH — tick offset ⇄ time.Time
// ============================================================================
// A tick is 100ns. Offsets count ticks since 1970-01-01T00:00:00Z.
// Split into seconds + remainder so the full int64 range converts without
// overflowing time.Duration.
// ============================================================================

// Tick is the unit of an epoch offset.
const Tick = 100 * time.Nanosecond

const ticksPerSecond = int64(time.Second / Tick)

// Zero is the timestamp of offset 0.
var Zero = time.Unix(0, 0).UTC()

// ToTime converts a tick offset to an absolute UTC timestamp.
func ToTime(ticks int64) time.Time {
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	return time.Unix(sec, rem*int64(Tick)).UTC()
}

// FromTime converts a timestamp to its tick offset.
// Sub-tick precision is truncated.
func FromTime(t time.Time) int64 {
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond())/int64(Tick)
}

// Parse reads a base-10 tick offset as serialized by the store.
func Parse(s string) (time.Time, error) {
	ticks, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch offset %q: %w", s, err)
	}
	return ToTime(ticks), nil
}

// Format serializes a timestamp as a base-10 tick offset.
func Format(t time.Time) string {
	return strconv.FormatInt(FromTime(t), 10)
}
