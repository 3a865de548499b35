package influx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// FLUX — Query text for the event measurement
// ============================================================================
// Every user-supplied string is escaped before it is placed in a Flux string
// literal or a delete predicate. Tag keys are addressed as r["key"].
// ============================================================================

var fluxEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)

// quote renders s as a Flux string literal.
func quote(s string) string {
	return `"` + fluxEscaper.Replace(s) + `"`
}

func (s *Store) measurementFilter() string {
	return fmt.Sprintf(`r._measurement == %s and r._field == %s`, quote(s.measurement), quote(valueField))
}

// tagKeysFlux lists the tag keys present on the measurement.
func (s *Store) tagKeysFlux() string {
	return fmt.Sprintf(`import "influxdata/influxdb/schema"

schema.tagKeys(
  bucket: %s,
  predicate: (r) => r._measurement == %s,
  start: %s
)`, quote(s.bucket), quote(s.measurement), s.start)
}

// tagValuesFlux lists the distinct values of one tag on the measurement.
func (s *Store) tagValuesFlux(tag string) string {
	return fmt.Sprintf(`import "influxdata/influxdb/schema"

schema.tagValues(
  bucket: %s,
  tag: %s,
  predicate: (r) => r._measurement == %s,
  start: %s
)`, quote(s.bucket), quote(tag), quote(s.measurement), s.start)
}

// termPredicate renders one term as an OR of equality tests.
func termPredicate(t store.Term) string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = fmt.Sprintf(`r[%s] == %s`, quote(t.Dimension), quote(v))
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

// queryFlux selects the points matching q, oldest first.
// Terms are emitted in dimension order so equal queries render identically.
func (s *Store) queryFlux(q store.Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", quote(s.bucket))
	fmt.Fprintf(&b, "  |> range(start: %s)\n", s.start)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", s.measurementFilter())

	filters := q.Filters()
	dims := make([]string, 0, len(filters))
	for d := range filters {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	for _, d := range dims {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", termPredicate(store.Term{Dimension: d, Values: filters[d]}))
	}

	b.WriteString("  |> group()\n")
	b.WriteString(`  |> sort(columns: ["_time"])`)
	return b.String()
}

// propertiesFlux selects every point recorded against keys.
func (s *Store) propertiesFlux(keys []string) string {
	return s.queryFlux(store.Query{Terms: []store.Term{{Dimension: s.propertyTag, Values: keys}}})
}

// deletePredicate matches the points of one cluster within its timestamp
// window. Delete predicates only support tag equality joined by AND.
func (s *Store) deletePredicate(key, author string) string {
	return fmt.Sprintf(`_measurement=%s AND %s=%s AND %s=%s`,
		quote(s.measurement),
		s.propertyTag, quote(key),
		s.authorTag, quote(author))
}
