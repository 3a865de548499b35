package engine

import (
	"strconv"

	"github.com/spektr-org/myriad/epoch"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// CLUSTER RECONSTRUCTOR — Projected row → schema.Cluster
// ============================================================================
// Measures: every non-Property dimension with a non-empty cell.
// Value, UserName and Timestamp are mandatory.
// Timestamps go back through epoch so Rebuild and ClusterRow are symmetric.
// ============================================================================

// Rebuild reconstructs the Cluster a row was produced from.
func Rebuild(row Row, dimensions []schema.Dimension) (*schema.Cluster, error) {
	value, ok := row.Text(schema.ValueColumn)
	if !ok {
		return nil, &IncompleteRowError{Column: schema.ValueColumn}
	}
	author, ok := row.Text(schema.UserNameColumn)
	if !ok {
		return nil, &IncompleteRowError{Column: schema.UserNameColumn}
	}
	ts, ok := row.Time(schema.TimestampColumn)
	if !ok {
		return nil, &IncompleteRowError{Column: schema.TimestampColumn}
	}

	var measures schema.MeasureSet
	for _, d := range dimensions {
		if d.IsProperty() {
			continue
		}
		if v, ok := row.Text(d.Name); ok && v != "" {
			measures.Add(schema.NewMeasure(d, v))
		}
	}

	return &schema.Cluster{
		Value:     value,
		Measures:  measures,
		Author:    author,
		Timestamp: epoch.FromTime(ts),
	}, nil
}

// ClusterRow serializes a cluster recorded against property into the raw
// row shape the store returns. ordinal < 0 omits the Ordinal cell.
// Property and empty-valued measures are not serialized; the Property cell
// always carries the key the cluster is stored under.
func ClusterRow(property string, c schema.Cluster, ordinal int) store.RawRow {
	row := store.RawRow{
		schema.ValueColumn:     c.Value,
		schema.UserNameColumn:  c.Author,
		schema.TimestampColumn: strconv.FormatInt(c.Timestamp, 10),
	}
	if property != "" {
		row[schema.PropertyDimension] = property
	}
	if ordinal >= 0 {
		row[schema.OrdinalColumn] = strconv.Itoa(ordinal)
	}
	for _, m := range c.Measures.Items() {
		if m.Dimension.IsProperty() || m.Value == "" {
			continue
		}
		row[m.Dimension.Name] = m.Value
	}
	return row
}
