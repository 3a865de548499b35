package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

func TestRebuildMinimalRow(t *testing.T) {
	row, err := Project(store.RawRow{"Timestamp": "0", "Value": "x", "UserName": "bob"}, DeriveSchema(nil))
	require.NoError(t, err)

	c, err := Rebuild(row, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", c.Value)
	assert.Equal(t, "bob", c.Author)
	assert.Equal(t, int64(0), c.Timestamp)
	assert.Equal(t, 0, c.Measures.Len())
}

func TestRebuildMissingMandatoryColumn(t *testing.T) {
	sch := DeriveSchema(nil)
	tests := []struct {
		missing string
		raw     store.RawRow
	}{
		{"UserName", store.RawRow{"Timestamp": "0", "Value": "x"}},
		{"Value", store.RawRow{"Timestamp": "0", "UserName": "bob"}},
		{"Timestamp", store.RawRow{"Value": "x", "UserName": "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.missing, func(t *testing.T) {
			row, err := Project(tt.raw, sch)
			require.NoError(t, err)

			_, err = Rebuild(row, nil)
			assert.ErrorIs(t, err, ErrIncompleteRow)
			var ire *IncompleteRowError
			require.ErrorAs(t, err, &ire)
			assert.Equal(t, tt.missing, ire.Column)
		})
	}
}

func TestRebuildMeasures(t *testing.T) {
	dims := []string{"Property", "Region", "Channel", "Segment"}
	row, err := Project(store.RawRow{
		"Property":  "acme",
		"Region":    "EU",
		"Channel":   "",
		"Value":     "blue",
		"UserName":  "alice",
		"Timestamp": "5",
	}, DeriveSchema(dims))
	require.NoError(t, err)

	c, err := Rebuild(row, schema.Dimensions(dims))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Measures.Len(), "Property, empty and absent cells are not measures")
	assert.True(t, c.Measures.Contains(schema.NewMeasure(schema.NewDimension("Region"), "EU")))
	assert.Equal(t, int64(5), c.Timestamp)
}

func TestClusterRoundTrip(t *testing.T) {
	dims := []string{"Property", "Region", "Channel"}
	original := schema.NewCluster("blue", []schema.Measure{
		schema.NewMeasure(schema.NewDimension("Region"), "EU"),
		schema.NewMeasure(schema.NewDimension("Channel"), "web"),
	}, "alice", 17000000000000123)

	raw := ClusterRow("acme", original, 3)
	assert.Equal(t, "3", raw["Ordinal"])
	assert.Equal(t, "acme", raw["Property"])

	row, err := Project(raw, DeriveSchema(dims))
	require.NoError(t, err)

	rebuilt, err := Rebuild(row, schema.Dimensions(dims))
	require.NoError(t, err)
	assert.True(t, original.Equal(*rebuilt))
}

func TestClusterRowOmissions(t *testing.T) {
	raw := ClusterRow("", schema.NewCluster("x", nil, "bob", 0), -1)
	assert.Equal(t, store.RawRow{"Value": "x", "UserName": "bob", "Timestamp": "0"}, raw)
}

func TestClusterRowKeepsPropertyKey(t *testing.T) {
	c := schema.NewCluster("x", []schema.Measure{
		schema.NewMeasure(schema.NewDimension("Property"), "other"),
		schema.NewMeasure(schema.NewDimension("Region"), ""),
		schema.NewMeasure(schema.NewDimension("Channel"), "web"),
	}, "bob", 5)

	raw := ClusterRow("acme", c, 0)
	assert.Equal(t, store.RawRow{
		"Ordinal":   "0",
		"Property":  "acme",
		"Channel":   "web",
		"Value":     "x",
		"UserName":  "bob",
		"Timestamp": "5",
	}, raw)
}
