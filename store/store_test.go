package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/myriad/schema"
)

var rows = []RawRow{
	{"Property": "cpu", "Region": "EU", "Value": "1"},
	{"Property": "cpu", "Region": "US", "Value": "2"},
	{"Property": "mem", "Region": "EU", "Value": "3"},
	{"Property": "disk", "Value": "4"},
}

func TestFilterOrWithinAndAcross(t *testing.T) {
	q := Query{Terms: []Term{
		{Dimension: "Property", Values: []string{"cpu", "mem"}},
		{Dimension: "Region", Values: []string{"EU"}},
	}}

	got := Filter(rows, q)
	assert.Equal(t, []RawRow{rows[0], rows[2]}, got)
}

func TestFilterEmptyQueryReturnsAll(t *testing.T) {
	q := Query{Terms: []Term{{Dimension: "Region"}}}
	assert.True(t, q.IsEmpty())
	assert.Equal(t, rows, Filter(rows, q))
}

func TestFilterMissingCellReadsEmpty(t *testing.T) {
	q := Query{Terms: []Term{{Dimension: "Region", Values: []string{""}}}}
	// an absent cell reads as "", so "" matches it explicitly
	assert.Equal(t, []RawRow{rows[3]}, Filter(rows, q))
}

func TestQueryFiltersCopiesValues(t *testing.T) {
	vals := []string{"cpu"}
	q := Query{Terms: []Term{{Dimension: "Property", Values: vals}, {Dimension: "Region"}}}

	f := q.Filters()
	f["Property"][0] = "changed"

	assert.Equal(t, "cpu", vals[0])
	assert.NotContains(t, f, "Region")
	assert.True(t, q.HasTerm("Property"))
	assert.False(t, q.HasTerm("Region"))
}

func TestPropertyOperationReplace(t *testing.T) {
	old := schema.NewCluster("1", nil, "bob", 0)
	updated := schema.NewCluster("2", nil, "bob", 10)

	op := NewPropertyOperation("cpu")
	replaced := op.Replace(old, updated)

	assert.NotEqual(t, uuid.Nil, replaced.ID)
	assert.Equal(t, op.ID, replaced.ID)
	assert.Empty(t, op.Add, "Replace must not mutate the receiver")
	assert.Equal(t, []schema.Cluster{old}, replaced.Remove)
	assert.Equal(t, []schema.Cluster{updated}, replaced.Add)
}

func TestPropertyResponseFirst(t *testing.T) {
	var nilResp *PropertyResponse
	_, ok := nilResp.First()
	assert.False(t, ok)

	p, ok := (&PropertyResponse{Properties: []Property{{Key: "cpu"}}}).First()
	assert.True(t, ok)
	assert.Equal(t, "cpu", p.Key)
}
