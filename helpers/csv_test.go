package helpers

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/myriad/engine"
)

func readSample(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/sample.csv")
	require.NoError(t, err)
	return data
}

func TestParseRows(t *testing.T) {
	rows, headers, err := ParseRows([]byte("Property, Region ,Value\nacme, EU ,x\nglobex\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Property", "Region", "Value"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "EU", rows[0]["Region"])

	_, ok := rows[1]["Region"]
	assert.False(t, ok, "short rows leave trailing columns absent")
}

func TestParseRowsEmpty(t *testing.T) {
	_, _, err := ParseRows(nil)
	assert.Error(t, err)
}

func TestDimensionColumns(t *testing.T) {
	dims := DimensionColumns([]string{"Ordinal", "Property", "Region", "Value", "UserName", "Timestamp", ""})
	assert.Equal(t, []string{"Property", "Region"}, dims)
}

func TestLoadProperties(t *testing.T) {
	props, dims, err := LoadProperties(readSample(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Property", "Region", "Channel"}, dims)

	require.Len(t, props, 2)
	assert.Equal(t, "acme", props[0].Key)
	require.Len(t, props[0].Clusters, 2)

	c := props[0].Clusters[0]
	assert.Equal(t, "blue", c.Value)
	assert.Equal(t, "alice", c.Author)
	assert.Equal(t, int64(17000000000000000), c.Timestamp)
	assert.Equal(t, 2, c.Measures.Len())

	assert.Equal(t, 1, props[1].Clusters[1].Measures.Len(), "empty Region cell is not a measure")
}

func TestLoadPropertiesRequiresProperty(t *testing.T) {
	_, _, err := LoadProperties([]byte("Region,Value,UserName,Timestamp\nEU,x,bob,0\n"))
	assert.ErrorContains(t, err, "Property")
}

func TestLoadPropertiesBadTimestamp(t *testing.T) {
	_, _, err := LoadProperties([]byte("Property,Value,UserName,Timestamp\nacme,x,bob,yesterday\n"))
	assert.ErrorIs(t, err, engine.ErrParse)
}

func TestLoadPropertiesMissingAuthor(t *testing.T) {
	_, _, err := LoadProperties([]byte("Property,Value,Timestamp\nacme,x,0\n"))
	assert.ErrorIs(t, err, engine.ErrIncompleteRow)
}

func TestWriteTableCSV(t *testing.T) {
	td := &engine.TableData{
		Columns: []engine.Column{{Label: "Ordinal"}, {Label: "Region"}, {Label: "Value"}},
		Rows:    [][]string{{"0", "EU", "a,b"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, td))
	assert.Equal(t, "Ordinal,Region,Value\n0,EU,\"a,b\"\n", buf.String())
}
