package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/myriad/schema"
)

var region = schema.NewDimension("Region")

func regionVocab(values ...string) schema.DimensionValues {
	if len(values) == 0 {
		values = []string{"US", "EU", "APAC"}
	}
	return schema.NewDimensionValues(region, values)
}

func TestSelectionAddIsIdempotent(t *testing.T) {
	s := NewSelection(regionVocab(), true)

	assert.True(t, s.Add("EU"))
	before := s.Snapshot()
	assert.False(t, s.Add("EU"))
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, s.Len())
}

func TestSelectionRemoveAfterAddRestoresState(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	s.Add("US")
	before := s.Snapshot()

	s.Add("EU")
	s.Remove("EU")
	assert.Equal(t, before, s.Snapshot())

	empty := NewSelection(regionVocab(), false)
	empty.Add("APAC")
	empty.Remove("APAC")
	assert.Empty(t, empty.Snapshot())
	assert.Equal(t, SelectionEmpty, empty.State())
}

func TestSelectionRejectsUnknownValue(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	assert.False(t, s.Add("Mars"))
	assert.Equal(t, SelectionEmpty, s.State())
}

func TestSelectionEmptyVocabularyRejectsAdd(t *testing.T) {
	s := NewSelection(schema.NewDimensionValues(region, []string{}), true)
	assert.False(t, s.Add("EU"))
	assert.Zero(t, s.Len())

	s.Update(regionVocab("EU"))
	assert.True(t, s.Add("EU"))
}

func TestSelectionSingleValuedLastWriteWins(t *testing.T) {
	s := NewSelection(regionVocab(), false)
	s.Add("US")
	s.Add("EU")
	assert.Equal(t, []string{"EU"}, s.Snapshot())
	assert.True(t, s.Contains("EU"))
	assert.False(t, s.Contains("US"))
}

func TestSelectionMultiValuedKeepsOrder(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	s.Add("US")
	s.Add("EU")
	s.Add("APAC")
	s.Remove("EU")
	assert.Equal(t, []string{"US", "APAC"}, s.Snapshot())

	// index is rebuilt after a middle removal
	assert.True(t, s.Remove("APAC"))
	assert.Equal(t, []string{"US"}, s.Snapshot())
}

func TestSelectionLifecycle(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	assert.Equal(t, SelectionEmpty, s.State())

	s.Add("US")
	assert.Equal(t, SelectionPopulated, s.State())

	s.Clear()
	assert.Equal(t, SelectionEmpty, s.State())
	assert.False(t, s.Remove("US"))
}

func TestSelectionValuesAndMeasure(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	_, ok := s.Measure()
	assert.False(t, ok)

	s.Add("US")
	s.Add("EU")
	dv := s.Values()
	assert.Equal(t, region, dv.Dimension)
	assert.Equal(t, []string{"US", "EU"}, dv.Values)

	m, ok := s.Measure()
	assert.True(t, ok)
	assert.Equal(t, schema.NewMeasure(region, "EU"), m)
}

func TestSelectionSnapshotIsCopy(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	s.Add("US")
	snap := s.Snapshot()
	snap[0] = "changed"
	assert.Equal(t, []string{"US"}, s.Snapshot())
}

func TestSelectionVocabularySorted(t *testing.T) {
	s := NewSelection(regionVocab(), false)
	assert.Equal(t, []string{"APAC", "EU", "US"}, s.Vocabulary())
}

func TestSelectionUpdate(t *testing.T) {
	s := NewSelection(regionVocab(), true)
	s.Add("US")
	s.Add("EU")

	t.Run("other dimension ignored", func(t *testing.T) {
		other := schema.NewDimensionValues(schema.NewDimension("Channel"), []string{"web"})
		assert.False(t, s.Update(other))
		assert.Equal(t, []string{"APAC", "EU", "US"}, s.Vocabulary())
	})

	t.Run("nil values ignored", func(t *testing.T) {
		assert.False(t, s.Update(schema.DimensionValues{Dimension: region}))
	})

	t.Run("stale choices pruned", func(t *testing.T) {
		assert.True(t, s.Update(regionVocab("EU", "LATAM")))
		assert.Equal(t, []string{"EU"}, s.Snapshot())
		assert.Equal(t, []string{"EU", "LATAM"}, s.Vocabulary())
		assert.True(t, s.Add("LATAM"))
		assert.False(t, s.Add("US"))
	})
}

func TestSelectionPropose(t *testing.T) {
	s := NewSelection(regionVocab(), false)

	_, ok := s.Propose("")
	assert.False(t, ok)

	m, ok := s.Propose("MEA")
	assert.True(t, ok)
	assert.Equal(t, schema.NewMeasure(region, "MEA"), m)
	assert.Equal(t, SelectionEmpty, s.State(), "proposing does not select")
}
