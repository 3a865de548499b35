package schema

import "encoding/json"

// Cluster is one value recorded against a subject, together with the
// measures it applies under, its author and its tick timestamp.
// Clusters are never mutated; edits produce new ones.
type Cluster struct {
	Value     string     `json:"value"`
	Measures  MeasureSet `json:"measures"`
	Author    string     `json:"author"`
	Timestamp int64      `json:"timestamp"`
}

// NewCluster creates a Cluster, collapsing duplicate measures.
func NewCluster(value string, measures []Measure, author string, timestamp int64) Cluster {
	return Cluster{
		Value:     value,
		Measures:  NewMeasureSet(measures...),
		Author:    author,
		Timestamp: timestamp,
	}
}

// Equal compares value, author, timestamp and measure set.
func (c Cluster) Equal(other Cluster) bool {
	return c.Value == other.Value &&
		c.Author == other.Author &&
		c.Timestamp == other.Timestamp &&
		c.Measures.Equal(other.Measures)
}

// MarshalJSON encodes the set as a plain list.
func (s MeasureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a list, collapsing duplicates.
func (s *MeasureSet) UnmarshalJSON(data []byte) error {
	var items []Measure
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewMeasureSet(items...)
	return nil
}
