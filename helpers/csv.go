package helpers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// ============================================================================
// CSV HELPER — Fixture rows in, result tables out
// ============================================================================
// A fixture is a CSV whose header names columns exactly as the store would:
// Property, any dimensions, Value, UserName and Timestamp (epoch ticks).
// Each data row is one cluster recorded against its Property.
// ============================================================================

var systemColumns = map[string]bool{
	schema.OrdinalColumn:   true,
	schema.ValueColumn:     true,
	schema.UserNameColumn:  true,
	schema.TimestampColumn: true,
}

// ParseRows parses CSV bytes into raw rows keyed by header name.
// Returns the trimmed header alongside.
func ParseRows(data []byte) ([]store.RawRow, []string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []store.RawRow
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make(store.RawRow, len(headers))
		for i, val := range rec {
			if i >= len(headers) {
				break
			}
			row[headers[i]] = strings.TrimSpace(val)
		}
		rows = append(rows, row)
	}

	return rows, headers, nil
}

// DimensionColumns returns the header entries that are not system columns,
// in header order.
func DimensionColumns(headers []string) []string {
	var dims []string
	for _, h := range headers {
		if h != "" && !systemColumns[h] {
			dims = append(dims, h)
		}
	}
	return dims
}

// LoadProperties parses a fixture into properties, grouped by the Property
// column in first-seen order, plus the fixture's dimension list.
// Any row that fails projection or reconstruction fails the whole load.
func LoadProperties(data []byte) ([]store.Property, []string, error) {
	raws, headers, err := ParseRows(data)
	if err != nil {
		return nil, nil, err
	}

	dims := DimensionColumns(headers)
	if !containsString(dims, schema.PropertyDimension) {
		return nil, nil, fmt.Errorf("fixture has no %q column", schema.PropertyDimension)
	}

	sch := engine.DeriveSchema(dims)
	table, rejected := engine.ProjectAll(raws, sch)
	if len(rejected) > 0 {
		return nil, nil, fmt.Errorf("fixture: %w", rejected[0])
	}

	var props []store.Property
	index := make(map[string]int)
	dimensions := schema.Dimensions(dims)

	for i, row := range table.Rows {
		c, err := engine.Rebuild(row, dimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("fixture row %d: %w", i, err)
		}
		key, _ := row.Text(schema.PropertyDimension)
		pos, ok := index[key]
		if !ok {
			pos = len(props)
			index[key] = pos
			props = append(props, store.Property{Key: key})
		}
		props[pos].Clusters = append(props[pos].Clusters, *c)
	}

	return props, dims, nil
}

// WriteTableCSV writes a rendered table with a header row.
func WriteTableCSV(w io.Writer, td *engine.TableData) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(td.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
