package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
	"github.com/spektr-org/myriad/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// downClient fails every query.
type downClient struct {
	store.Client
}

func (downClient) Query(context.Context, store.Query) ([]store.RawRow, error) {
	return nil, errors.New("connection refused")
}

func newTestBackend() *memory.Store {
	region := func(v string) schema.Measure { return schema.NewMeasure(schema.NewDimension("Region"), v) }
	return memory.New([]string{"Property", "Region"}, []store.Property{
		{Key: "acme", Clusters: []schema.Cluster{
			schema.NewCluster("blue", []schema.Measure{region("EU")}, "alice", 10),
			schema.NewCluster("red", []schema.Measure{region("US")}, "bob", 20),
		}},
	})
}

func createTestRouter(t *testing.T, client store.Client) *gin.Engine {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := engine.NewSession(client, engine.WithLogger(quiet))
	require.NoError(t, s.Reset(context.Background()))
	return NewRouter(s)
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reader = bytes.NewReader(jsonBody)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	w := do(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "POST", "/api/query", nil)

	w := do(router, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "myriad_queries_total")
}

func TestListDimensions(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "POST", "/api/selections/Region", SelectionRequest{Action: "add", Value: "US"})

	w := do(router, "GET", "/api/dimensions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Dimensions []DimensionView `json:"dimensions"`
		Columns    []string        `json:"columns"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Dimensions, 2)
	assert.Equal(t, "Region", resp.Dimensions[1].Name)
	assert.Equal(t, []string{"EU", "US"}, resp.Dimensions[1].Vocabulary)
	assert.Equal(t, []string{"US"}, resp.Dimensions[1].Selected)
	assert.Equal(t, []string{"Ordinal", "Property", "Value", "Region", "UserName", "Timestamp"}, resp.Columns)
}

func TestUpdateSelectionValidation(t *testing.T) {
	router := createTestRouter(t, newTestBackend())

	w := do(router, "POST", "/api/selections/Region", SelectionRequest{Action: "toggle"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/selections/Planet", SelectionRequest{Action: "add", Value: "Mars"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectionQueryAndResults(t *testing.T) {
	router := createTestRouter(t, newTestBackend())

	w := do(router, "POST", "/api/selections/Region", SelectionRequest{Action: "add", Value: "EU"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dimension":"Region","changed":true}`, w.Body.String())

	w = do(router, "POST", "/api/query", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var qr QueryResponse
	decode(t, w, &qr)
	require.Len(t, qr.Table.Rows, 1)
	assert.Equal(t, "blue", qr.Table.Rows[0][2])

	w = do(router, "GET", "/api/results", nil)
	var td engine.TableData
	decode(t, w, &td)
	assert.Equal(t, qr.Table.Rows, td.Rows)

	w = do(router, "POST", "/api/selections/Region", SelectionRequest{Action: "clear"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, "POST", "/api/query", nil)
	decode(t, w, &qr)
	assert.Len(t, qr.Table.Rows, 2)
}

func TestQueryStoreDown(t *testing.T) {
	router := createTestRouter(t, downClient{Client: newTestBackend()})
	w := do(router, "POST", "/api/query", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProposeValue(t *testing.T) {
	router := createTestRouter(t, newTestBackend())

	w := do(router, "POST", "/api/selections/Region/propose", ProposeRequest{Value: "LATAM"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"dimension":{"name":"Region"},"value":"LATAM"}`, w.Body.String())

	w = do(router, "POST", "/api/selections/Region/propose", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCluster(t *testing.T) {
	router := createTestRouter(t, newTestBackend())

	w := do(router, "GET", "/api/results/0/cluster", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(router, "POST", "/api/query", nil)
	w = do(router, "GET", "/api/results/1/cluster", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var c schema.Cluster
	decode(t, w, &c)
	assert.Equal(t, "red", c.Value)
	assert.Equal(t, "bob", c.Author)
	assert.Equal(t, int64(20), c.Timestamp)

	w = do(router, "GET", "/api/results/abc/cluster", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditProperty(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "POST", "/api/query", nil)

	w := do(router, "POST", "/api/results/0/property", PropertyEditRequest{Author: "carol", Value: "navy"})
	require.Equal(t, http.StatusOK, w.Code)

	var p store.Property
	decode(t, w, &p)
	require.Len(t, p.Clusters, 2)
	assert.Equal(t, "red", p.Clusters[0].Value)
	assert.Equal(t, "navy", p.Clusters[1].Value)
	assert.Equal(t, "carol", p.Clusters[1].Author)
	assert.NotZero(t, p.Clusters[1].Timestamp)
	assert.Equal(t, 1, p.Clusters[1].Measures.Len())
}

func TestEditPropertyRemove(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "POST", "/api/query", nil)

	w := do(router, "POST", "/api/results/1/property", PropertyEditRequest{Author: "carol", Remove: true})
	require.Equal(t, http.StatusOK, w.Code)

	var p store.Property
	decode(t, w, &p)
	require.Len(t, p.Clusters, 1)
	assert.Equal(t, "blue", p.Clusters[0].Value)
}

func TestEditPropertyRequiresAuthor(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "POST", "/api/query", nil)
	w := do(router, "POST", "/api/results/0/property", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDrainEvents(t *testing.T) {
	router := createTestRouter(t, newTestBackend())
	do(router, "GET", "/api/events", nil)

	do(router, "POST", "/api/selections/Region", SelectionRequest{Action: "add", Value: "EU"})
	w := do(router, "GET", "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []engine.Event `json:"events"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, engine.EventSelectionChanged, resp.Events[0].Kind)
	assert.Equal(t, []string{"EU"}, resp.Events[0].Values)

	w = do(router, "GET", "/api/events", nil)
	decode(t, w, &resp)
	assert.Empty(t, resp.Events)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&engine.IncompleteRowError{Column: "UserName"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(engine.ErrDuplicateDimension))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestEditPropertyRejectsInvalidMeasures(t *testing.T) {
	backend := newTestBackend()
	router := createTestRouter(t, backend)
	do(router, "POST", "/api/query", nil)

	for name, measures := range map[string]map[string]string{
		"property key": {"Property": "other", "Region": "EU"},
		"empty value":  {"Region": ""},
		"empty name":   {"": "EU"},
	} {
		w := do(router, "POST", "/api/results/0/property", PropertyEditRequest{Author: "carol", Measures: measures})
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	rows, err := backend.Query(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "acme", row[schema.PropertyDimension])
	}
}

func TestEditPropertyReplacesMeasures(t *testing.T) {
	backend := memory.New([]string{"Property", "Region", "Channel"}, []store.Property{
		{Key: "acme", Clusters: []schema.Cluster{
			schema.NewCluster("blue", []schema.Measure{schema.NewMeasure(schema.NewDimension("Region"), "EU")}, "alice", 10),
		}},
	})
	router := createTestRouter(t, backend)
	do(router, "POST", "/api/query", nil)

	w := do(router, "POST", "/api/results/0/property", PropertyEditRequest{
		Author:   "carol",
		Measures: map[string]string{"Region": "US", "Channel": "web"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var p store.Property
	decode(t, w, &p)
	require.Len(t, p.Clusters, 1)
	items := p.Clusters[0].Measures.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Channel", items[0].Dimension.Name)
	assert.Equal(t, "Region", items[1].Dimension.Name)
	assert.Equal(t, "US", items[1].Value)

	rows, err := backend.Query(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "acme", rows[0][schema.PropertyDimension])
}
