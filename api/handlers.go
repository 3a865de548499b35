// Package api exposes a Session over HTTP for a UI shell.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/schema"
	"github.com/spektr-org/myriad/store"
)

// SelectionRequest changes one dimension's selection.
type SelectionRequest struct {
	Action string `json:"action" binding:"required,oneof=add remove clear"`
	Value  string `json:"value"`
}

// ProposeRequest carries an ad hoc value typed by the operator.
type ProposeRequest struct {
	Value string `json:"value" binding:"required"`
}

// PropertyEditRequest replaces (or removes) the cluster behind a row.
// Measures, when present, replace the cluster's measures.
type PropertyEditRequest struct {
	Author   string            `json:"author" binding:"required"`
	Value    string            `json:"value"`
	Measures map[string]string `json:"measures"`
	Remove   bool              `json:"remove"`
}

// DimensionView is one dimension as the shell renders it.
type DimensionView struct {
	Name       string   `json:"name"`
	Vocabulary []string `json:"vocabulary"`
	Selected   []string `json:"selected"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Table    *engine.TableData `json:"table"`
	Summary  *engine.TextData  `json:"summary"`
	Rejected []string          `json:"rejected,omitempty"`
	Dropped  []string          `json:"dropped,omitempty"`
}

// statusFor maps engine error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownDimension), errors.Is(err, engine.ErrNoRow):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrIncompleteRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrDuplicateDimension):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid row", "details": err.Error()})
		return 0, false
	}
	return row, true
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListDimensions returns every dimension with its vocabulary and selection.
func ListDimensions(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		selections := s.Selections()
		out := make([]DimensionView, 0, len(selections))
		for _, sel := range selections {
			vocab, err := s.Vocabulary(sel.Dimension.Name)
			if err != nil {
				fail(c, err)
				return
			}
			out = append(out, DimensionView{
				Name:       sel.Dimension.Name,
				Vocabulary: vocab,
				Selected:   sel.Values,
			})
		}
		c.JSON(http.StatusOK, gin.H{"dimensions": out, "columns": s.Schema().Names()})
	}
}

// RefreshMetadata re-fetches vocabularies.
func RefreshMetadata(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Refresh(c.Request.Context()); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
	}
}

// UpdateSelection adds, removes or clears values on one dimension.
func UpdateSelection(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		dim := c.Param("dimension")
		var (
			changed bool
			err     error
		)
		switch req.Action {
		case "add":
			changed, err = s.Select(dim, req.Value)
		case "remove":
			changed, err = s.Deselect(dim, req.Value)
		case "clear":
			err = s.ClearSelection(dim)
			changed = err == nil
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dimension": dim, "changed": changed})
	}
}

// ProposeValue queues an ad hoc value as a new measure.
func ProposeValue(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProposeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
		m, err := s.Propose(c.Param("dimension"), req.Value)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

// RunQuery queries the store with the current selections.
func RunQuery(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Query(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}

		resp := QueryResponse{Table: s.TableData("Results"), Summary: s.TextData()}
		for _, r := range res.Rejected {
			resp.Rejected = append(resp.Rejected, r.Error())
		}
		for _, d := range res.Dropped {
			resp.Dropped = append(resp.Dropped, d.Dimension)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetResults returns the last result table.
func GetResults(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.TableData("Results"))
	}
}

// GetCluster reconstructs the cluster behind a result row.
func GetCluster(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}
		cluster, err := s.Cluster(row)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cluster)
	}
}

// EditProperty replaces the cluster behind a row and writes it back.
func EditProperty(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}
		var req PropertyEditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
		if err := validateMeasures(req.Measures); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid measures", "details": err.Error()})
			return
		}

		updated, err := s.Edit(c.Request.Context(), row, func(er engine.EditRequest) (store.PropertyOperation, bool) {
			key := er.ValueMap[schema.PropertyDimension]
			op := store.NewPropertyOperation(key)
			if req.Remove {
				op.Remove = []schema.Cluster{er.Cluster}
				return op, true
			}
			op.Stamp = true
			return op.Replace(er.Cluster, editedCluster(er.Cluster, req)), true
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// validateMeasures rejects measures a stored cluster cannot carry: the
// subject is the property key, and empty cells never round-trip.
func validateMeasures(measures map[string]string) error {
	for dim, v := range measures {
		switch {
		case dim == "":
			return errors.New("measure with empty dimension")
		case dim == schema.PropertyDimension:
			return fmt.Errorf("%q is the property key, not a measure", dim)
		case v == "":
			return fmt.Errorf("measure %q has an empty value", dim)
		}
	}
	return nil
}

// editedCluster builds the replacement; the store stamps its time.
// Measures are added in dimension order.
func editedCluster(original schema.Cluster, req PropertyEditRequest) schema.Cluster {
	measures := original.Measures.Items()
	if req.Measures != nil {
		dims := make([]string, 0, len(req.Measures))
		for dim := range req.Measures {
			dims = append(dims, dim)
		}
		sort.Strings(dims)

		measures = make([]schema.Measure, 0, len(dims))
		for _, dim := range dims {
			measures = append(measures, schema.NewMeasure(schema.NewDimension(dim), req.Measures[dim]))
		}
	}
	value := original.Value
	if req.Value != "" {
		value = req.Value
	}
	return schema.NewCluster(value, measures, req.Author, 0)
}

// DrainEvents returns and clears queued session events.
func DrainEvents(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		events := s.Events().Drain()
		if events == nil {
			events = []engine.Event{}
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "dropped": s.Events().Dropped()})
	}
}
