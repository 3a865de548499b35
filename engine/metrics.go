package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myriad_queries_total",
		Help: "Dimension queries by outcome",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "myriad_query_duration_seconds",
		Help:    "Store query plus projection time",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	rowsProjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "myriad_rows_projected_total",
		Help: "Result rows projected into the typed table",
	})

	rowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myriad_row_errors_total",
		Help: "Rows rejected during projection or reconstruction, by kind",
	}, []string{"kind"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myriad_store_errors_total",
		Help: "Failed store calls by operation",
	}, []string{"op"})
)
