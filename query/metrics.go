package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for query observability, exposed through the
// server's /metrics endpoint.
var (
	// queriesTotal counts queries executed through the service.
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semdex",
		Subsystem: "query",
		Name:      "executed_total",
		Help:      "Total queries executed",
	})

	// queryErrors counts queries that failed to parse, translate, or evaluate.
	queryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semdex",
		Subsystem: "query",
		Name:      "errors_total",
		Help:      "Total queries that returned an error",
	})

	// queryDuration observes end-to-end query latency.
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semdex",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "End-to-end query latency in seconds",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)
