package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for index observability, exposed through the
// server's /metrics endpoint. Rebuild metrics are driven by the indexer.
var (
	// TripleCount tracks the number of triples currently indexed.
	TripleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "semdex",
		Subsystem: "triples",
		Name:      "indexed",
		Help:      "Number of triples currently in the index",
	})

	// identifierCount tracks the number of registered identifiers.
	identifierCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "semdex",
		Subsystem: "identifiers",
		Name:      "registered",
		Help:      "Number of identifiers currently registered",
	})

	// identifierLookups counts Resolve calls.
	identifierLookups = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semdex",
		Subsystem: "identifiers",
		Name:      "lookups_total",
		Help:      "Total identifier resolve calls",
	})

	// identifierHits counts successful Resolve calls.
	identifierHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semdex",
		Subsystem: "identifiers",
		Name:      "hits_total",
		Help:      "Total identifier resolve calls that found a location",
	})

	// RebuildsTotal counts full index rebuilds.
	RebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semdex",
		Subsystem: "indexer",
		Name:      "rebuilds_total",
		Help:      "Total full vault rebuilds",
	})

	// RebuildDuration observes full rebuild latency.
	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semdex",
		Subsystem: "indexer",
		Name:      "rebuild_duration_seconds",
		Help:      "Full vault rebuild latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)
