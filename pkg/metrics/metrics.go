// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimilarQueriesTotal tracks similarity lookups by outcome
	SimilarQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "similarity",
			Name:      "queries_total",
			Help:      "Total number of similarity lookups by outcome",
		},
		[]string{"tenant_id", "outcome"},
	)

	// SimilarFallbackTotal tracks lookups that needed the relaxed phase
	SimilarFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "similarity",
			Name:      "fallback_total",
			Help:      "Total number of similarity lookups that ran the relaxed phase",
		},
		[]string{"tenant_id"},
	)

	// SimilarCandidatesScored tracks how many candidates each phase scored
	SimilarCandidatesScored = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "similarity",
			Name:      "candidates_scored",
			Help:      "Number of candidates scored per phase",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"phase"},
	)

	// SearchDuration tracks property search latency in seconds
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Duration of property searches in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tenant_id", "geo"},
	)

	// CacheHitsTotal tracks similar/autocomplete cache hits and misses
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by surface and result",
		},
		[]string{"surface", "result"},
	)

	// EventsEmittedTotal tracks property lifecycle events published to Kafka
	EventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Property lifecycle events emitted by type and status",
		},
		[]string{"event_type", "status"},
	)
)
