// Package metrics exposes Prometheus instrumentation for the search
// pipeline: per-stage latency and the fetch concurrency gauge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmbedLatencySeconds measures Service.Embed latency, including any
	// cache lookups. Labels: outcome (lru_hit, disk_hit, miss, error).
	EmbedLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchllama",
		Subsystem: "embed",
		Name:      "latency_seconds",
		Help:      "Embedding request latency by cache outcome",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"})

	// SearchLatencySeconds measures web-search provider call latency.
	SearchLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchllama",
		Subsystem: "websearch",
		Name:      "latency_seconds",
		Help:      "Web-search provider request latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"})

	// FetchLatencySeconds measures per-page browser fetch latency.
	FetchLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchllama",
		Subsystem: "fetch",
		Name:      "latency_seconds",
		Help:      "Page fetch latency by outcome",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"outcome"})

	// FetchInFlight tracks the number of page fetches currently running
	// against the concurrency semaphore.
	FetchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "searchllama",
		Subsystem: "fetch",
		Name:      "in_flight",
		Help:      "Number of page fetches currently in flight",
	})

	// SearchRequestsTotal counts orchestrator.Search invocations by terminal
	// outcome (ok, model_error).
	SearchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchllama",
		Subsystem: "orchestrator",
		Name:      "requests_total",
		Help:      "Total search requests by terminal outcome",
	}, []string{"outcome"})

	// SummaryGatedTotal counts requests by whether a summary was launched,
	// either by the confidence gate or at end of fan-out (the label does not
	// tell the two apart).
	SummaryGatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchllama",
		Subsystem: "orchestrator",
		Name:      "summary_gated_total",
		Help:      "Total search requests by whether a summary was launched",
	}, []string{"fired"})
)
