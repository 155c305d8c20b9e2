// Package metrics exposes service metrics in the Prometheus format. All
// methods are safe to call on a nil *Metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graphrag"

// Metrics holds the collectors of one service instance on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ingestedChunks       prometheus.Counter
	failedChunks         prometheus.Counter
	ingestedEntities     prometheus.Counter
	ingestedRelations    prometheus.Counter
	skippedRelationships prometheus.Counter

	finalizeProgress prometheus.Gauge
	finalizeTotal    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		ingestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Total number of chunks processed by ingestion",
		}),
		failedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failed_chunks_total",
			Help:      "Total number of chunks whose extraction failed",
		}),
		ingestedEntities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_entities_total",
			Help:      "Total number of entities written to the graph",
		}),
		ingestedRelations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_relationships_total",
			Help:      "Total number of relationships written to the graph",
		}),
		skippedRelationships: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_skipped_relationships_total",
			Help:      "Total number of relationships skipped for missing endpoints",
		}),

		finalizeProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "finalize_progress",
			Help:      "Progress of the current graph finalization, -1 after an error",
		}),
		finalizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_runs_total",
			Help:      "Finished graph finalizations by outcome",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ingestedChunks,
		m.failedChunks,
		m.ingestedEntities,
		m.ingestedRelations,
		m.skippedRelationships,
		m.finalizeProgress,
		m.finalizeTotal,
	)

	return m
}

// RegisterOracle exports the cumulative usage of client. Counters are read
// from client.GetMetrics at scrape time.
func (m *Metrics) RegisterOracle(client ai.GraphAIClient) {
	if m == nil || client == nil {
		return
	}

	counter := func(name, help string, value func(ai.ModelMetrics) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return value(client.GetMetrics())
		})
	}

	m.registry.MustRegister(
		counter("oracle_requests_total", "Total number of oracle requests", func(u ai.ModelMetrics) float64 {
			return float64(u.Requests)
		}),
		counter("oracle_input_tokens_total", "Total number of oracle input tokens", func(u ai.ModelMetrics) float64 {
			return float64(u.InputTokens)
		}),
		counter("oracle_output_tokens_total", "Total number of oracle output tokens", func(u ai.ModelMetrics) float64 {
			return float64(u.OutputTokens)
		}),
		counter("oracle_duration_seconds_total", "Total time spent waiting for the oracle", func(u ai.ModelMetrics) float64 {
			return float64(u.DurationMs) / 1000
		}),
	)
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveIngest records the outcome of one upload.
func (m *Metrics) ObserveIngest(res graph.IngestResult) {
	if m == nil {
		return
	}
	m.ingestedChunks.Add(float64(res.Chunks))
	m.failedChunks.Add(float64(res.FailedChunks))
	m.ingestedEntities.Add(float64(res.Entities))
	m.ingestedRelations.Add(float64(res.Relationships))
	m.skippedRelationships.Add(float64(res.SkippedRelationships))
}

// NotifyStatus implements session.StatusNotifier.
func (m *Metrics) NotifyStatus(ctx context.Context, st session.GraphStatus) error {
	if m == nil {
		return nil
	}
	m.finalizeProgress.Set(float64(st.Progress))
	switch st.Status {
	case session.StatusCompleted, session.StatusError:
		m.finalizeTotal.WithLabelValues(string(st.Status)).Inc()
	}
	return nil
}

// Handler serves the registry. A nil *Metrics serves an empty registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
