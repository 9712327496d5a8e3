// Package metrics exposes Prometheus instruments for the ingestion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsIngestor/internal/ports"
)

const namespace = "news_ingestor"

// Job outcomes as reported by the worker pool.
const (
	OutcomeStaged           = "staged"
	OutcomeSkipped          = "skipped"
	OutcomeExtractionFailed = "extraction_failed"
	OutcomeRetried          = "retried"
	OutcomeFailed           = "failed"
)

// Metrics holds the pipeline instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	jobs        *prometheus.CounterVec
	extractors  *prometheus.CounterVec
	enqueues    *prometheus.CounterVec
	feedPolls   *prometheus.CounterVec
	jobDuration prometheus.Histogram
}

var _ ports.Recorder = (*Metrics)(nil)

// New registers all instruments together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Processed ingest jobs by outcome.",
		}, []string{"outcome"}),
		extractors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Successful extractions by extractor stage.",
		}, []string{"extractor"}),
		enqueues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueues_total",
			Help:      "Enqueue requests by result (new or coalesced).",
		}, []string{"result"}),
		feedPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_polls_total",
			Help:      "Feed polls by source and result.",
		}, []string{"source", "result"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall-clock time spent processing one job attempt.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobProcessed records one job attempt. All methods are safe on a nil receiver.
func (m *Metrics) JobProcessed(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
	m.jobDuration.Observe(took.Seconds())
}

func (m *Metrics) Extracted(extractor string) {
	if m == nil {
		return
	}
	m.extractors.WithLabelValues(extractor).Inc()
}

func (m *Metrics) Enqueued(created bool) {
	if m == nil {
		return
	}
	result := "coalesced"
	if created {
		result = "new"
	}
	m.enqueues.WithLabelValues(result).Inc()
}

func (m *Metrics) FeedPolled(source string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.feedPolls.WithLabelValues(source, result).Inc()
}
