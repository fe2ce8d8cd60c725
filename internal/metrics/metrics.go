// Package metrics records diagnosis, acquisition, export and backend metrics on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/climatewash/internal/export"
	"github.com/jonathan/climatewash/internal/llm"
	"github.com/jonathan/climatewash/internal/transcript"
	"github.com/jonathan/climatewash/internal/types"
)

// Namespace prefixes every metric name
const Namespace = "climatewash"

var (
	// latency buckets in milliseconds; model calls are slow
	latencyBuckets = []float64{
		100, 250, 500,
		1000, 2500, 5000,
		10000, 30000, 60000,
	}

	scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
)

// Recorder owns the registry and the collectors registered on it
type Recorder struct {
	registry *prometheus.Registry

	diagnoses          *prometheus.CounterVec
	scores             *prometheus.HistogramVec
	transcriptAttempts *prometheus.CounterVec
	exports            *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	backendErrors      *prometheus.CounterVec
}

// New creates a Recorder on a fresh registry, including the process and Go runtime collectors
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		diagnoses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "diagnoses_total",
				Help:      "Total number of completed diagnoses",
			},
			[]string{"content_type", "risk"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "score",
				Help:      "Scores of successful diagnoses",
				Buckets:   scoreBuckets,
			},
			[]string{"content_type"},
		),
		transcriptAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transcript_attempts_total",
				Help:      "Caption cascade attempts by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "exports_total",
				Help:      "Spreadsheet exports by outcome and the stage they ended in",
			},
			[]string{"outcome", "stage"},
		),
		backendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "backend_latency_ms",
				Help:      "Evaluation backend call latency in milliseconds",
				Buckets:   latencyBuckets,
			},
			[]string{"provider", "operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backend_errors_total",
				Help:      "Evaluation backend calls that produced an error result",
			},
			[]string{"provider", "operation", "code"},
		),
	}
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveDiagnosis records one finished diagnosis
func (r *Recorder) ObserveDiagnosis(result types.EvaluationResult) {
	contentType := string(result.ContentType)
	if contentType == "" {
		contentType = "unknown"
	}
	r.diagnoses.WithLabelValues(contentType, result.OverallRisk).Inc()
	if result.Success {
		r.scores.WithLabelValues(contentType).Observe(float64(result.Score))
	}
}

// ObserveTranscriptAttempt records one cascade tier attempt
func (r *Recorder) ObserveTranscriptAttempt(tier, outcome string) {
	r.transcriptAttempts.WithLabelValues(tier, outcome).Inc()
}

// ObserveExport records the end state of one export
func (r *Recorder) ObserveExport(outcome, stage string) {
	r.exports.WithLabelValues(outcome, stage).Inc()
}

// ObserveBackendCall records the latency of one backend call and its error code, if any
func (r *Recorder) ObserveBackendCall(provider, operation string, elapsed time.Duration, errorCode string) {
	r.backendLatency.WithLabelValues(provider, operation).Observe(float64(elapsed.Milliseconds()))
	if errorCode != "" {
		r.backendErrors.WithLabelValues(provider, operation, errorCode).Inc()
	}
}

var (
	_ llm.Observer        = (*Recorder)(nil)
	_ transcript.Observer = (*Recorder)(nil)
	_ export.Observer     = (*Recorder)(nil)
)
