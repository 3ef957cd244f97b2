// Package prometheus records pipeline metrics in a private Prometheus registry.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const namespace = "docqa"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder exposes stage latencies and question outcomes.
type Recorder struct {
	registry  *prom.Registry
	stages    *prom.HistogramVec
	questions *prom.CounterVec
	requests  *prom.CounterVec
	latency   *prom.HistogramVec
}

// NewRecorder creates a recorder with its own registry, including Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		stages: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage", "outcome"}),
		questions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions processed, by outcome.",
		}, []string{"outcome"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prom.DefBuckets,
		}, []string{"route"}),
	}
	r.registry.MustRegister(
		r.stages, r.questions, r.requests, r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage, outcome string, d time.Duration) {
	r.stages.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// IncQuestions counts one question by outcome.
func (r *Recorder) IncQuestions(outcome string) {
	r.questions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(route string, code int, d time.Duration) {
	r.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.latency.WithLabelValues(route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
