// Package metrics exports Prometheus metrics for the recommendation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shlrec"

// Outcome labels for recommend requests.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeUpstream  = "upstream_error"
	OutcomeIntegrity = "integrity_error"
	OutcomeError     = "error"
)

// Operation labels for embedding latency.
const (
	EmbedQuery = "query"
	EmbedBatch = "batch"
)

// Recorder holds the service metrics on its own registry. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	recommendLatency  prometheus.Histogram
	recommendRequests *prometheus.CounterVec
	embedLatency      *prometheus.HistogramVec
	storeSize         prometheus.Gauge
	storeDimensions   prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry, including Go and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{registry: registry}

	r.recommendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "latency_seconds",
		Help:      "End-to-end recommend latency in seconds, embedding included",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	r.recommendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "requests_total",
		Help:      "Recommend calls by outcome",
	}, []string{"outcome"})
	r.embedLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "latency_seconds",
		Help:      "Embedding call latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})
	r.storeSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "records",
		Help:      "Rows in the loaded vector store",
	})
	r.storeDimensions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "dimensions",
		Help:      "Embedding dimension of the loaded vector store",
	})

	registry.MustRegister(
		r.recommendLatency,
		r.recommendRequests,
		r.embedLatency,
		r.storeSize,
		r.storeDimensions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRecommend records one recommend call.
func (r *Recorder) ObserveRecommend(outcome string, latency time.Duration) {
	if r == nil {
		return
	}
	r.recommendLatency.Observe(latency.Seconds())
	r.recommendRequests.WithLabelValues(outcome).Inc()
}

// ObserveEmbed records one embedding call; operation is EmbedQuery or EmbedBatch.
func (r *Recorder) ObserveEmbed(operation string, latency time.Duration) {
	if r == nil {
		return
	}
	r.embedLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// SetStore records the shape of the loaded store.
func (r *Recorder) SetStore(records, dimensions int) {
	if r == nil {
		return
	}
	r.storeSize.Set(float64(records))
	r.storeDimensions.Set(float64(dimensions))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
