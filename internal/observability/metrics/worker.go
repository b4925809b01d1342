package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks document ingestion in the worker: outcome counts,
// processing time, documents in progress and the wait between upload and
// pickup.
type WorkerMetrics struct {
	registry *prometheus.Registry

	documents *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	queueLag  prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	constLabels := prometheus.Labels{"service": service}
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "documents_total",
			Help:        "Documents processed by the worker, by outcome.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "duration_seconds",
			Help:        "Extract, chunk, embed and upsert time per document.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}, []string{"status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "in_flight",
			Help:        "Documents currently being processed.",
			ConstLabels: constLabels,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "queue_lag_seconds",
			Help:        "Delay between upload and the start of processing.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 30, 60, 300, 900},
			ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(m.documents, m.duration, m.inFlight, m.queueLag)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.inFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.inFlight.Dec()
	status := "ready"
	if err != nil {
		status = "failed"
	}
	m.documents.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
