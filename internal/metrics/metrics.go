package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "invoice_extract"

// Metrics holds the Prometheus collectors for the pipeline and worker queue.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	documents     *prometheus.CounterVec
	deduplicated  prometheus.Counter
	failures      *prometheus.CounterVec
	duration      prometheus.Histogram
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
	jobs          *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid double registration on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents run through field extraction, by resulting status",
		}, []string{"status"}),
		deduplicated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_deduplicated_total",
			Help:      "Documents whose content hash was already stored",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_failures_total",
			Help:      "Documents that failed, by pipeline stage",
		}, []string{"stage"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time taken to process one document",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in the worker queue",
		}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_active_workers",
			Help:      "Workers currently running a job",
		}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_jobs_total",
			Help:      "Jobs finished by the worker queue, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) DocumentProcessed(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) DocumentDeduplicated() {
	if m == nil {
		return
	}
	m.deduplicated.Inc()
}

func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

func (m *Metrics) JobFinished(err error) {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobs.WithLabelValues(result).Inc()
}
