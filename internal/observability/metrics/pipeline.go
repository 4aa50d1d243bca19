package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

// PipelineMetrics tracks OCR pipeline executions. It satisfies
// ports.PipelineObserver so the use case layer stays free of prometheus.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	jobsTotal      *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobsInFlight   prometheus.Gauge
	pagesProcessed *prometheus.HistogramVec
	queueLag       *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total finished OCR jobs by terminal status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "OCR job duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Number of OCR jobs currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pagesProcessed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "pages_processed",
			Help:      "Distribution of processed pages per job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job enqueue and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, pagesProcessed, queueLag)

	return &PipelineMetrics{
		registry:       registry,
		service:        service,
		jobsTotal:      jobsTotal,
		jobDuration:    jobDuration,
		jobsInFlight:   jobsInFlight,
		pagesProcessed: pagesProcessed,
		queueLag:       queueLag,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) JobStarted() {
	m.jobsInFlight.Inc()
}

func (m *PipelineMetrics) JobFinished(status domain.JobStatus, duration time.Duration, pages int) {
	m.jobsInFlight.Dec()
	m.jobsTotal.WithLabelValues(m.service, string(status)).Inc()
	m.jobDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
	if pages > 0 {
		m.pagesProcessed.WithLabelValues(m.service).Observe(float64(pages))
	}
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
