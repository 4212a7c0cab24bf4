package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	attempts        prometheus.Histogram
	estimatedCost   *prometheus.CounterVec
	pagesProcessed  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by engine and status.",
		},
		[]string{"service", "engine", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight OCR requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	attempts := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "document_process_attempts",
			Help:      "Engine attempts needed per document.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)
	estimatedCost := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "estimated_cost_usd_total",
			Help:      "Cumulative estimated OCR spend by engine.",
		},
		[]string{"service", "engine"},
	)
	pagesProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Subsystem: "worker",
			Name:      "pages_processed_total",
			Help:      "Cumulative pages processed by engine.",
		},
		[]string{"service", "engine"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, attempts, estimatedCost, pagesProcessed)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		attempts:        attempts,
		estimatedCost:   estimatedCost,
		pagesProcessed:  pagesProcessed,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

// FinishDocument records one completed pipeline run from its outcome.
func (m *WorkerMetrics) FinishDocument(service string, outcome domain.ProcessingOutcome) {
	m.processInFlight.Dec()

	status := "success"
	if !outcome.Success {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, outcome.EngineUsed, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(outcome.ProcessingTime.Seconds())
	m.attempts.Observe(float64(outcome.Attempts))
}

// ObserveUsage tracks spend and page volume as usage records are written.
func (m *WorkerMetrics) ObserveUsage(service string, engine domain.EngineID, pages int, cost float64) {
	m.estimatedCost.WithLabelValues(service, string(engine)).Add(cost)
	m.pagesProcessed.WithLabelValues(service, string(engine)).Add(float64(pages))
}
