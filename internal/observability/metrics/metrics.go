package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	modelCallsTotal   *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	modelRetriesTotal *prometheus.CounterVec

	measurementsTotal *prometheus.CounterVec
	truthVerdicts     *prometheus.CounterVec
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "produce",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "produce",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "produce",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	modelCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "produce",
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Total upstream model calls by outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	modelCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "produce",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Upstream model call duration in seconds, retries included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"service", "operation"},
	)
	modelRetriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "produce",
			Subsystem: "model",
			Name:      "retries_total",
			Help:      "Total retried model call attempts.",
		},
		[]string{"service", "operation"},
	)
	measurementsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "produce",
			Subsystem: "measure",
			Name:      "measurements_total",
			Help:      "Total completed measurements by object type.",
		},
		[]string{"service", "object_type"},
	)
	truthVerdicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "produce",
			Subsystem: "measure",
			Name:      "truth_verdicts_total",
			Help:      "Total truth analysis verdicts by outcome.",
		},
		[]string{"service", "verdict"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		modelCallsTotal,
		modelCallDuration,
		modelRetriesTotal,
		measurementsTotal,
		truthVerdicts,
	)

	return &ServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		modelCallsTotal:   modelCallsTotal,
		modelCallDuration: modelCallDuration,
		modelRetriesTotal: modelRetriesTotal,
		measurementsTotal: measurementsTotal,
		truthVerdicts:     truthVerdicts,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts, durations and the in-flight gauge
// for every route handled by gin.
func (m *ServerMetrics) Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next()

		m.requestTotal.WithLabelValues(
			service,
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(service, c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *ServerMetrics) RecordModelCall(service, operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.modelCallsTotal.WithLabelValues(service, operation, outcome).Inc()
	m.modelCallDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *ServerMetrics) RecordModelRetries(service, operation string, retries int) {
	if retries <= 0 {
		return
	}
	m.modelRetriesTotal.WithLabelValues(service, operation).Add(float64(retries))
}

func (m *ServerMetrics) RecordMeasurement(service, objectType string) {
	if objectType == "" {
		objectType = "unknown"
	}
	m.measurementsTotal.WithLabelValues(service, objectType).Inc()
}

func (m *ServerMetrics) RecordTruthVerdict(service string, suspicious bool) {
	verdict := "honest"
	if suspicious {
		verdict = "suspicious"
	}
	m.truthVerdicts.WithLabelValues(service, verdict).Inc()
}
