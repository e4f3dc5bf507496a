package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"volrv/internal/backtest"
)

// Metrics holds all Prometheus metrics for the backtest service.
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
	apiErrorsTotal       *prometheus.CounterVec

	backtestRuns     *prometheus.CounterVec
	backtestDuration *prometheus.HistogramVec
	tradesTotal      *prometheus.CounterVec
	rollEventsTotal  *prometheus.CounterVec
	dataGapDays      *prometheus.CounterVec
	suspectAttrDays  *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method", "endpoint"},
		),
		apiErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"endpoint", "error_type"},
		),
		backtestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_runs_total",
				Help: "Total number of backtest runs",
			},
			[]string{"underlying", "status"},
		),
		backtestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtest_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"underlying"},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_trades_total",
				Help: "Total number of trades emitted by backtest runs",
			},
			[]string{"underlying", "trade_type"},
		),
		rollEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_roll_events_total",
				Help: "Total number of roll events emitted by backtest runs",
			},
			[]string{"underlying", "trigger"},
		),
		dataGapDays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_data_gap_days_total",
				Help: "Total number of trading dates skipped for missing data",
			},
			[]string{"underlying"},
		),
		suspectAttrDays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_suspect_attribution_days_total",
				Help: "Total number of dates with attribution residual beyond tolerance",
			},
			[]string{"underlying"},
		),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.apiErrorsTotal,
		m.backtestRuns,
		m.backtestDuration,
		m.tradesTotal,
		m.rollEventsTotal,
		m.dataGapDays,
		m.suspectAttrDays,
	)

	return m
}

// MetricsMiddleware creates a Prometheus metrics middleware for gin.
func (m *Metrics) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.httpRequestsInFlight.WithLabelValues(c.Request.Method, path).Inc()
		defer m.httpRequestsInFlight.WithLabelValues(c.Request.Method, path).Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)

		if c.Writer.Status() >= 400 {
			errorType := "client_error"
			if c.Writer.Status() >= 500 {
				errorType = "server_error"
			}
			m.apiErrorsTotal.WithLabelValues(path, errorType).Inc()
		}
	}
}

// PrometheusHandler returns the Prometheus metrics handler.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a completed or failed backtest run. The trade, roll and
// flag counters only advance for completed runs, where the result is trusted.
func (m *Metrics) RecordRun(underlying, status string, elapsed time.Duration) {
	m.backtestRuns.WithLabelValues(underlying, status).Inc()
	m.backtestDuration.WithLabelValues(underlying).Observe(elapsed.Seconds())
}

// RecordResult folds one run's artifact counts into the counters.
func (m *Metrics) RecordResult(result *backtest.Result) {
	for _, t := range result.Trades {
		m.tradesTotal.WithLabelValues(result.Underlying, string(t.Type)).Inc()
	}
	for _, ev := range result.RollEvents {
		m.rollEventsTotal.WithLabelValues(result.Underlying, string(ev.Trigger)).Inc()
	}
	if n := result.Summary.SkippedNoDataCount; n > 0 {
		m.dataGapDays.WithLabelValues(result.Underlying).Add(float64(n))
	}
	if n := result.Summary.SuspectAttributionDays; n > 0 {
		m.suspectAttrDays.WithLabelValues(result.Underlying).Add(float64(n))
	}
}
