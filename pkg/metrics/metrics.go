package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Sync metrics
	WebhooksReceived *prometheus.CounterVec
	LogsProcessed    *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	PendingLogs      prometheus.Gauge
	CRMCallbacks     *prometheus.CounterVec
	TokenRefreshes   *prometheus.CounterVec
	OwnerDecisions   *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Sync metrics
		WebhooksReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadsync_webhooks_received_total",
				Help: "Total number of inbound lead webhooks",
			},
			[]string{"status"}, // success, skipped, error
		),
		LogsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadsync_logs_processed_total",
				Help: "Total number of integration log entries processed",
			},
			[]string{"outcome"}, // success, failed, deferred, skipped
		),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadsync_sweep_duration_seconds",
			Help:    "Duration of retry sweeps over pending integration logs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		PendingLogs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leadsync_pending_logs",
			Help: "Pending integration log entries seen at the start of the last sweep",
		}),
		CRMCallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadsync_crm_status_updates_total",
				Help: "Total number of status updates sent back to the CRM",
			},
			[]string{"result"}, // ok, error
		),
		TokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadsync_token_refreshes_total",
				Help: "Total number of OAuth access token refreshes",
			},
			[]string{"result"},
		),
		OwnerDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadsync_owner_decisions_total",
				Help: "Owner reconciliation decisions by kind",
			},
			[]string{"decision"},
		),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/v1/admin/leads/:id

			if req.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(req.Method, path).Observe(float64(req.ContentLength))
			}

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordWebhook counts one webhook by response status
func (m *Metrics) RecordWebhook(status string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(status).Inc()
}

// RecordLogOutcome counts one processed log entry
func (m *Metrics) RecordLogOutcome(outcome string) {
	if m == nil {
		return
	}
	m.LogsProcessed.WithLabelValues(outcome).Inc()
}

// RecordSweep records one sweep over pending entries
func (m *Metrics) RecordSweep(pending int, duration time.Duration) {
	if m == nil {
		return
	}
	m.PendingLogs.Set(float64(pending))
	m.SweepDuration.Observe(duration.Seconds())
}

// RecordCRMCallback counts one outbound status update
func (m *Metrics) RecordCRMCallback(success bool) {
	if m == nil {
		return
	}
	m.CRMCallbacks.WithLabelValues(result(success)).Inc()
}

// RecordTokenRefresh counts one access token refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result(success)).Inc()
}

// RecordOwnerDecision counts one owner reconciliation decision
func (m *Metrics) RecordOwnerDecision(decision string) {
	if m == nil {
		return
	}
	m.OwnerDecisions.WithLabelValues(decision).Inc()
}

func result(success bool) string {
	if success {
		return "ok"
	}
	return "error"
}
