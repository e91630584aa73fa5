package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	CustomersIssued       prometheus.Counter
	SlugCollisions        prometheus.Counter
	IssuanceExhausted     prometheus.Counter
	PunchesRecorded       *prometheus.CounterVec
	PunchesRejected       prometheus.Counter
	RedemptionsRequested  prometheus.Counter
	RedemptionTransitions *prometheus.CounterVec
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CustomersIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_customers_issued_total",
			Help: "Customer identities issued.",
		}),
		SlugCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_slug_collisions_total",
			Help: "Slug candidates rejected because they were already reserved.",
		}),
		IssuanceExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_identity_issuance_exhausted_total",
			Help: "Issuance attempts that ran out of slug retries.",
		}),
		PunchesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_punches_recorded_total",
			Help: "Punches appended to the ledger.",
		}, []string{"kind"}),
		PunchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_punches_rejected_cooldown_total",
			Help: "QR punches refused by the cooldown policy.",
		}),
		RedemptionsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "punchcard_redemptions_requested_total",
			Help: "Redemption requests created.",
		}),
		RedemptionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_redemption_transitions_total",
			Help: "Redemption status changes applied by operators.",
		}, []string{"from", "to"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "punchcard_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// The helpers below are nil-safe so services can run without metrics wired in.

func (m *Metrics) IncCustomersIssued() {
	if m != nil {
		m.CustomersIssued.Inc()
	}
}

func (m *Metrics) IncSlugCollision() {
	if m != nil {
		m.SlugCollisions.Inc()
	}
}

func (m *Metrics) IncIssuanceExhausted() {
	if m != nil {
		m.IssuanceExhausted.Inc()
	}
}

func (m *Metrics) IncPunch(kind string) {
	if m != nil {
		m.PunchesRecorded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncPunchRejected() {
	if m != nil {
		m.PunchesRejected.Inc()
	}
}

func (m *Metrics) IncRedemptionRequested() {
	if m != nil {
		m.RedemptionsRequested.Inc()
	}
}

func (m *Metrics) IncRedemptionTransition(from, to string) {
	if m != nil {
		m.RedemptionTransitions.WithLabelValues(from, to).Inc()
	}
}
