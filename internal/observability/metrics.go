package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_http_requests_total",
			Help: "Total number of HTTP requests processed by the signaling service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signaling_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaling_ws_active_connections",
			Help: "Number of live signaling connections.",
		},
	)
	relayEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_relay_envelopes_total",
			Help: "Total number of relay envelopes by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signaling_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		relayEnvelopesTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Relay envelope outcomes.
const (
	OutcomeForwarded  = "forwarded"
	OutcomeDropped    = "dropped"
	OutcomeMalformed  = "malformed"
	OutcomeUnroutable = "unroutable"
)

func IncWSActive() { wsActiveConnections.Inc() }

func DecWSActive() { wsActiveConnections.Dec() }

func IncRelayEnvelope(typ, outcome string) {
	relayEnvelopesTotal.WithLabelValues(typ, outcome).Inc()
}

func IncAMQPPublishError() { amqpPublishErrorsTotal.Inc() }
