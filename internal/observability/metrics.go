package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var connectionStates = []string{"disconnected", "connecting", "connected", "reconnecting"}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_http_requests_total",
			Help: "Total number of debug HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_session_http_request_duration_seconds",
			Help:    "Debug HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	connectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_session_connection_state",
			Help: "1 for the current hub connection state, 0 otherwise.",
		},
		[]string{"state"},
	)
	reconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_session_reconnect_attempts_total",
			Help: "Total number of automatic reconnect attempts.",
		},
	)
	inboundEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_inbound_events_total",
			Help: "Total number of inbound hub events by target.",
		},
		[]string{"event"},
	)
	policyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_policy_rejections_total",
			Help: "Total number of outbound actions rejected by the effective policy.",
		},
		[]string{"reason"},
	)
	configDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_config_fetch_degraded_total",
			Help: "Total number of configuration sources that failed to load.",
		},
		[]string{"source"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_session_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		connectionState,
		reconnectAttemptsTotal,
		inboundEventsTotal,
		policyRejectionsTotal,
		configDegradedTotal,
		amqpPublishErrorsTotal,
	)
}

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

// SetConnectionState marks state as the only active connection state.
func SetConnectionState(state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		connectionState.WithLabelValues(s).Set(v)
	}
}

func IncReconnectAttempt() {
	reconnectAttemptsTotal.Inc()
}

func IncInboundEvent(event string) {
	inboundEventsTotal.WithLabelValues(event).Inc()
}

func IncPolicyRejection(reason string) {
	policyRejectionsTotal.WithLabelValues(reason).Inc()
}

func IncConfigDegraded(source string) {
	configDegradedTotal.WithLabelValues(source).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
