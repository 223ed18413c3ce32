package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	acks     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifyd_http_requests_total",
				Help: "HTTP requests served, by route and status code.",
			},
			[]string{"method", "route", "status_code"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notifyd_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifyd_logins_total",
				Help: "Form logins, by result.",
			},
			[]string{"result"},
		),
		acks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifyd_notifications_marked_read_total",
				Help: "Notifications marked read, by scope.",
			},
			[]string{"scope"},
		),
	}
}

// middleware records request counts and latency per route.
func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}
