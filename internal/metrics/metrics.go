package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation attempts by outcome:
	// reserved, rate_limited, in_progress, insufficient, rejected, error.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evently_reservations_total",
		Help: "Reservation attempts by outcome",
	}, []string{"outcome"})

	// ConfirmationsTotal counts finalized confirmation jobs by resulting status.
	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evently_confirmations_total",
		Help: "Confirmation jobs by terminal status",
	}, []string{"status"})

	// CancellationsTotal counts booking cancellations.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_cancellations_total",
		Help: "Booking cancellations",
	})

	// AvailabilityCacheRequests counts availability lookups by cache result.
	AvailabilityCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evently_availability_cache_requests_total",
		Help: "Availability cache lookups by result (hit/miss)",
	}, []string{"result"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evently_http_requests_total",
		Help: "HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evently_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// HTTP is a gin middleware recording request counts and latency.
func HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
