package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// redirectRoute is the catch-all short code route
const redirectRoute = "/:code"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorty_http_requests_total",
			Help: "HTTP requests partitioned by method, route template and status",
		},
		[]string{"method", "route", "status"},
	)

	// Redirects are expected in single digit milliseconds, so the low buckets are finer than DefBuckets
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shorty_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shorty_http_inflight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	redirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorty_redirects_total",
			Help: "Short code resolutions partitioned by outcome: redirected, not_found, gone, error",
		},
		[]string{"outcome"},
	)
)

// Metrics records request counts, latencies and redirect outcomes. Requests
// that match no route are labelled "unmatched" so probing random paths cannot
// grow the label set.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		if route == redirectRoute && c.Method() == fiber.MethodGet {
			redirectsTotal.WithLabelValues(redirectOutcome(status)).Inc()
		}

		return err
	}
}

func redirectOutcome(status int) string {
	switch {
	case status >= 300 && status < 400:
		return "redirected"
	case status == fiber.StatusNotFound:
		return "not_found"
	case status == fiber.StatusGone:
		return "gone"
	default:
		return "error"
	}
}
