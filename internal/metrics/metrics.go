// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface consumed by handlers
type Recorder interface {
	RecordLogin(provider, result string)
	RecordSignup(result string)
}

// Collector collects Prometheus metrics for the auth surface
type Collector struct {
	registry     *prometheus.Registry
	logins       *prometheus.CounterVec
	signups      *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	httpDuration prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectadmin_logins_total",
			Help: "Login attempts by provider and result",
		}, []string{"provider", "result"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectadmin_signups_total",
			Help: "Signup attempts by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectadmin_http_responses_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "projectadmin_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.logins, c.signups, c.httpStatus, c.httpDuration)

	return c
}

// RecordLogin records a login attempt outcome
func (c *Collector) RecordLogin(provider, result string) {
	c.logins.WithLabelValues(provider, result).Inc()
}

// RecordSignup records a signup attempt outcome
func (c *Collector) RecordSignup(result string) {
	c.signups.WithLabelValues(result).Inc()
}

// Handler returns the /metrics endpoint handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// statusWriter captures the response status for the HTTP metrics middleware
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	if sw.status == 0 {
		sw.status = statusCode
	}
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// HTTPMiddleware records status codes and latency for every request
func (c *Collector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		c.httpStatus.WithLabelValues(strconv.Itoa(sw.status)).Inc()
		c.httpDuration.Observe(time.Since(start).Seconds())
	})
}
