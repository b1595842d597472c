package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	assetsServed     *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmcproxy_upstream_requests_total",
				Help: "Total number of upstream API requests",
			},
			[]string{"endpoint", "status"},
		),
		upstreamFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmcproxy_upstream_failures_total",
				Help: "Total number of upstream API requests that failed",
			},
			[]string{"endpoint"},
		),
		upstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmcproxy_upstream_latency_seconds",
				Help:    "Upstream API call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmcproxy_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmcproxy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"route"},
		),
		assetsServed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmcproxy_assets_served",
				Help:    "Number of asset records in a response",
				Buckets: []float64{0, 1, 3, 10, 25, 50, 100},
			},
			[]string{"route"},
		),
	}
}

// ObserveUpstreamRequest records one upstream call. Status 0 means no
// response was received.
func (c *Collector) ObserveUpstreamRequest(endpoint string, status int, duration time.Duration, err error) {
	c.upstreamRequests.WithLabelValues(endpoint, statusLabel(status)).Inc()
	if err != nil {
		c.upstreamFailures.WithLabelValues(endpoint).Inc()
	}
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one served HTTP request
func (c *Collector) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, statusLabel(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveAssetsServed records how many records a route returned
func (c *Collector) ObserveAssetsServed(route string, count int) {
	c.assetsServed.WithLabelValues(route).Observe(float64(count))
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
