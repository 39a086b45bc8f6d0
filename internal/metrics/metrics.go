package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/asset-server/internal/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors used by the asset server.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDurationSec     *prometheus.HistogramVec
	ResponseBytesTotal     *prometheus.CounterVec
	DirectoriesCreated     prometheus.Counter
	BrowserLaunchFailures  prometheus.Counter
	BrowserLaunchSucceeded prometheus.Counter

	registry *prometheus.Registry
	routes   map[string]struct{}
}

// New registers collectors on registry. Requests whose first path segment
// matches one of routes ("models", "js") are labelled "/<segment>/*".
func New(registry *prometheus.Registry, routes []string) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_server_requests_total",
			Help: "Total number of asset server HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asset_server_request_duration_seconds",
			Help:    "Asset request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ResponseBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_server_response_bytes_total",
			Help: "Total number of body bytes served.",
		}, []string{"route"}),
		DirectoriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asset_server_directories_created_total",
			Help: "Asset directories created at startup.",
		}),
		BrowserLaunchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asset_server_browser_launch_failures_total",
			Help: "Total number of failed browser launches.",
		}),
		BrowserLaunchSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asset_server_browser_launches_total",
			Help: "Total number of successful browser launches.",
		}),
		registry: registry,
		routes:   make(map[string]struct{}, len(routes)),
	}

	for _, route := range routes {
		first, _, _ := strings.Cut(strings.Trim(route, "/"), "/")
		m.routes[first] = struct{}{}
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ResponseBytesTotal,
		m.DirectoriesCreated,
		m.BrowserLaunchFailures,
		m.BrowserLaunchSucceeded,
	)

	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := httpx.NewResponseRecorder(w, nil)

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.Status())
		route := m.normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
		m.ResponseBytesTotal.WithLabelValues(route).Add(float64(wrapped.Written()))
	})
}

func (m *Metrics) normalizeRoute(path string) string {
	if path == "/" {
		return "/"
	}

	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if _, ok := m.routes[first]; ok {
		return "/" + first + "/*"
	}
	return "other"
}
