package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequests counts served requests by route pattern and status.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamevault_http_requests_total",
		Help: "Total number of HTTP requests by route and status code",
	},
	[]string{"route", "status"},
)

// HTTPDuration observes request latency by route pattern.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gamevault_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

// NewRegistry returns a registry holding the Go runtime, process, HTTP and
// broker service metrics.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(HTTPRequests, HTTPDuration)
	service.RegisterMetrics(registry)
	return registry
}

// MetricsHandler serves the registry in the Prometheus exposition format.
//
//	@Summary		Prometheus metrics
//	@Tags			Health
//	@Produce		plain
//	@Success		200	{string}	string	"Metrics in text exposition format"
//	@Router			/metrics [get].
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MetricsMiddleware records HTTPRequests and HTTPDuration. It must wrap the
// ServeMux directly: the mux sets r.Pattern on the request it is handed.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }
