// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/louisbranch/baranex/internal/platform/httpx"
)

const namespace = "baranex"

// Registry holds the collectors Baranex reports.
type Registry struct {
	reg             *prometheus.Registry
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	smsDeliveries   *prometheus.CounterVec
	realtimeDropped prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// NewRegistry builds a registry with process and Go collectors attached.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		smsDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_deliveries_total",
			Help:      "SMS deliveries by outcome.",
		}, []string{"outcome"}),
		realtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_dropped_changes_total",
			Help:      "Changes dropped because a subscriber fell behind.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Stats cache lookups by result.",
		}, []string{"result"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.latency,
		r.smsDeliveries,
		r.realtimeDropped,
		r.cacheLookups,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Middleware records request counts and latency keyed by chi route pattern.
func (r *Registry) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			rec := &httpx.StatusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, req)

			route := "unmatched"
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := rec.Status
			if status == 0 {
				status = http.StatusOK
			}
			r.requests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			r.latency.WithLabelValues(req.Method, route).Observe(time.Since(started).Seconds())
		})
	}
}

// ObserveSMS counts sent and failed deliveries of one broadcast.
func (r *Registry) ObserveSMS(sent, failed int) {
	if r == nil {
		return
	}
	r.smsDeliveries.WithLabelValues("sent").Add(float64(sent))
	r.smsDeliveries.WithLabelValues("failed").Add(float64(failed))
}

// IncRealtimeDropped counts one dropped realtime change.
func (r *Registry) IncRealtimeDropped() {
	if r == nil {
		return
	}
	r.realtimeDropped.Inc()
}

// ObserveCache counts a cache hit or miss.
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}
