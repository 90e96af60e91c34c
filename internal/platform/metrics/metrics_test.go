package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	router := chi.NewRouter()
	router.Use(reg.Middleware())
	router.Get("/api/v1/residents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", reg.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/residents/abc", nil))
	reg.ObserveSMS(3, 1)
	reg.IncRealtimeDropped()
	reg.ObserveCache(true)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	text := string(body)

	for _, want := range []string{
		`baranex_http_requests_total{method="GET",route="/api/v1/residents/{id}",status="404"} 1`,
		`baranex_sms_deliveries_total{outcome="sent"} 3`,
		`baranex_sms_deliveries_total{outcome="failed"} 1`,
		`baranex_realtime_dropped_changes_total 1`,
		`baranex_cache_lookups_total{result="hit"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	t.Parallel()

	var reg *Registry
	reg.ObserveSMS(1, 1)
	reg.IncRealtimeDropped()
	reg.ObserveCache(false)
}
