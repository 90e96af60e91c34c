package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
)

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	called := ""
	mw := func(tag string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called += tag
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called += "h"
		w.WriteHeader(http.StatusNoContent)
	}), mw("1"), nil, mw("2"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if called != "12h" {
		t.Fatalf("call order = %q, want %q", called, "12h")
	}
}

func TestRequestIDAddsHeaderWhenMissing(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("expected request id on request")
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("response id = %q, want %q", got, seen)
	}
}

func TestRequestIDKeepsIncomingHeader(t *testing.T) {
	t.Parallel()

	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("request id = %q, want %q", got, "abc")
	}
}

func TestRecoverPanicWritesJSON500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	h := RecoverPanic(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
}

func TestAccessLogRecordsStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	h := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/residents", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("status field = %v", fields["status"])
	}
	if fields["path"] != "/api/v1/residents" {
		t.Fatalf("path field = %v", fields["path"])
	}
}

func TestCORSAnswersPreflight(t *testing.T) {
	t.Parallel()

	reached := false
	h := CORS([]string{"https://baranex.example"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))
	req := httptest.NewRequest(http.MethodOptions, "/functions/ask", nil)
	req.Header.Set("Origin", "https://baranex.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if reached {
		t.Fatal("preflight should not reach handler")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://baranex.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"https://baranex.example"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow origin = %q, want empty", got)
	}
}

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperrors.PermissionDenied("admin role required"), http.StatusForbidden, "admin role required"},
		{apperrors.NotFound("resident not found"), http.StatusNotFound, "resident not found"},
		{errors.New("database is locked"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), tt.err)
		if rr.Code != tt.status {
			t.Fatalf("status = %d, want %d", rr.Code, tt.status)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != tt.message {
			t.Fatalf("error = %q, want %q", body["error"], tt.message)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"email":"a@b.ph"}`},
		{name: "unknown field", body: `{"email":"a@b.ph","role":"admin"}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "trailing", body: `{"email":"a"}{"email":"b"}`, wantErr: true},
		{name: "too large", body: `{"email":"` + strings.Repeat("x", MaxJSONBody) + `"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apperrors.HTTPStatus(err) >= 500 {
				t.Fatalf("decode errors must be client errors, got %d", apperrors.HTTPStatus(err))
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	if got := BearerToken(req); got != "abc.def" {
		t.Fatalf("BearerToken = %q", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := BearerToken(req); got != "" {
		t.Fatalf("BearerToken = %q, want empty", got)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4411"
	if got := ClientIP(req); got != "10.0.0.5" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP = %q", got)
	}
}
