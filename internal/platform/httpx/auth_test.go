package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
)

type tokenAuth map[string]requestctx.Principal

func (a tokenAuth) Authenticate(_ context.Context, token string) (requestctx.Principal, error) {
	p, ok := a[token]
	if !ok {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeUnauthenticated, "invalid or expired token")
	}
	return p, nil
}

func TestRequireAuth(t *testing.T) {
	auth := tokenAuth{"good": {UserID: "u1", Role: "official", BarangayID: "b1"}}
	var seen requestctx.Principal
	handler := RequireAuth(auth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := Principal(r)
		if err != nil {
			t.Fatalf("principal: %v", err)
		}
		seen = p
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	if seen.UserID != "u1" || seen.BarangayID != "b1" {
		t.Fatalf("principal = %+v", seen)
	}
}

func TestPrincipalWithoutAuth(t *testing.T) {
	_, err := Principal(httptest.NewRequest(http.MethodGet, "/", nil))
	if apperrors.GetCode(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("err = %v", err)
	}
}
