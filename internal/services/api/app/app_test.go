package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/services/auth/service"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func openApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	a, err := Open(context.Background(), Config{
		DBPath:         filepath.Join(dir, "data", "baranex.db"),
		ObjectsDir:     filepath.Join(dir, "objects"),
		SigningKey:     bytes.Repeat([]byte("k"), 32),
		TokenIssuer:    "baranex-test",
		AllowedOrigins: []string{"https://app.example.ph"},
		Version:        "1.2.3",
	})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func login(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var result service.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	return result.AccessToken
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	a := openApp(t)
	h := a.Handler()

	if rec := get(h, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	rec := get(h, "/version", "")
	if !strings.Contains(rec.Body.String(), `"1.2.3"`) {
		t.Fatalf("version body = %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	rec = get(h, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "baranex_http_requests_total") {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if rec := get(h, "/api/v1/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token status = %d, want 401", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	a := openApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/residents", nil)
	req.Header.Set("Origin", "https://app.example.ph")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.ph" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestAuthenticatedSurface(t *testing.T) {
	a := openApp(t)
	ctx := context.Background()
	h := a.Handler()

	for _, b := range []domain.Barangay{
		{ID: "san-isidro", Name: "San Isidro", Municipality: "Tanay", Province: "Rizal"},
		{ID: "poblacion", Name: "Poblacion", Municipality: "Tanay", Province: "Rizal"},
	} {
		if _, err := a.Registry.PutBarangay(ctx, b); err != nil {
			t.Fatalf("put barangay: %v", err)
		}
	}
	_, created, err := a.Auth.Bootstrap(ctx, service.SignUpInput{
		Email:       "captain@san-isidro.ph",
		Password:    "kapitan-2026",
		DisplayName: "Kapitan",
		BarangayID:  "san-isidro",
	}, user.RoleAdmin)
	if err != nil || !created {
		t.Fatalf("bootstrap admin: created=%v err=%v", created, err)
	}
	token := login(t, h, "captain@san-isidro.ph", "kapitan-2026")

	if rec := get(h, "/api/v1/me", token); rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
	rec := get(h, "/api/v1/stats", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get(h, "/api/v1/notifications/unread-count", token); rec.Code != http.StatusOK {
		t.Fatalf("unread status = %d", rec.Code)
	}
	if rec := get(h, "/api/v1/activity", token); rec.Code != http.StatusOK {
		t.Fatalf("activity status = %d", rec.Code)
	}

	own, err := a.Objects.Put(ctx, objectstore.BucketIDScans, "san-isidro", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("put own object: %v", err)
	}
	other, err := a.Objects.Put(ctx, objectstore.BucketIDScans, "poblacion", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("put other object: %v", err)
	}
	rec = get(h, "/api/v1/objects/id-scans/"+own.Key, token)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("own object status = %d type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec := get(h, "/api/v1/objects/id-scans/"+other.Key, token); rec.Code != http.StatusNotFound {
		t.Fatalf("other barangay object status = %d, want 404", rec.Code)
	}
	if rec := get(h, "/api/v1/objects/bogus/"+own.Key, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad bucket status = %d, want 400", rec.Code)
	}

	body := strings.NewReader(`{"question":"When is the hall open?"}`)
	req := httptest.NewRequest(http.MethodPost, "/functions/ask", body)
	req.Header.Set("Authorization", "Bearer "+token)
	ask := httptest.NewRecorder()
	h.ServeHTTP(ask, req)
	if ask.Code != http.StatusServiceUnavailable {
		t.Fatalf("ask without provider status = %d, want 503", ask.Code)
	}
}
