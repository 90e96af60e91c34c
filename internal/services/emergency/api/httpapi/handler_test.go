package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	"github.com/louisbranch/baranex/internal/services/emergency/service"
	emergencysqlite "github.com/louisbranch/baranex/internal/services/emergency/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/sms"
)

type staticAuth map[string]requestctx.Principal

func (a staticAuth) Authenticate(_ context.Context, token string) (requestctx.Principal, error) {
	p, ok := a[token]
	if !ok {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeUnauthenticated, "invalid token")
	}
	return p, nil
}

var tokens = staticAuth{
	"official": {UserID: "user-off", Role: "official", BarangayID: "brgy-1"},
	"resident": {UserID: "user-res", Role: "resident", BarangayID: "brgy-1"},
}

type okGateway struct{}

func (okGateway) Send(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "emergency.db"), nil, "")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := emergencysqlite.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc := service.NewService(store, service.Config{SMS: sms.NewBroadcaster(okGateway{})})

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(tokens, nil))
		NewHandler(svc, nil).Routes(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return out
}

func TestEmergencyRoutes(t *testing.T) {
	h := newTestRouter(t)

	if rec := do(t, h, http.MethodGet, "/api/v1/emergencies", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/emergencies", "resident", map[string]any{
		"type": "medical", "location": "Purok 1", "latitude": 14.6, "longitude": 121.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[domain.Request](t, rec)

	if rec := do(t, h, http.MethodPost, "/api/v1/emergencies", "resident", map[string]any{"type": "medical", "colour": "red"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/emergencies/active", "resident", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("resident active status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/emergencies/active", "official", nil)
	active := decode[struct {
		Items []domain.Request `json:"items"`
	}](t, rec)
	if rec.Code != http.StatusOK || len(active.Items) != 1 {
		t.Fatalf("active status = %d body=%s", rec.Code, rec.Body)
	}

	path := "/api/v1/emergencies/" + created.ID + "/status"
	if rec := do(t, h, http.MethodPost, path, "official", map[string]string{"status": "resolved"}); rec.Code != http.StatusConflict {
		t.Fatalf("skip ahead status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, path, "official", map[string]string{"status": "acknowledged"})
	if rec.Code != http.StatusOK || decode[domain.Request](t, rec).ResponderUserID != "user-off" {
		t.Fatalf("acknowledge status = %d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/emergencies/"+created.ID, "resident", nil); rec.Code != http.StatusOK {
		t.Fatalf("get own status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/emergencies?page_size=-1", "resident", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page size status = %d", rec.Code)
	}
}

func TestSendEmergencySMS(t *testing.T) {
	h := newTestRouter(t)
	body := map[string]any{"message": "Typhoon signal no. 3", "numbers": []string{"09170000001", "09170000002"}}

	if rec := do(t, h, http.MethodPost, "/functions/send-emergency-sms", "resident", body); rec.Code != http.StatusForbidden {
		t.Fatalf("resident status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/functions/send-emergency-sms", "official", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d body=%s", rec.Code, rec.Body)
	}
	got := decode[struct {
		Success bool `json:"success"`
		Sent    int  `json:"sent"`
		Failed  int  `json:"failed"`
	}](t, rec)
	if !got.Success || got.Sent != 2 || got.Failed != 0 {
		t.Fatalf("response = %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/emergencies/alerts", "official", nil)
	alerts := decode[struct {
		Items []domain.Alert `json:"items"`
	}](t, rec)
	if len(alerts.Items) != 1 || alerts.Items[0].Audience != domain.AudienceNumbers {
		t.Fatalf("alerts = %+v", alerts.Items)
	}

	if rec := do(t, h, http.MethodPost, "/functions/send-emergency-sms", "official", map[string]any{"message": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message status = %d", rec.Code)
	}
}
