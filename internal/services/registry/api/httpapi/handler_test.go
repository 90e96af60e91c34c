package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
	"github.com/louisbranch/baranex/internal/services/registry/service"
	registrysqlite "github.com/louisbranch/baranex/internal/services/registry/storage/sqlite"
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

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "registry.db"), nil, "")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := registrysqlite.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	objects, err := objectstore.Open(t.TempDir(), objectstore.DefaultMaxSize)
	if err != nil {
		t.Fatalf("open objects: %v", err)
	}
	svc := service.NewService(store, service.Config{Objects: objects})
	if _, err := svc.PutBarangay(ctx, domain.Barangay{ID: "brgy-1", Name: "San Roque"}); err != nil {
		t.Fatalf("put barangay: %v", err)
	}

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

func TestRequiresBearer(t *testing.T) {
	h := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/api/v1/officials", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestResidentRoutes(t *testing.T) {
	h := newTestRouter(t)

	body := map[string]any{"first_name": "maria", "last_name": "santos", "gender": "female", "birthdate": "1990-02-14"}
	if rec := do(t, h, http.MethodPost, "/api/v1/residents", "resident", body); rec.Code != http.StatusForbidden {
		t.Fatalf("resident create status = %d, want 403", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/residents", "official", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[domain.Resident](t, rec)
	if created.FirstName != "Maria" {
		t.Fatalf("first name = %q", created.FirstName)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/residents?filter="+`gender%20%3D%20%22female%22`+"&page_size=10", "official", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", rec.Code, rec.Body)
	}
	page := decode[struct {
		Items []domain.Resident `json:"items"`
	}](t, rec)
	if len(page.Items) != 1 || page.Items[0].ID != created.ID {
		t.Fatalf("unexpected page: %+v", page)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/residents?page_size=abc", "official", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page_size status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/residents?filter=nope%3D1", "official", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d", rec.Code)
	}

	body["occupation"] = "Nurse"
	rec = do(t, h, http.MethodPut, "/api/v1/residents/"+created.ID, "official", body)
	if rec.Code != http.StatusOK || decode[domain.Resident](t, rec).Occupation != "Nurse" {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodDelete, "/api/v1/residents/"+created.ID, "official", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/residents/"+created.ID, "official", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestDocumentStatusRoutes(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/residents", "official", map[string]any{
		"first_name": "Juan", "last_name": "Cruz", "gender": "male",
	})
	resident := decode[domain.Resident](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/documents", "resident", map[string]any{
		"resident_id": resident.ID, "type": "barangay_clearance", "purpose": "Employment",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create document status = %d body=%s", rec.Code, rec.Body)
	}
	doc := decode[domain.Document](t, rec)

	rec = do(t, h, http.MethodPut, "/api/v1/documents/"+doc.ID, "official", map[string]any{"status": "released"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("invalid transition status = %d body=%s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodPut, "/api/v1/documents/"+doc.ID, "official", map[string]any{"fee": 75, "remarks": "Pay at window 2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set fee status = %d body=%s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodPut, "/api/v1/documents/"+doc.ID, "official", map[string]any{"status": "processing"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid transition status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decode[domain.Document](t, rec); got.Status != domain.DocProcessing || got.Fee != 75 || got.Remarks != "Pay at window 2" {
		t.Fatalf("status-only update = %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/document-types", "resident", nil)
	types := decode[struct {
		Items []domain.DocumentTypeInfo `json:"items"`
	}](t, rec)
	if len(types.Items) != len(domain.DocumentCatalog) {
		t.Fatalf("document types = %d", len(types.Items))
	}
}

func TestForumLockRoute(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/forums/threads", "resident", map[string]any{"title": "Flooding", "body": "Purok 3 drains"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create thread status = %d body=%s", rec.Code, rec.Body)
	}
	thread := decode[domain.ForumThread](t, rec)

	if rec := do(t, h, http.MethodPost, "/api/v1/forums/threads/"+thread.ID+"/lock", "official", map[string]bool{"locked": true}); rec.Code != http.StatusOK {
		t.Fatalf("lock status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/forums/threads/"+thread.ID+"/posts", "resident", map[string]string{"body": "hello"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("post to locked status = %d body=%s", rec.Code, rec.Body)
	}
}

func TestUploadIDRequiresFile(t *testing.T) {
	h := newTestRouter(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("resident_id", "res-1")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/functions/upload-id", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer official")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
}
