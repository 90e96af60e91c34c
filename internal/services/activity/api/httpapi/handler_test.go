package httpapi

import (
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
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/activity/storage/sqlite"
)

type staticAuth map[string]requestctx.Principal

func (a staticAuth) Authenticate(_ context.Context, token string) (requestctx.Principal, error) {
	p, ok := a[token]
	if !ok {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeUnauthenticated, "invalid token")
	}
	return p, nil
}

func TestActivityRoutes(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "activity.db"), nil, "")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := sqlite.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc := domain.NewService(store, nil, nil)
	for _, in := range []domain.RecordInput{
		{BarangayID: "brgy-1", ActorUserID: "u-res", Action: "emergency.create"},
		{BarangayID: "brgy-1", ActorUserID: "u-off", Action: "resident.create"},
		{BarangayID: "brgy-2", ActorUserID: "u-other", Action: "resident.create"},
	} {
		if _, err := svc.Record(ctx, in); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(staticAuth{
			"official": {UserID: "u-off", Role: "official", BarangayID: "brgy-1"},
			"resident": {UserID: "u-res", Role: "resident", BarangayID: "brgy-1"},
		}, nil))
		NewHandler(svc, nil).Routes(r)
	})

	cases := []struct {
		name  string
		path  string
		token string
		code  int
		items int
	}{
		{"official lists barangay", "/api/v1/activity", "official", http.StatusOK, 2},
		{"resident cannot list barangay", "/api/v1/activity", "resident", http.StatusForbidden, 0},
		{"resident lists own", "/api/v1/activity/mine", "resident", http.StatusOK, 1},
		{"bad page size", "/api/v1/activity?page_size=x", "official", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.code, rec.Body.String())
			}
			if tc.code != http.StatusOK {
				return
			}
			var page listing.Page[domain.Entry]
			if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(page.Items) != tc.items {
				t.Fatalf("items = %d, want %d", len(page.Items), tc.items)
			}
		})
	}
}
