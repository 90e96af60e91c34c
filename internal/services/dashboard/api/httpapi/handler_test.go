package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/services/dashboard/service"
)

type staticAuth map[string]requestctx.Principal

func (a staticAuth) Authenticate(_ context.Context, token string) (requestctx.Principal, error) {
	p, ok := a[token]
	if !ok {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeUnauthenticated, "invalid token")
	}
	return p, nil
}

type sevens struct{}

func (sevens) CountResidents(context.Context, string) (int64, error)              { return 7, nil }
func (sevens) CountHouseholds(context.Context, string) (int64, error)             { return 7, nil }
func (sevens) CountActiveOfficials(context.Context, string) (int64, error)        { return 7, nil }
func (sevens) CountOpenIncidents(context.Context, string) (int64, error)          { return 7, nil }
func (sevens) CountPendingDocuments(context.Context, string) (int64, error)       { return 7, nil }
func (sevens) CountPublishedAnnouncements(context.Context, string) (int64, error) { return 7, nil }
func (sevens) CountActive(context.Context, string) (int64, error)                 { return 7, nil }
func (sevens) CountUsers(context.Context, string) (int64, error)                  { return 7, nil }

func TestStatsRoute(t *testing.T) {
	svc := service.NewService(service.Config{Registry: sevens{}, Emergencies: sevens{}, Users: sevens{}})
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(staticAuth{
			"official": {UserID: "u1", Role: "official", BarangayID: "brgy-1"},
			"resident": {UserID: "u2", Role: "resident", BarangayID: "brgy-1"},
		}, nil))
		NewHandler(svc, nil).Routes(r)
	})

	cases := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"resident", http.StatusForbidden},
		{"official", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats?refresh=true", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("token %q: status = %d, want %d", tc.token, rec.Code, tc.want)
		}
		if tc.want != http.StatusOK {
			continue
		}
		var got service.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Residents != 7 || got.Users != 7 || got.BarangayID != "brgy-1" {
			t.Fatalf("stats = %+v", got)
		}
	}
}
