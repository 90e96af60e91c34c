// Package httpapi exposes the registry service over HTTP JSON.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
	"github.com/louisbranch/baranex/internal/services/registry/service"
)

// maxScanUpload bounds multipart bodies for ID scans.
const maxScanUpload = 6 << 20

// Handler serves registry endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler builds a registry handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	s := h.svc
	mount(r, h, "/api/v1/residents", resource[domain.Resident, domain.ResidentInput]{
		create: s.CreateResident, get: s.GetResident, list: s.ListResidents,
		update: s.UpdateResident, remove: s.DeleteResident,
	})
	mount(r, h, "/api/v1/households", resource[domain.Household, domain.HouseholdInput]{
		create: s.CreateHousehold, get: s.GetHousehold, list: s.ListHouseholds,
		update: s.UpdateHousehold, remove: s.DeleteHousehold,
	})
	r.Get("/api/v1/households/{id}/members", h.householdMembers)
	mount(r, h, "/api/v1/officials", resource[domain.Official, domain.OfficialInput]{
		create: s.CreateOfficial, get: s.GetOfficial, list: s.ListOfficials,
		update: s.UpdateOfficial, remove: s.DeleteOfficial,
	})
	mount(r, h, "/api/v1/documents", resource[domain.Document, domain.DocumentInput]{
		create: s.CreateDocument, get: s.GetDocument, list: s.ListDocuments,
		remove: s.DeleteDocument,
	})
	r.Put("/api/v1/documents/{id}", h.updateDocument)
	r.Get("/api/v1/document-types", h.documentTypes)
	mount(r, h, "/api/v1/incidents", resource[domain.Incident, domain.IncidentInput]{
		create: s.CreateIncident, get: s.GetIncident, list: s.ListIncidents,
		update: s.UpdateIncident, remove: s.DeleteIncident,
	})
	mount(r, h, "/api/v1/watchlist", resource[domain.WatchlistEntry, domain.WatchlistInput]{
		create: s.CreateWatchlistEntry, get: s.GetWatchlistEntry, list: s.ListWatchlist,
		update: s.UpdateWatchlistEntry, remove: s.DeleteWatchlistEntry,
	})
	mount(r, h, "/api/v1/announcements", resource[domain.Announcement, domain.AnnouncementInput]{
		create: s.CreateAnnouncement, get: s.GetAnnouncement, list: s.ListAnnouncements,
		update: s.UpdateAnnouncement, remove: s.DeleteAnnouncement,
	})
	mount(r, h, "/api/v1/forums/threads", resource[domain.ForumThread, domain.ThreadInput]{
		create: s.CreateThread, get: s.GetThread, list: s.ListThreads,
		update: s.UpdateThread, remove: s.DeleteThread,
	})
	r.Post("/api/v1/forums/threads/{id}/lock", h.lockThread)
	r.Get("/api/v1/forums/threads/{id}/posts", h.listPosts)
	r.Post("/api/v1/forums/threads/{id}/posts", h.createPost)
	r.Put("/api/v1/forums/posts/{id}", h.updatePost)
	r.Delete("/api/v1/forums/posts/{id}", h.deletePost)
	r.Post("/functions/upload-id", h.uploadID)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

// resource binds one entity's service operations; nil operations are not
// routed.
type resource[T, In any] struct {
	create func(context.Context, requestctx.Principal, In) (T, error)
	get    func(context.Context, requestctx.Principal, string) (T, error)
	list   func(context.Context, requestctx.Principal, domain.ListQuery) (listing.Page[T], error)
	update func(context.Context, requestctx.Principal, string, In) (T, error)
	remove func(context.Context, requestctx.Principal, string) error
}

func mount[T, In any](r chi.Router, h *Handler, path string, res resource[T, In]) {
	if res.list != nil {
		r.Get(path, func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Principal(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			q, err := listQuery(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			page, err := res.list(r.Context(), caller, q)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			_ = httpx.WriteJSON(w, http.StatusOK, page)
		})
	}
	if res.create != nil {
		r.Post(path, func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Principal(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			var input In
			if err := httpx.DecodeJSON(w, r, &input); err != nil {
				h.fail(w, r, err)
				return
			}
			item, err := res.create(r.Context(), caller, input)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			_ = httpx.WriteJSON(w, http.StatusCreated, item)
		})
	}
	if res.get != nil {
		r.Get(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Principal(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			item, err := res.get(r.Context(), caller, chi.URLParam(r, "id"))
			if err != nil {
				h.fail(w, r, err)
				return
			}
			_ = httpx.WriteJSON(w, http.StatusOK, item)
		})
	}
	if res.update != nil {
		r.Put(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Principal(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			var input In
			if err := httpx.DecodeJSON(w, r, &input); err != nil {
				h.fail(w, r, err)
				return
			}
			item, err := res.update(r.Context(), caller, chi.URLParam(r, "id"), input)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			_ = httpx.WriteJSON(w, http.StatusOK, item)
		})
	}
	if res.remove != nil {
		r.Delete(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Principal(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			if err := res.remove(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
				h.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// listQuery reads filter, page_size, page_token and barangay_id.
func listQuery(r *http.Request) (domain.ListQuery, error) {
	values := r.URL.Query()
	q := domain.ListQuery{
		BarangayID: strings.TrimSpace(values.Get("barangay_id")),
		Filter:     values.Get("filter"),
		PageToken:  values.Get("page_token"),
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.ListQuery{}, apperrors.InvalidArgument("page_size must be a non-negative integer")
		}
		q.PageSize = n
	}
	return q, nil
}

func (h *Handler) householdMembers(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	members, err := h.svc.HouseholdMembers(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": members})
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.DocumentUpdate
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.UpdateDocument(r.Context(), caller, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) documentTypes(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": h.svc.DocumentCatalog()})
}

func (h *Handler) lockThread(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input struct {
		Locked bool `json:"locked"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.svc.SetThreadLocked(r.Context(), caller, chi.URLParam(r, "id"), input.Locked)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.svc.ListPosts(r.Context(), caller, chi.URLParam(r, "id"), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.PostInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.CreatePost(r.Context(), caller, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.PostInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.UpdatePost(r.Context(), caller, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadID(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxScanUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()
	res, err := h.svc.UploadIDScan(r.Context(), caller, r.FormValue("resident_id"), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"key":      res.IDScanKey,
		"resident": res,
	})
}
