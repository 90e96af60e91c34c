// Package httpapi exposes the activity log over HTTP JSON.
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
	"github.com/louisbranch/baranex/internal/services/activity/domain"
)

// Handler serves activity endpoints.
type Handler struct {
	svc    *domain.Service
	logger *zap.Logger
}

// NewHandler builds an activity handler.
func NewHandler(svc *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/activity", h.list)
	r.Get("/api/v1/activity/mine", h.mine)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.List)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.ListMine)
}

type listFunc func(context.Context, requestctx.Principal, domain.ListInput) (listing.Page[domain.Entry], error)

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, list listFunc) {
	caller, err := httpx.Principal(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	input, err := listInput(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	page, err := list(r.Context(), caller, input)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, page)
}

func listInput(r *http.Request) (domain.ListInput, error) {
	values := r.URL.Query()
	input := domain.ListInput{
		BarangayID: strings.TrimSpace(values.Get("barangay_id")),
		Filter:     values.Get("filter"),
		PageToken:  values.Get("page_token"),
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.ListInput{}, apperrors.InvalidArgument("page_size must be a non-negative integer")
		}
		input.PageSize = n
	}
	return input, nil
}
