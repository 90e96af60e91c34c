// Package httpapi exposes dashboard statistics over HTTP JSON.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/services/dashboard/service"
)

// Handler serves dashboard endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler builds a dashboard handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/stats", h.stats)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	stats, err := h.svc.Stats(r.Context(), caller, r.URL.Query().Get("barangay_id"), refresh)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, stats)
}
