// Package httpapi exposes the assistant over HTTP JSON.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/services/assistant/service"
)

// Handler serves assistant endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler builds an assistant handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/functions/ask", h.ask)
	r.Post("/functions/backfill-embeddings", h.backfill)
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var req askRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	answer, err := h.svc.Ask(r.Context(), caller, req.Question)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, answer)
}

type backfillRequest struct {
	BarangayID string `json:"barangay_id"`
}

func (h *Handler) backfill(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var req backfillRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, r, h.logger, err)
			return
		}
	}
	result, err := h.svc.BackfillAs(r.Context(), caller, req.BarangayID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}
