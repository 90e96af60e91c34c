// Package httpapi exposes emergency requests and SMS alerts over HTTP JSON.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	"github.com/louisbranch/baranex/internal/services/emergency/service"
)

// Handler serves emergency endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler builds an emergency handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/emergencies", h.list)
	r.Post("/api/v1/emergencies", h.create)
	r.Get("/api/v1/emergencies/active", h.active)
	r.Get("/api/v1/emergencies/alerts", h.alerts)
	r.Get("/api/v1/emergencies/{id}", h.get)
	r.Post("/api/v1/emergencies/{id}/status", h.updateStatus)
	r.Put("/api/v1/emergencies/{id}/status", h.updateStatus)
	r.Post("/functions/send-emergency-sms", h.sendSMS)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.RequestInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := h.svc.CreateRequest(r.Context(), caller, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := h.svc.GetRequest(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.svc.ListRequests(r.Context(), caller, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.svc.ListActive(r.Context(), caller, r.URL.Query().Get("barangay_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.StatusInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := h.svc.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.svc.ListAlerts(r.Context(), caller, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, page)
}

type sendSMSResponse struct {
	Success bool `json:"success"`
	service.AlertResult
}

func (h *Handler) sendSMS(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input domain.AlertInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.BroadcastAlert(r.Context(), caller, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("sms alert sent",
		zap.String("alert_id", result.Alert.ID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	_ = httpx.WriteJSON(w, http.StatusOK, sendSMSResponse{Success: result.Sent > 0, AlertResult: result})
}

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
