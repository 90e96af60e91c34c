// Package httpapi exposes the caller's notification inbox over HTTP JSON.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/notifications/render"
)

// Handler serves inbox endpoints.
type Handler struct {
	svc    *domain.Service
	logger *zap.Logger
}

// NewHandler builds an inbox handler.
func NewHandler(svc *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/notifications", h.inbox)
	r.Get("/api/v1/notifications/unread-count", h.unreadCount)
	r.Post("/api/v1/notifications/read-all", h.markAllRead)
	r.Post("/api/v1/notifications/{id}/read", h.markRead)
}

// Item is one rendered inbox entry.
type Item struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	values := r.URL.Query()
	input := domain.ListInboxInput{
		RecipientUserID: caller.UserID,
		Filter:          values.Get("filter"),
		PageToken:       values.Get("page_token"),
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, r, apperrors.InvalidArgument("page_size must be a non-negative integer"))
			return
		}
		input.PageSize = n
	}
	page, err := h.svc.ListInbox(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	printer := render.PrinterFor(r.Header.Get("Accept-Language"))
	items := make([]Item, 0, len(page.Items))
	for _, n := range page.Items {
		out := render.Render(printer, render.Input{Topic: n.Topic, PayloadJSON: n.PayloadJSON})
		items = append(items, Item{
			ID:        n.ID,
			Topic:     n.Topic,
			Title:     out.Title,
			Body:      out.BodyText,
			Payload:   n.Payload(),
			CreatedAt: n.CreatedAt,
			ReadAt:    n.ReadAt,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"items":           items,
		"next_page_token": page.NextPageToken,
	})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.MarkRead(r.Context(), domain.MarkReadInput{
		RecipientUserID: caller.UserID,
		NotificationID:  chi.URLParam(r, "id"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}
