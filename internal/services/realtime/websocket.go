package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

const writeTimeout = 5 * time.Second

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestctx.Principal, error)
}

// Handler streams hub changes over websocket connections.
type Handler struct {
	Hub            *Hub
	Auth           Authenticator
	OriginPatterns []string
	Logger         *zap.Logger
}

// ServeHTTP authenticates the request, upgrades it and streams matching
// changes until the client disconnects.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil || h.Auth == nil {
		_ = httpx.WriteJSONError(w, http.StatusServiceUnavailable, "realtime unavailable")
		return
	}
	token := httpx.BearerToken(r)
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if token == "" {
		_ = httpx.WriteJSONError(w, http.StatusUnauthorized, "missing access token")
		return
	}
	principal, err := h.Auth.Authenticate(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	filter := Filter{
		Tables:     ParseTables(r.URL.Query().Get("tables")),
		BarangayID: principal.BarangayID,
		UserID:     principal.UserID,
		Role:       principal.Role,
	}
	if filter.Role == "" {
		filter.Role = string(user.RoleResident)
	}
	if principal.Role == "superadmin" {
		filter.BarangayID = strings.TrimSpace(r.URL.Query().Get("barangay_id"))
	}

	opts := &websocket.AcceptOptions{}
	if len(h.OriginPatterns) > 0 {
		opts.OriginPatterns = h.OriginPatterns
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}
	sub := h.Hub.Subscribe(filter)
	defer sub.Close()

	// CloseRead discards client frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		change, err := sub.Next(ctx)
		if err != nil {
			reason := "closed"
			if errors.Is(err, ErrClosed) {
				reason = "server shutting down"
			}
			_ = conn.Close(websocket.StatusNormalClosure, reason)
			return
		}
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = wsjson.Write(writeCtx, conn, change)
		cancel()
		if err != nil {
			if h.Logger != nil {
				h.Logger.Debug("realtime write failed", zap.String("user_id", principal.UserID), zap.Error(err))
			}
			_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
			return
		}
	}
}
