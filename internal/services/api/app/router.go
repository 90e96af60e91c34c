package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/timeouts"
	activityhttp "github.com/louisbranch/baranex/internal/services/activity/api/httpapi"
	assistanthttp "github.com/louisbranch/baranex/internal/services/assistant/api/httpapi"
	authhttp "github.com/louisbranch/baranex/internal/services/auth/api/httpapi"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	dashboardhttp "github.com/louisbranch/baranex/internal/services/dashboard/api/httpapi"
	emergencyhttp "github.com/louisbranch/baranex/internal/services/emergency/api/httpapi"
	notifyhttp "github.com/louisbranch/baranex/internal/services/notifications/api/httpapi"
	"github.com/louisbranch/baranex/internal/services/realtime"
	registryhttp "github.com/louisbranch/baranex/internal/services/registry/api/httpapi"
)

// Handler returns the full HTTP surface: public routes, the authenticated
// API and the realtime websocket.
func (a *App) Handler() http.Handler {
	logger := a.logger
	r := chi.NewRouter()
	r.Use(a.Metrics.Middleware())

	authHandler := authhttp.NewHandler(a.Auth, logger.Named("http.auth"))

	r.Get("/healthz", a.health)
	r.Get("/version", a.versionInfo)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	r.Method(http.MethodGet, "/api/v1/realtime", realtime.Handler{
		Hub:            a.Hub,
		Auth:           a.Auth,
		OriginPatterns: a.allowedOrigins,
		Logger:         logger.Named("realtime"),
	})
	authHandler.PublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(a.Auth, logger))
		authHandler.Routes(r)
		registryhttp.NewHandler(a.Registry, logger.Named("http.registry")).Routes(r)
		emergencyhttp.NewHandler(a.Emergency, logger.Named("http.emergency")).Routes(r)
		dashboardhttp.NewHandler(a.Dashboard, logger.Named("http.dashboard")).Routes(r)
		assistanthttp.NewHandler(a.Assistant, logger.Named("http.assistant")).Routes(r)
		notifyhttp.NewHandler(a.Notifications, logger.Named("http.notifications")).Routes(r)
		activityhttp.NewHandler(a.Activity, logger.Named("http.activity")).Routes(r)
		r.Get("/api/v1/objects/{bucket}/*", a.object)
	})

	handler := httpx.Chain(r,
		httpx.RequestID(),
		httpx.RecoverPanic(logger),
		httpx.AccessLog(logger.Named("http")),
		httpx.CORS(a.allowedOrigins),
	)
	return otelhttp.NewHandler(handler, "baranex")
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.DBRequest)
	defer cancel()
	if err := a.DB.PingContext(ctx); err != nil {
		a.logger.Warn("health check failed", zap.Error(err))
		_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) versionInfo(w http.ResponseWriter, _ *http.Request) {
	version := a.version
	if version == "" {
		version = "dev"
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"version": version})
}

// object streams a stored object. Objects belong to the barangay named by
// their key prefix; ID scans are visible to officials only.
func (a *App) object(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		httpx.WriteError(w, r, a.logger, err)
		return
	}
	bucket, err := objectstore.ParseBucket(chi.URLParam(r, "bucket"))
	if err != nil {
		httpx.WriteError(w, r, a.logger, err)
		return
	}
	key := chi.URLParam(r, "*")
	role := user.Role(caller.Role)
	if role != user.RoleSuperadmin {
		if objectstore.Owner(key) != caller.BarangayID {
			httpx.WriteError(w, r, a.logger, apperrors.NotFound("object not found"))
			return
		}
		if bucket == objectstore.BucketIDScans && !role.AtLeast(user.RoleOfficial) {
			httpx.WriteError(w, r, a.logger, apperrors.PermissionDenied("officials only"))
			return
		}
	}

	body, obj, err := a.Objects.Open(r.Context(), bucket, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		err = apperrors.NotFound("object not found")
	}
	if err != nil {
		httpx.WriteError(w, r, a.logger, err)
		return
	}
	defer body.Close()

	h := w.Header()
	if obj.ContentType != "" {
		h.Set("Content-Type", obj.ContentType)
	}
	h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	h.Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.logger.Debug("stream object", zap.String("key", key), zap.Error(err))
	}
}
