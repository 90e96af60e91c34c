// Package httpapi exposes the auth service over HTTP JSON.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/httpx"
	"github.com/louisbranch/baranex/internal/services/auth/service"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// maxImageUpload bounds multipart bodies for profile images.
const maxImageUpload = 6 << 20

// Handler serves auth endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler builds an auth handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// PublicRoutes registers endpoints that need no bearer token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/auth/signup", h.signUp)
	r.Post("/auth/login", h.login)
	r.Post("/auth/mfa/login", h.mfaLogin)
	r.Post("/auth/verify-email", h.verifyEmail)
	r.Post("/functions/check-identity", h.checkIdentity)
	r.Post("/functions/resend-verification", h.resendVerification)
}

// Routes registers endpoints that require an authenticated principal.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/functions/delete-user", h.deleteUser)
	r.Post("/functions/promote-user", h.promoteUser)
	r.Post("/functions/mfa/enroll", h.mfaEnroll)
	r.Post("/functions/mfa/verify", h.mfaVerify)
	r.Post("/functions/mfa/disable", h.mfaDisable)
	r.Get("/functions/mfa/status", h.mfaStatus)
	r.Post("/functions/login-alert", h.loginAlert)
	r.Get("/api/v1/me", h.me)
	r.Patch("/api/v1/me", h.updateMe)
	r.Post("/api/v1/me/images/{kind}", h.uploadImage)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var input service.SignUpInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.SignUp(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": u})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) mfaLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ChallengeToken string `json:"challenge_token"`
		Code           string `json:"code"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.CompleteMFALogin(r.Context(), input.ChallengeToken, input.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), input.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handler) checkIdentity(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.IdentityExists(r.Context(), input.Email, input.Phone)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.ResendVerification(r.Context(), input.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If the address needs verification, an email is on its way.",
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input struct {
		UserID string `json:"user_id"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), caller, strings.TrimSpace(input.UserID)); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) promoteUser(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := user.ParseRole(input.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.PromoteUser(r.Context(), caller, strings.TrimSpace(input.UserID), role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

type codeInput struct {
	Code string `json:"code"`
}

func (h *Handler) mfaEnroll(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	enrollment, err := h.svc.EnrollMFA(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) mfaVerify(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input codeInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := h.svc.VerifyMFA(r.Context(), caller.UserID, input.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) mfaDisable(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input codeInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DisableMFA(r.Context(), caller.UserID, input.Code); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, service.MFAStatus{})
}

func (h *Handler) mfaStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := h.svc.GetMFAStatus(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) loginAlert(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input service.LoginAlert
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if input.UserAgent == "" {
		input.UserAgent = r.UserAgent()
	}
	if input.IP == "" {
		input.IP = httpx.ClientIP(r)
	}
	if err := h.svc.RecordLoginAlert(r.Context(), caller.UserID, input); err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.GetProfile(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input service.UpdateProfileInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), caller.UserID, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	kind, err := service.ParseImageKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()
	u, err := h.svc.UploadImage(r.Context(), caller.UserID, kind, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, u)
}
