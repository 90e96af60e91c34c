package httpx

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
)

// ErrUnauthenticated is answered when a protected route has no principal.
var ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "authentication required")

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestctx.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func RequireAuth(auth Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" || auth == nil {
				WriteError(w, r, logger, ErrUnauthenticated)
				return
			}
			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithPrincipal(r.Context(), principal)))
		})
	}
}

// Principal returns the authenticated caller of r.
func Principal(r *http.Request) (requestctx.Principal, error) {
	principal, ok := requestctx.PrincipalFromContext(RequestContext(r))
	if !ok {
		return requestctx.Principal{}, ErrUnauthenticated
	}
	return principal, nil
}
