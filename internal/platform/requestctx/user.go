// Package requestctx carries the authenticated principal through a request.
package requestctx

import "context"

type principalContextKey struct{}

// Principal identifies the authenticated caller.
type Principal struct {
	UserID     string
	Role       string
	BarangayID string
}

// WithPrincipal stores the caller in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the caller stored in context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}

// UserIDFromContext returns the caller's user id, or empty.
func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}
