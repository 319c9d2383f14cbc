package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
)

type principalKey struct{}

// NewContext returns a copy of ctx carrying the given Principal.
func NewContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the Principal stored by Middleware, or false if the
// request was never authenticated as a device.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware authenticates every request on the device-facing surface via
// "Authorization: Bearer <device-token>", per spec §6. It never falls back
// to any other credential type; the portal uses a separate auth realm
// (pkg/portalauth) because devices and operators are not interchangeable
// principals.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				httpserver.RespondAppError(w, apperr.Unauthorized("missing device bearer token"))
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			principal, err := svc.ValidateBearerToken(r.Context(), raw)
			if err != nil {
				httpserver.RespondAppError(w, err)
				return
			}

			ctx := NewContext(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
