package portalauth

import (
	"net/http"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
)

// RequireRole returns middleware that rejects requests whose identity does
// not hold one of the listed roles, by exact match.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				httpserver.RespondAppError(w, apperr.Unauthorized("authentication required"))
				return
			}
			if _, ok := set[id.Role]; !ok {
				httpserver.RespondAppError(w, apperr.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinRole returns middleware that rejects requests whose identity
// has a lower privilege level than minRole — a hierarchical check, e.g.
// RequireMinRole(RoleManager) permits admin and manager.
func RequireMinRole(minRole string) func(http.Handler) http.Handler {
	minLevel := roleLevel[minRole]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				httpserver.RespondAppError(w, apperr.Unauthorized("authentication required"))
				return
			}
			if roleLevel[id.Role] < minLevel {
				httpserver.RespondAppError(w, apperr.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
