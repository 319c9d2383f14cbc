package entitlement

import (
	"net/http"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/internal/telemetry"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// RequireActive returns middleware that rejects device-authenticated
// requests whose organization has no active entitlement for planCode. It
// must run after identity.Middleware, which populates the device Principal.
func RequireActive(svc *Service, planCode string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := identity.FromContext(r.Context())
			if !ok {
				httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
				return
			}

			active, err := svc.Active(r.Context(), principal.OrgID, planCode)
			if err != nil {
				httpserver.RespondAppError(w, apperr.Internal(err))
				return
			}
			if !active {
				telemetry.EntitlementDeniedTotal.WithLabelValues(r.URL.Path).Inc()
				httpserver.RespondAppError(w, apperr.Forbidden("organization does not have an active %s entitlement", planCode))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
