package portalauth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
)

// SessionCookieName is the cookie the portal UI stores its session JWT
// under.
const SessionCookieName = "traqr_session"

// Middleware authenticates portal requests via, in order: the session
// cookie, an `Authorization: Bearer <token>` header (tried first as a
// session JWT, then as an OIDC ID token if an OIDCAuthenticator is
// configured; a failed OIDC check is rejected), or an `X-API-Key` header.
// The resolved Identity is stored in the request context.
func Middleware(sessionMgr *SessionManager, oidcAuth *OIDCAuthenticator, apikeyAuth *APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id *Identity

			if cookie, err := r.Cookie(SessionCookieName); err == nil && sessionMgr != nil {
				if claims, err := sessionMgr.ValidateToken(cookie.Value); err == nil {
					id = identityFromSessionClaims(claims)
				}
			}

			if id == nil {
				if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
					raw := strings.TrimSpace(authHeader[len("Bearer "):])

					if sessionMgr != nil {
						if claims, err := sessionMgr.ValidateToken(raw); err == nil {
							id = identityFromSessionClaims(claims)
						}
					}

					if id == nil && oidcAuth != nil {
						claims, err := oidcAuth.Authenticate(r.Context(), authHeader)
						if err != nil {
							httpserver.RespondAppError(w, apperr.Unauthorized("invalid bearer token"))
							return
						}
						orgID, parseErr := uuid.Parse(claims.OrgID)
						if parseErr != nil {
							httpserver.RespondAppError(w, apperr.Unauthorized("token org_id is not a valid id"))
							return
						}
						id = &Identity{Subject: claims.Subject, Email: claims.Email, Role: claims.Role, OrgID: orgID, Method: MethodOIDC}
					}
				}
			}

			if id == nil {
				if rawKey := r.Header.Get("X-API-Key"); rawKey != "" && apikeyAuth != nil {
					result, err := apikeyAuth.Authenticate(r.Context(), rawKey)
					if err != nil {
						httpserver.RespondAppError(w, apperr.Unauthorized("invalid API key"))
						return
					}
					id = &Identity{
						Subject:  "apikey:" + result.KeyPrefix,
						Role:     result.Role,
						OrgID:    result.OrgID,
						APIKeyID: &result.ID,
						Method:   MethodAPIKey,
					}
				}
			}

			if id == nil {
				httpserver.RespondAppError(w, apperr.Unauthorized("no valid portal authentication provided"))
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

func identityFromSessionClaims(claims *SessionClaims) *Identity {
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil
	}
	var userID *uuid.UUID
	if u, err := uuid.Parse(claims.UserID); err == nil {
		userID = &u
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		OrgID:   orgID,
		UserID:  userID,
		Method:  MethodSession,
	}
}
