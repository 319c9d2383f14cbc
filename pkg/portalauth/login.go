package portalauth

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
)

// clientIP extracts the caller's address for rate limiting, preferring a
// proxy-set header if present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OrgID    string `json:"org_id" validate:"required,uuid"`
}

// UserInfo is the public user information returned in auth responses.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	OrgID       string `json:"org_id"`
}

// AuthConfigResponse tells the portal UI which auth methods are available.
type AuthConfigResponse struct {
	OIDCEnabled  bool   `json:"oidc_enabled"`
	OIDCName     string `json:"oidc_name"`
	LocalEnabled bool   `json:"local_enabled"`
}

// LoginHandler handles local email/password login and session lifecycle
// for the portal facade.
type LoginHandler struct {
	sessionMgr   *SessionManager
	users        *org.Repo
	limiter      *RateLimiter
	oidcEnabled  bool
	cookieAge    time.Duration
	secureCookie bool
}

// NewLoginHandler builds a LoginHandler. limiter may be nil to disable
// login rate limiting (e.g. in tests).
func NewLoginHandler(sm *SessionManager, users *org.Repo, limiter *RateLimiter, oidcEnabled bool, cookieAge time.Duration, secureCookie bool) *LoginHandler {
	return &LoginHandler{sessionMgr: sm, users: users, limiter: limiter, oidcEnabled: oidcEnabled, cookieAge: cookieAge, secureCookie: secureCookie}
}

// HandleLogin authenticates a user by email/password scoped to the
// requested organization and sets the session cookie.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	ip := clientIP(r)
	if h.limiter != nil {
		result, err := h.limiter.Check(r.Context(), ip)
		if err != nil {
			httpserver.RespondAppError(w, apperr.Internal(err))
			return
		}
		if !result.Allowed {
			httpserver.RespondAppError(w, apperr.New(apperr.KindConflict, "too many login attempts, try again later"))
			return
		}
	}

	fail := func(err *apperr.Error) {
		if h.limiter != nil {
			_ = h.limiter.Record(r.Context(), ip)
		}
		httpserver.RespondAppError(w, err)
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user.PasswordHash == nil {
		fail(apperr.Unauthorized("invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		fail(apperr.Unauthorized("invalid email or password"))
		return
	}
	if h.limiter != nil {
		_ = h.limiter.Reset(r.Context(), ip)
	}

	memberships, err := h.users.ListMembershipsByUser(r.Context(), user.ID)
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}
	role, ok := roleForOrg(memberships, req.OrgID)
	if !ok {
		httpserver.RespondAppError(w, apperr.Forbidden("user has no membership in this organization"))
		return
	}

	token, err := h.sessionMgr.IssueToken(SessionClaims{
		Subject: user.DisplayName,
		Email:   user.Email,
		Role:    role,
		OrgID:   req.OrgID,
		UserID:  user.ID.String(),
		Method:  "local",
	})
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	httpserver.Respond(w, http.StatusOK, UserInfo{
		ID: user.ID.String(), Email: user.Email, DisplayName: user.DisplayName, Role: role, OrgID: req.OrgID,
	})
}

// HandleAuthConfig returns the available authentication methods.
func (h *LoginHandler) HandleAuthConfig(w http.ResponseWriter, _ *http.Request) {
	httpserver.Respond(w, http.StatusOK, AuthConfigResponse{
		OIDCEnabled:  h.oidcEnabled,
		OIDCName:     "Sign in with SSO",
		LocalEnabled: true,
	})
}

// HandleMe returns the currently authenticated operator's identity.
func (h *LoginHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil {
		httpserver.RespondAppError(w, apperr.Unauthorized("no session"))
		return
	}
	httpserver.Respond(w, http.StatusOK, UserInfo{Email: id.Email, Role: id.Role, OrgID: id.OrgID.String()})
}

// HandleLogout clears the session cookie. Session JWTs are stateless and
// not revocable server-side; logout only discards the client's copy.
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func roleForOrg(memberships []org.Membership, orgID string) (string, bool) {
	for _, m := range memberships {
		if m.Role == org.RoleSuperAdmin {
			return org.RoleSuperAdmin, true
		}
		if m.OrgID.String() == orgID {
			return m.Role, true
		}
	}
	return "", false
}
