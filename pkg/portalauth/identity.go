// Package portalauth authenticates operators calling the portal facade
// (component I's authorization layer): a self-issued HMAC session JWT
// carried in a cookie, a bearer API key, or (optionally) an upstream OIDC
// identity provider, each resolving to a role-bearing Identity used by RBAC
// middleware. Grounded on the teacher's internal/auth package — its
// session/rbac/apikey/oidc call-site contracts survived retrieval but their
// supporting Identity/context/role types did not, so this package
// reconstructs them the way internal/httpserver and internal/platform
// reconstruct their own teacher call-site contracts (see DESIGN.md).
package portalauth

import (
	"context"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
)

// Operator roles. Aliased from pkg/org, the canonical source of the
// membership role strings, so RBAC checks here and membership rows there
// never drift apart. RoleSuperAdmin bypasses org/store scoping entirely.
const (
	RoleSuperAdmin = org.RoleSuperAdmin
	RoleAdmin      = org.RoleAdmin
	RoleManager    = org.RoleManager
	RoleEngineer   = org.RoleEngineer
	RoleReadonly   = org.RoleReadonly
)

var roleLevel = map[string]int{
	RoleReadonly:   10,
	RoleEngineer:   20,
	RoleManager:    30,
	RoleAdmin:      40,
	RoleSuperAdmin: 50,
}

// IsValidRole reports whether role is one of the closed set above.
func IsValidRole(role string) bool {
	_, ok := roleLevel[role]
	return ok
}

// Authentication methods an Identity may have been established by.
const (
	MethodSession = "session"
	MethodAPIKey  = "api_key"
	MethodOIDC    = "oidc"
)

// Identity is the authenticated operator context value populated by
// Middleware and read by RBAC checks and portal handlers.
type Identity struct {
	Subject  string
	Email    string
	Role     string
	OrgID    uuid.UUID
	UserID   *uuid.UUID
	APIKeyID *uuid.UUID
	Method   string
}

type contextKey struct{ name string }

var identityContextKey = &contextKey{"portalauth.identity"}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the Identity stored in ctx, or nil if none.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey).(*Identity)
	return id
}
