// Package org models the tenant boundary: organizations, stores, users and
// their memberships. Every other domain package scopes its rows by OrgID
// and, where applicable, StoreID rather than by Postgres schema (see
// DESIGN.md for why this repo departs from the teacher's schema-per-tenant
// model).
package org

import (
	"time"

	"github.com/google/uuid"
)

// Status values for an Organization.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Organization is the tenant boundary.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the organization may transact at all (independent
// of its cloud_sync entitlement, which is checked separately).
func (o Organization) Active() bool {
	return o.Status == StatusActive
}

// StoreEntity is a physical location within an Organization.
type StoreEntity struct {
	ID                uuid.UUID
	OrgID             uuid.UUID
	Name              string
	Timezone          *string
	CanonicalDeviceID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Membership roles. super_admin bypasses tenant scoping entirely; the rest
// are checked against the org/store a request targets.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleEngineer   = "engineer"
	RoleReadonly   = "readonly"
)

// User is a portal operator account.
type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash *string // nil when the user only authenticates via OIDC
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Membership grants a User a Role within an Organization, optionally scoped
// to a single Store. A nil StoreID means org-wide.
type Membership struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	OrgID     uuid.UUID
	StoreID   *uuid.UUID
	Role      string
	CreatedAt time.Time
}
