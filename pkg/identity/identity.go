// Package identity implements activation-key issuance, device enrollment,
// and bearer-token validation for POS devices (component C). Secrets are
// hashed with SHA-256 before storage and returned to the caller exactly
// once, following the teacher's internal/auth/pat.go and apikey.go idiom:
// hash on the wire, compare by hash, never persist the raw secret.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Activation key scopes.
const (
	ScopeStore     = "store"
	ScopeFranchise = "franchise"
	ScopeOrg       = "org"
)

// ActivationKey grants a bounded right to enroll a device.
type ActivationKey struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Scope     string
	ScopeID   *uuid.UUID
	KeyHash   string
	MaxUses   int
	UsesCount int
	ExpiresAt *time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the key can no longer be used.
func (k ActivationKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// Exhausted reports whether the key has reached its use limit.
func (k ActivationKey) Exhausted() bool {
	return k.UsesCount >= k.MaxUses
}

// Device statuses.
const (
	DeviceStatusActive  = "active"
	DeviceStatusRetired = "retired"
)

// Device is an enrolled POS terminal.
type Device struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	StoreID     uuid.UUID
	Fingerprint *string
	DisplayName string
	IsPrimary   bool
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeviceToken is a bearer credential for a Device, stored as hash only.
type DeviceToken struct {
	DeviceID  uuid.UUID
	TokenHash string
	RevokedAt *time.Time
	CreatedAt time.Time
}

// SyncState is a device's per-device progress marker.
type SyncState struct {
	DeviceID    uuid.UUID
	LastAckSeq  *int64
	UpdatedAt   time.Time
}

// Principal is the resolved identity of a device-authenticated request,
// returned by ValidateBearerToken.
type Principal struct {
	DeviceID uuid.UUID
	OrgID    uuid.UUID
	StoreID  uuid.UUID
}
