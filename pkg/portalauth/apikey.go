package portalauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// HashAPIKey hashes a raw operator API key for storage and lookup; only the
// hash is ever persisted (spec's ambient secret-handling rule, mirrored
// from pkg/identity's device-token hashing).
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator validates operator API keys against portal_api_keys.
type APIKeyAuthenticator struct {
	dbtx db.DBTX
}

// NewAPIKeyAuthenticator builds an APIKeyAuthenticator.
func NewAPIKeyAuthenticator(dbtx db.DBTX) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{dbtx: dbtx}
}

// APIKeyResult holds the resolved identity data from an API key lookup.
type APIKeyResult struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	KeyPrefix string
	Role      string
}

// Authenticate hashes the raw key, looks it up, and validates expiration.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, rawKey string) (*APIKeyResult, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("empty API key")
	}
	hash := HashAPIKey(rawKey)

	var result APIKeyResult
	var expiresAt *time.Time
	row := a.dbtx.QueryRow(ctx,
		`SELECT id, org_id, key_prefix, role, expires_at FROM portal_api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		hash,
	)
	if err := row.Scan(&result.ID, &result.OrgID, &result.KeyPrefix, &result.Role, &expiresAt); err != nil {
		return nil, fmt.Errorf("looking up API key: %w", err)
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("API key expired at %s", expiresAt)
	}
	if !IsValidRole(result.Role) {
		result.Role = RoleReadonly
	}

	go func() {
		_, _ = a.dbtx.Exec(context.Background(), `UPDATE portal_api_keys SET last_used_at = now() WHERE id = $1`, result.ID)
	}()

	return &result, nil
}
