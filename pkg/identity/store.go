package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for activation keys, devices, device
// tokens and sync state.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates an identity Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

const activationKeyColumns = `id, org_id, scope, scope_id, key_hash, max_uses, uses_count, expires_at, revoked_at, created_at`

func scanActivationKey(row pgx.Row) (ActivationKey, error) {
	var k ActivationKey
	err := row.Scan(&k.ID, &k.OrgID, &k.Scope, &k.ScopeID, &k.KeyHash, &k.MaxUses, &k.UsesCount, &k.ExpiresAt, &k.RevokedAt, &k.CreatedAt)
	return k, err
}

// CreateActivationKey inserts a new activation key row.
func (r *Repo) CreateActivationKey(ctx context.Context, orgID uuid.UUID, scope string, scopeID *uuid.UUID, keyHash string, maxUses int, expiresAt *time.Time) (ActivationKey, error) {
	query := `INSERT INTO device_activation_keys (org_id, scope, scope_id, key_hash, max_uses, uses_count, expires_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6) RETURNING ` + activationKeyColumns
	k, err := scanActivationKey(r.dbtx.QueryRow(ctx, query, orgID, scope, scopeID, keyHash, maxUses, expiresAt))
	if err != nil {
		return ActivationKey{}, fmt.Errorf("inserting activation key: %w", err)
	}
	return k, nil
}

// GetActivationKeyByHash looks up an activation key by its SHA-256 hash.
func (r *Repo) GetActivationKeyByHash(ctx context.Context, hash string) (ActivationKey, error) {
	query := `SELECT ` + activationKeyColumns + ` FROM device_activation_keys WHERE key_hash = $1`
	k, err := scanActivationKey(r.dbtx.QueryRow(ctx, query, hash))
	if err != nil {
		return ActivationKey{}, fmt.Errorf("fetching activation key: %w", err)
	}
	return k, nil
}

// IncrementActivationKeyUses atomically increments uses_count, guarding
// against a race that would otherwise exceed max_uses.
func (r *Repo) IncrementActivationKeyUses(ctx context.Context, id uuid.UUID) error {
	tag, err := r.dbtx.Exec(ctx,
		`UPDATE device_activation_keys SET uses_count = uses_count + 1 WHERE id = $1 AND uses_count < max_uses`, id)
	if err != nil {
		return fmt.Errorf("incrementing activation key uses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("activation key exhausted")
	}
	return nil
}

const deviceColumns = `id, org_id, store_id, fingerprint, display_name, is_primary, status, created_at, updated_at`

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.OrgID, &d.StoreID, &d.Fingerprint, &d.DisplayName, &d.IsPrimary, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateDevice inserts a new device row.
func (r *Repo) CreateDevice(ctx context.Context, orgID, storeID uuid.UUID, fingerprint *string, displayName string, isPrimary bool) (Device, error) {
	query := `INSERT INTO devices (org_id, store_id, fingerprint, display_name, is_primary, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + deviceColumns
	d, err := scanDevice(r.dbtx.QueryRow(ctx, query, orgID, storeID, fingerprint, displayName, isPrimary, DeviceStatusActive))
	if err != nil {
		return Device{}, fmt.Errorf("inserting device: %w", err)
	}
	return d, nil
}

// GetDevice returns a device by id.
func (r *Repo) GetDevice(ctx context.Context, id uuid.UUID) (Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	d, err := scanDevice(r.dbtx.QueryRow(ctx, query, id))
	if err != nil {
		return Device{}, fmt.Errorf("fetching device: %w", err)
	}
	return d, nil
}

// ListDevicesByStore returns every device belonging to a store.
func (r *Repo) ListDevicesByStore(ctx context.Context, storeID uuid.UUID) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE store_id = $1 ORDER BY created_at ASC`
	rows, err := r.dbtx.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MostRecentlyUpdatedDevice returns the store's most recently updated
// device, used as the implicit canonical device when the store has none set
// (spec: "the most recently updated device acts as canonical").
func (r *Repo) MostRecentlyUpdatedDevice(ctx context.Context, storeID uuid.UUID) (Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE store_id = $1 ORDER BY updated_at DESC LIMIT 1`
	d, err := scanDevice(r.dbtx.QueryRow(ctx, query, storeID))
	if err != nil {
		return Device{}, fmt.Errorf("fetching most recently updated device: %w", err)
	}
	return d, nil
}

// CreateDeviceToken inserts a device's bearer-token hash.
func (r *Repo) CreateDeviceToken(ctx context.Context, deviceID uuid.UUID, tokenHash string) error {
	_, err := r.dbtx.Exec(ctx, `INSERT INTO device_tokens (device_id, token_hash) VALUES ($1, $2)`, deviceID, tokenHash)
	if err != nil {
		return fmt.Errorf("inserting device token: %w", err)
	}
	return nil
}

// GetDeviceByTokenHash joins device_tokens to devices by hash, returning the
// device and whether the token itself has been revoked.
func (r *Repo) GetDeviceByTokenHash(ctx context.Context, tokenHash string) (Device, bool, error) {
	query := `SELECT ` + deviceColumns + `, t.revoked_at
		FROM device_tokens t JOIN devices d ON d.id = t.device_id
		WHERE t.token_hash = $1`
	var d Device
	var revokedAt *time.Time
	err := r.dbtx.QueryRow(ctx, query, tokenHash).Scan(
		&d.ID, &d.OrgID, &d.StoreID, &d.Fingerprint, &d.DisplayName, &d.IsPrimary, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&revokedAt,
	)
	if err != nil {
		return Device{}, false, fmt.Errorf("looking up device token: %w", err)
	}
	return d, revokedAt == nil, nil
}

// CreateSyncState inserts an empty sync-state row for a newly activated device.
func (r *Repo) CreateSyncState(ctx context.Context, deviceID uuid.UUID) error {
	_, err := r.dbtx.Exec(ctx, `INSERT INTO device_sync_state (device_id, last_ack_seq) VALUES ($1, NULL)`, deviceID)
	if err != nil {
		return fmt.Errorf("inserting sync state: %w", err)
	}
	return nil
}

// GetSyncState returns a device's current watermark.
func (r *Repo) GetSyncState(ctx context.Context, deviceID uuid.UUID) (SyncState, error) {
	var s SyncState
	s.DeviceID = deviceID
	err := r.dbtx.QueryRow(ctx, `SELECT last_ack_seq, updated_at FROM device_sync_state WHERE device_id = $1`, deviceID).
		Scan(&s.LastAckSeq, &s.UpdatedAt)
	if err != nil {
		return SyncState{}, fmt.Errorf("fetching sync state: %w", err)
	}
	return s, nil
}

// AdvanceWatermark sets last_ack_seq to GREATEST(existing, proposed), never
// letting it decrease (spec invariant 2).
func (r *Repo) AdvanceWatermark(ctx context.Context, deviceID uuid.UUID, proposed int64) (int64, error) {
	var watermark int64
	err := r.dbtx.QueryRow(ctx, `
		UPDATE device_sync_state
		SET last_ack_seq = GREATEST(COALESCE(last_ack_seq, 0), $2), updated_at = now()
		WHERE device_id = $1
		RETURNING last_ack_seq`, deviceID, proposed).Scan(&watermark)
	if err != nil {
		return 0, fmt.Errorf("advancing watermark: %w", err)
	}
	return watermark, nil
}
