package org

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for organizations, stores, users and
// memberships.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates an org Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

const orgColumns = `id, name, slug, status, created_at, updated_at`

func scanOrg(row pgx.Row) (Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrganization inserts a new organization in "active" status.
func (s *Repo) CreateOrganization(ctx context.Context, name, slug string) (Organization, error) {
	query := `INSERT INTO organizations (name, slug, status) VALUES ($1, $2, $3) RETURNING ` + orgColumns
	row := s.dbtx.QueryRow(ctx, query, name, slug, StatusActive)
	o, err := scanOrg(row)
	if err != nil {
		return Organization{}, fmt.Errorf("inserting organization: %w", err)
	}
	return o, nil
}

// GetOrganization returns an organization by id.
func (s *Repo) GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	o, err := scanOrg(s.dbtx.QueryRow(ctx, query, id))
	if err != nil {
		return Organization{}, fmt.Errorf("fetching organization: %w", err)
	}
	return o, nil
}

// SetOrganizationStatus updates an organization's status.
func (s *Repo) SetOrganizationStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE organizations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating organization status: %w", err)
	}
	return nil
}

const storeColumns = `id, org_id, name, timezone, canonical_device_id, created_at, updated_at`

func scanStore(row pgx.Row) (StoreEntity, error) {
	var st StoreEntity
	err := row.Scan(&st.ID, &st.OrgID, &st.Name, &st.Timezone, &st.CanonicalDeviceID, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// CreateStore inserts a new store for an organization.
func (s *Repo) CreateStore(ctx context.Context, orgID uuid.UUID, name string, timezone *string) (StoreEntity, error) {
	query := `INSERT INTO stores (org_id, name, timezone) VALUES ($1, $2, $3) RETURNING ` + storeColumns
	st, err := scanStore(s.dbtx.QueryRow(ctx, query, orgID, name, timezone))
	if err != nil {
		return StoreEntity{}, fmt.Errorf("inserting store: %w", err)
	}
	return st, nil
}

// GetStore returns a store by id.
func (s *Repo) GetStore(ctx context.Context, id uuid.UUID) (StoreEntity, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	st, err := scanStore(s.dbtx.QueryRow(ctx, query, id))
	if err != nil {
		return StoreEntity{}, fmt.Errorf("fetching store: %w", err)
	}
	return st, nil
}

// ListStoresByOrg returns every store belonging to an organization, ordered
// by creation time (used to pick "the org's earliest active store" during
// activation).
func (s *Repo) ListStoresByOrg(ctx context.Context, orgID uuid.UUID) ([]StoreEntity, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE org_id = $1 ORDER BY created_at ASC`
	rows, err := s.dbtx.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	defer rows.Close()

	var out []StoreEntity
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SetCanonicalDevice sets a store's canonical-device-id.
func (s *Repo) SetCanonicalDevice(ctx context.Context, storeID, deviceID uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE stores SET canonical_device_id = $2, updated_at = now() WHERE id = $1`, storeID, deviceID)
	if err != nil {
		return fmt.Errorf("setting canonical device: %w", err)
	}
	return nil
}
