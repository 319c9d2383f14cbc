package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for org_entitlements.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates an entitlement Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

// Get returns the entitlement row for (org, plan). Returns an error if no
// row exists (callers treat "no row" as "not entitled", not a fault).
func (r *Repo) Get(ctx context.Context, orgID uuid.UUID, planCode string) (Entitlement, error) {
	var e Entitlement
	e.OrgID, e.PlanCode = orgID, planCode
	err := r.dbtx.QueryRow(ctx,
		`SELECT valid_from, valid_until, updated_at FROM org_entitlements WHERE org_id = $1 AND plan_code = $2`,
		orgID, planCode,
	).Scan(&e.ValidFrom, &e.ValidUntil, &e.UpdatedAt)
	if err != nil {
		return Entitlement{}, fmt.Errorf("fetching entitlement: %w", err)
	}
	return e, nil
}

// Upsert inserts or updates the (org, plan) row with the given validUntil.
func (r *Repo) Upsert(ctx context.Context, orgID uuid.UUID, planCode string, validUntil *time.Time) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO org_entitlements (org_id, plan_code, valid_from, valid_until, updated_at)
		VALUES ($1, $2, now(), $3, now())
		ON CONFLICT (org_id, plan_code) DO UPDATE
		SET valid_until = EXCLUDED.valid_until, updated_at = now()`,
		orgID, planCode, validUntil,
	)
	if err != nil {
		return fmt.Errorf("upserting entitlement: %w", err)
	}
	return nil
}
