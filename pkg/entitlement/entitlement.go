// Package entitlement implements the per-organization plan gate (component
// D): a single predicate, active(org, plan), checked on every
// device-token-authenticated call, plus the grant/suspend/reactivate state
// transitions that back it.
package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Entitlement asserts that an organization is licensed for a plan within a
// time interval. "Active" iff ValidUntil is nil or in the future.
type Entitlement struct {
	OrgID     uuid.UUID
	PlanCode  string
	ValidFrom time.Time
	ValidUntil *time.Time
	UpdatedAt time.Time
}

// Active reports whether the entitlement is in force at t.
func (e Entitlement) Active(t time.Time) bool {
	return e.ValidUntil == nil || e.ValidUntil.After(t)
}

// Service implements component D.
type Service struct {
	repo *Repo
}

// NewService builds a Service.
func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Active implements the identity.EntitlementChecker interface consumed by
// pkg/identity during device activation and by every device-gated handler.
func (s *Service) Active(ctx context.Context, orgID uuid.UUID, planCode string) (bool, error) {
	ent, err := s.repo.Get(ctx, orgID, planCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // no row at all means not entitled, not an error
		}
		return false, err
	}
	return ent.Active(time.Now()), nil
}

// Grant inserts or updates (org, plan) with valid_until = NULL.
func (s *Service) Grant(ctx context.Context, orgID uuid.UUID, planCode string) error {
	return s.repo.Upsert(ctx, orgID, planCode, nil)
}

// Suspend sets valid_until = now.
func (s *Service) Suspend(ctx context.Context, orgID uuid.UUID, planCode string) error {
	now := time.Now()
	return s.repo.Upsert(ctx, orgID, planCode, &now)
}

// Reactivate sets valid_until = NULL, creating the row if absent.
func (s *Service) Reactivate(ctx context.Context, orgID uuid.UUID, planCode string) error {
	return s.repo.Upsert(ctx, orgID, planCode, nil)
}
