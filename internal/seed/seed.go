// Package seed provisions development data: an organization, a store, a
// portal operator, a cloud_sync entitlement, and an activation key ready to
// paste into a device. Grounded on the teacher's internal/seed.Run shape
// (idempotent, logs each row it creates) adapted from tenant provisioning to
// row-scoped organization creation.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Chosen17/TraqrPOSCloud/pkg/entitlement"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
)

// DevOwnerEmail and DevOwnerPassword are the portal credentials seeded for
// development/testing. They are only created by the seed command and
// should never be used in production.
const (
	DevOwnerEmail    = "owner@acme-cafe.example.com"
	DevOwnerPassword = "traqr-dev-seed-do-not-use-in-production"
)

// Run provisions the "Acme Cafe" development organization with a single
// store. It is idempotent: if the organization already exists it logs a
// message and returns nil.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	orgRepo := org.NewRepo(pool)

	if _, err := orgRepo.GetUserByEmail(ctx, DevOwnerEmail); err == nil {
		logger.Info("seed: organization owner already exists, skipping", "email", DevOwnerEmail)
		return nil
	}

	organization, err := orgRepo.CreateOrganization(ctx, "Acme Cafe", "acme-cafe")
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}
	logger.Info("seed: created organization", "id", organization.ID, "slug", organization.Slug)

	tz := "Europe/London"
	store, err := orgRepo.CreateStore(ctx, organization.ID, "Acme Cafe — High Street", &tz)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	logger.Info("seed: created store", "id", store.ID, "name", store.Name)

	hash, err := bcrypt.GenerateFromPassword([]byte(DevOwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing owner password: %w", err)
	}
	hashStr := string(hash)
	owner, err := orgRepo.CreateUser(ctx, DevOwnerEmail, "Acme Cafe Owner", &hashStr)
	if err != nil {
		return fmt.Errorf("creating owner user: %w", err)
	}
	if _, err := orgRepo.CreateMembership(ctx, owner.ID, organization.ID, nil, org.RoleAdmin); err != nil {
		return fmt.Errorf("creating owner membership: %w", err)
	}
	logger.Info("seed: created portal owner", "email", owner.Email, "password", DevOwnerPassword)

	entitlementRepo := entitlement.NewRepo(pool)
	entitlementSvc := entitlement.NewService(entitlementRepo)
	if err := entitlementSvc.Grant(ctx, organization.ID, identity.PlanCloudSync); err != nil {
		return fmt.Errorf("granting cloud_sync entitlement: %w", err)
	}
	logger.Info("seed: granted cloud_sync entitlement", "org_id", organization.ID)

	identityRepo := identity.NewRepo(pool)
	identitySvc := identity.NewService(identityRepo, orgRepo, entitlementSvc, 30)
	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	rawKey, key, err := identitySvc.IssueActivationKey(ctx, identity.IssueActivationKeyParams{
		OrgID:     organization.ID,
		Scope:     identity.ScopeStore,
		ScopeID:   &store.ID,
		MaxUses:   5,
		ExpiresAt: &expiresAt,
	})
	if err != nil {
		return fmt.Errorf("issuing activation key: %w", err)
	}
	logger.Info("seed: issued device activation key", "id", key.ID, "raw_key", rawKey)

	logger.Info("seed: completed successfully",
		"organization", organization.Slug,
		"stores", 1,
		"owners", 1,
	)
	return nil
}
