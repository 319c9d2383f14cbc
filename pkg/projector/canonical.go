// Package projector dispatches newly inserted device-event-log rows into
// the two read models (order-history and menu/configuration), enforcing the
// canonical-device invariant on every config write (spec §4.5). Grounded on
// the teacher's pkg/alert/webhook.go enrichment step, which is likewise
// best-effort and never fails the request it runs under.
package projector

import (
	"context"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
)

// CanonicalChecker resolves a store's canonical device, falling back to the
// most recently updated device when the store has none set explicitly.
type CanonicalChecker struct {
	orgRepo      *org.Repo
	identityRepo *identity.Repo
}

// NewCanonicalChecker builds a CanonicalChecker.
func NewCanonicalChecker(orgRepo *org.Repo, identityRepo *identity.Repo) *CanonicalChecker {
	return &CanonicalChecker{orgRepo: orgRepo, identityRepo: identityRepo}
}

// IsCanonical reports whether deviceID is the canonical device for storeID.
// If the store has no canonical device recorded, the most recently updated
// device of the store acts as canonical, computed fresh on each call (see
// DESIGN.md: not cached, to avoid serving a stale answer after a device
// update race).
func (c *CanonicalChecker) IsCanonical(ctx context.Context, storeID, deviceID uuid.UUID) (bool, error) {
	store, err := c.orgRepo.GetStore(ctx, storeID)
	if err != nil {
		return false, err
	}
	if store.CanonicalDeviceID != nil {
		return *store.CanonicalDeviceID == deviceID, nil
	}

	fallback, err := c.identityRepo.MostRecentlyUpdatedDevice(ctx, storeID)
	if err != nil {
		return false, err
	}
	return fallback.ID == deviceID, nil
}

// CanonicalDeviceID resolves storeID's canonical device id, falling back to
// the most recently updated device when the store has none set explicitly.
// Used by pkg/menu to satisfy GET /sync/menu?copy_from_store_id=.
func (c *CanonicalChecker) CanonicalDeviceID(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	store, err := c.orgRepo.GetStore(ctx, storeID)
	if err != nil {
		return uuid.Nil, err
	}
	if store.CanonicalDeviceID != nil {
		return *store.CanonicalDeviceID, nil
	}

	fallback, err := c.identityRepo.MostRecentlyUpdatedDevice(ctx, storeID)
	if err != nil {
		return uuid.Nil, err
	}
	return fallback.ID, nil
}
