package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
)

// ActivationKeyPrefix and DeviceTokenPrefix mark the two secret shapes this
// package issues, following the teacher's PATPrefix bookkeeping convention.
const (
	ActivationKeyPrefix = "trq_ak_"
	DeviceTokenPrefix   = "trq_dt_"
)

// EntitlementChecker is the narrow dependency this package needs on
// component D, injected to avoid an import cycle between pkg/identity and
// pkg/entitlement.
type EntitlementChecker interface {
	Active(ctx context.Context, orgID uuid.UUID, planCode string) (bool, error)
}

// PlanCloudSync is the plan code gating device activation and sync traffic.
const PlanCloudSync = "cloud_sync"

// Service implements component C: activation-key issuance, device
// activation, and bearer-token validation.
type Service struct {
	repo         *Repo
	orgRepo      *org.Repo
	entitlements EntitlementChecker
	pollInterval int
}

// NewService builds a Service. pollIntervalSeconds is returned to devices as
// the polling hint on activation.
func NewService(repo *Repo, orgRepo *org.Repo, entitlements EntitlementChecker, pollIntervalSeconds int) *Service {
	return &Service{repo: repo, orgRepo: orgRepo, entitlements: entitlements, pollInterval: pollIntervalSeconds}
}

func generateSecret(prefix string) string {
	// 15 random bytes base32-encoded gives 24 chars (120 bits), well above
	// the spec's 64-bit entropy floor.
	buf := make([]byte, 15)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("identity: reading random bytes: %v", err))
	}
	enc := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf))
	return prefix + enc
}

func hashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueActivationKeyParams are the caller-supplied inputs to IssueActivationKey.
type IssueActivationKeyParams struct {
	OrgID     uuid.UUID
	Scope     string
	ScopeID   *uuid.UUID
	MaxUses   int
	ExpiresAt *time.Time
}

// IssueActivationKey generates a fresh activation secret, stores only its
// hash, and returns the raw secret exactly once.
func (s *Service) IssueActivationKey(ctx context.Context, p IssueActivationKeyParams) (rawSecret string, key ActivationKey, err error) {
	if p.Scope == ScopeStore && p.ScopeID == nil {
		return "", ActivationKey{}, apperr.BadRequest("scope=store requires scope_id")
	}
	if p.MaxUses <= 0 {
		p.MaxUses = 1
	}

	raw := generateSecret(ActivationKeyPrefix)
	hash := hashSecret(raw)

	key, err = s.repo.CreateActivationKey(ctx, p.OrgID, p.Scope, p.ScopeID, hash, p.MaxUses, p.ExpiresAt)
	if err != nil {
		return "", ActivationKey{}, apperr.Internal(err)
	}
	return raw, key, nil
}

// ActivateDeviceParams are the caller-supplied inputs to ActivateDevice.
type ActivateDeviceParams struct {
	RawActivationKey string
	StoreHint        *uuid.UUID
	DeviceName       string
	IsPrimary        bool
	Fingerprint      *string
}

// ActivateDeviceResult is returned to the device on successful activation.
type ActivateDeviceResult struct {
	DeviceID               uuid.UUID
	OrgID                  uuid.UUID
	StoreID                uuid.UUID
	RawDeviceToken         string
	PollingIntervalSeconds int
}

// ActivateDevice implements the five-step activation procedure from spec §4.2.
func (s *Service) ActivateDevice(ctx context.Context, p ActivateDeviceParams) (ActivateDeviceResult, error) {
	// 1. Hash and look up; reject if not found or revoked.
	hash := hashSecret(p.RawActivationKey)
	key, err := s.repo.GetActivationKeyByHash(ctx, hash)
	if err != nil {
		return ActivateDeviceResult{}, apperr.Unauthorized("invalid activation key")
	}
	if key.RevokedAt != nil {
		return ActivateDeviceResult{}, apperr.Unauthorized("activation key has been revoked")
	}

	// 2. Check entitlement for cloud_sync on the key's org.
	active, err := s.entitlements.Active(ctx, key.OrgID, PlanCloudSync)
	if err != nil {
		return ActivateDeviceResult{}, apperr.Internal(err)
	}
	if !active {
		return ActivateDeviceResult{}, apperr.Forbidden("organization does not have an active cloud_sync entitlement")
	}

	// 3. Enforce expiry and max-uses.
	now := time.Now()
	if key.Expired(now) {
		return ActivateDeviceResult{}, apperr.Unauthorized("activation key has expired")
	}
	if key.Exhausted() {
		return ActivateDeviceResult{}, apperr.Unauthorized("activation key has reached its use limit")
	}

	// 4. Resolve target store.
	storeID, err := s.resolveTargetStore(ctx, key, p.StoreHint)
	if err != nil {
		return ActivateDeviceResult{}, err
	}

	// 5. Create device, sync state, token; increment uses atomically.
	name := p.DeviceName
	if name == "" {
		name = "Unnamed device"
	}
	device, err := s.repo.CreateDevice(ctx, key.OrgID, storeID, p.Fingerprint, name, p.IsPrimary)
	if err != nil {
		return ActivateDeviceResult{}, apperr.Internal(err)
	}
	if err := s.repo.CreateSyncState(ctx, device.ID); err != nil {
		return ActivateDeviceResult{}, apperr.Internal(err)
	}

	rawToken := generateSecret(DeviceTokenPrefix)
	if err := s.repo.CreateDeviceToken(ctx, device.ID, hashSecret(rawToken)); err != nil {
		return ActivateDeviceResult{}, apperr.Internal(err)
	}

	if err := s.repo.IncrementActivationKeyUses(ctx, key.ID); err != nil {
		return ActivateDeviceResult{}, apperr.Conflict("activation key was exhausted by a concurrent request")
	}

	return ActivateDeviceResult{
		DeviceID:               device.ID,
		OrgID:                  key.OrgID,
		StoreID:                storeID,
		RawDeviceToken:         rawToken,
		PollingIntervalSeconds: s.pollInterval,
	}, nil
}

func (s *Service) resolveTargetStore(ctx context.Context, key ActivationKey, storeHint *uuid.UUID) (uuid.UUID, error) {
	switch key.Scope {
	case ScopeStore:
		return *key.ScopeID, nil
	case ScopeFranchise, ScopeOrg:
		if storeHint != nil {
			st, err := s.orgRepo.GetStore(ctx, *storeHint)
			if err != nil {
				return uuid.Nil, apperr.BadRequest("store_hint does not exist")
			}
			if st.OrgID != key.OrgID {
				return uuid.Nil, apperr.BadRequest("store_hint does not belong to the activation key's organization")
			}
			return st.ID, nil
		}
		stores, err := s.orgRepo.ListStoresByOrg(ctx, key.OrgID)
		if err != nil {
			return uuid.Nil, apperr.Internal(err)
		}
		if len(stores) == 0 {
			return uuid.Nil, apperr.BadRequest("organization has no stores to activate into")
		}
		return stores[0].ID, nil
	default:
		return uuid.Nil, apperr.BadRequest("unknown activation key scope %q", key.Scope)
	}
}

// ValidateBearerToken hashes and looks up a raw device bearer token, joined
// with the owning device row. It fails unless the token is unrevoked and the
// device is active.
func (s *Service) ValidateBearerToken(ctx context.Context, rawToken string) (Principal, error) {
	if !strings.HasPrefix(rawToken, DeviceTokenPrefix) {
		return Principal{}, apperr.Unauthorized("malformed device token")
	}

	hash := hashSecret(rawToken)
	device, unrevoked, err := s.repo.GetDeviceByTokenHash(ctx, hash)
	if err != nil {
		return Principal{}, apperr.Unauthorized("invalid device token")
	}
	if !unrevoked || device.Status != DeviceStatusActive {
		return Principal{}, apperr.Unauthorized("device token revoked or device retired")
	}

	return Principal{DeviceID: device.ID, OrgID: device.OrgID, StoreID: device.StoreID}, nil
}
