package portal

import (
	"context"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/pkg/commandqueue"
	"github.com/Chosen17/TraqrPOSCloud/pkg/entitlement"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/menu"
	"github.com/Chosen17/TraqrPOSCloud/pkg/org"
	"github.com/Chosen17/TraqrPOSCloud/pkg/projector"
)

// Service implements component I's operations, composing every domain
// package the portal surface fronts.
type Service struct {
	orgRepo      *org.Repo
	identitySvc  *identity.Service
	identityRepo *identity.Repo
	entitlements *entitlement.Service
	menuRepo     *menu.Repo
	canonical    *projector.CanonicalChecker
	commands     *commandqueue.Service
}

// NewService builds a Service.
func NewService(
	orgRepo *org.Repo,
	identitySvc *identity.Service,
	identityRepo *identity.Repo,
	entitlements *entitlement.Service,
	menuRepo *menu.Repo,
	canonical *projector.CanonicalChecker,
	commands *commandqueue.Service,
) *Service {
	return &Service{
		orgRepo:      orgRepo,
		identitySvc:  identitySvc,
		identityRepo: identityRepo,
		entitlements: entitlements,
		menuRepo:     menuRepo,
		canonical:    canonical,
		commands:     commands,
	}
}

// CreateOrganizationParams are the inputs to CreateOrganization.
type CreateOrganizationParams struct {
	Name          string
	Slug          string
	FirstStoreName string
	Timezone      *string
}

// CreateOrganization creates an organization plus its first store, mirroring
// the sign-up-creates-org flow spec.md §1 calls out of scope (minus the
// sign-up UI itself).
func (s *Service) CreateOrganization(ctx context.Context, p CreateOrganizationParams) (org.Organization, org.StoreEntity, error) {
	o, err := s.orgRepo.CreateOrganization(ctx, p.Name, p.Slug)
	if err != nil {
		return org.Organization{}, org.StoreEntity{}, apperr.Internal(err)
	}
	st, err := s.orgRepo.CreateStore(ctx, o.ID, p.FirstStoreName, p.Timezone)
	if err != nil {
		return org.Organization{}, org.StoreEntity{}, apperr.Internal(err)
	}
	return o, st, nil
}

// GetOrganization returns an organization by id.
func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (org.Organization, error) {
	o, err := s.orgRepo.GetOrganization(ctx, id)
	if err != nil {
		return org.Organization{}, apperr.NotFound("organization not found")
	}
	return o, nil
}

// CreateStore adds a store to an existing organization.
func (s *Service) CreateStore(ctx context.Context, orgID uuid.UUID, name string, timezone *string) (org.StoreEntity, error) {
	st, err := s.orgRepo.CreateStore(ctx, orgID, name, timezone)
	if err != nil {
		return org.StoreEntity{}, apperr.Internal(err)
	}
	return st, nil
}

// IssueActivationKey wraps component C's key issuance.
func (s *Service) IssueActivationKey(ctx context.Context, p identity.IssueActivationKeyParams) (string, identity.ActivationKey, error) {
	return s.identitySvc.IssueActivationKey(ctx, p)
}

// ListDevices returns every device of a store, flagging the one that
// currently resolves as canonical.
func (s *Service) ListDevices(ctx context.Context, storeID uuid.UUID) ([]DeviceView, error) {
	devices, err := s.identityRepo.ListDevicesByStore(ctx, storeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(devices) == 0 {
		return []DeviceView{}, nil
	}

	canonicalID, err := s.canonical.CanonicalDeviceID(ctx, storeID)
	if err != nil {
		// No resolvable canonical device (e.g. the store has no devices at
		// all is already excluded above); report none as canonical rather
		// than failing the listing.
		canonicalID = uuid.Nil
	}

	views := make([]DeviceView, len(devices))
	for i, d := range devices {
		views[i] = DeviceView{
			DeviceID:    d.ID,
			DisplayName: d.DisplayName,
			Status:      d.Status,
			IsPrimary:   d.IsPrimary,
			Canonical:   d.ID == canonicalID,
			UpdatedAt:   d.UpdatedAt,
		}
	}
	return views, nil
}

// SetCanonicalDevice sets a store's canonical device, after checking the
// device actually belongs to the store.
func (s *Service) SetCanonicalDevice(ctx context.Context, storeID, deviceID uuid.UUID) error {
	device, err := s.identityRepo.GetDevice(ctx, deviceID)
	if err != nil {
		return apperr.NotFound("device not found")
	}
	if device.StoreID != storeID {
		return apperr.BadRequest("device does not belong to this store")
	}
	if err := s.orgRepo.SetCanonicalDevice(ctx, storeID, deviceID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// resolveWriteTarget resolves the store and its canonical device, the single
// device whose rows a direct portal menu write lands on (spec.md §9's "two
// distinct menu write paths" — the portal never targets a non-canonical
// device directly).
func (s *Service) resolveWriteTarget(ctx context.Context, storeID uuid.UUID) (org.StoreEntity, uuid.UUID, error) {
	st, err := s.orgRepo.GetStore(ctx, storeID)
	if err != nil {
		return org.StoreEntity{}, uuid.Nil, apperr.NotFound("store not found")
	}
	deviceID, err := s.canonical.CanonicalDeviceID(ctx, storeID)
	if err != nil {
		return org.StoreEntity{}, uuid.Nil, apperr.BadRequest("store has no device to host a menu write yet")
	}
	return st, deviceID, nil
}

// fanOutApplyMenu enqueues a non-sensitive apply_menu refresh cue to every
// device of a store (spec §4.5, §9).
func (s *Service) fanOutApplyMenu(ctx context.Context, orgID, storeID uuid.UUID) error {
	devices, err := s.identityRepo.ListDevicesByStore(ctx, storeID)
	if err != nil {
		return apperr.Internal(err)
	}
	body := marshalApplyMenuBody("menu_updated")
	for _, d := range devices {
		if err := s.commands.EnqueueApplyMenu(ctx, orgID, storeID, d.ID, body); err != nil {
			return err
		}
	}
	return nil
}

// UpsertCategoryParams are the inputs to UpsertCategory.
type UpsertCategoryParams struct {
	StoreID         uuid.UUID
	LocalCategoryID string
	Name            string
	ImageURL        *string
}

// UpsertCategory writes a category directly (never through the event log)
// against the store's canonical device, then fans apply_menu out to every
// device of the store.
func (s *Service) UpsertCategory(ctx context.Context, p UpsertCategoryParams) error {
	st, deviceID, err := s.resolveWriteTarget(ctx, p.StoreID)
	if err != nil {
		return err
	}
	if err := s.menuRepo.UpsertCategory(ctx, deviceID, p.LocalCategoryID, p.Name); err != nil {
		return apperr.Internal(err)
	}
	if p.ImageURL != nil {
		if err := s.menuRepo.SetCategoryImage(ctx, deviceID, p.LocalCategoryID, p.ImageURL); err != nil {
			return apperr.Internal(err)
		}
	}
	return s.fanOutApplyMenu(ctx, st.OrgID, st.ID)
}

// UpsertItemParams are the inputs to UpsertItem.
type UpsertItemParams struct {
	StoreID         uuid.UUID
	LocalItemID     string
	LocalCategoryID *string
	Name            string
}

// UpsertItem writes an item directly against the store's canonical device,
// then fans apply_menu out to every device of the store.
func (s *Service) UpsertItem(ctx context.Context, p UpsertItemParams) error {
	st, deviceID, err := s.resolveWriteTarget(ctx, p.StoreID)
	if err != nil {
		return err
	}
	if err := s.menuRepo.UpsertItem(ctx, deviceID, p.LocalItemID, p.LocalCategoryID, p.Name); err != nil {
		return apperr.Internal(err)
	}
	return s.fanOutApplyMenu(ctx, st.OrgID, st.ID)
}

// ModifierInput is a single modifier in a SetItemModifiers call.
type ModifierInput struct {
	Name       string
	PriceCents int64
}

// SetItemModifiers replaces an item's modifier set, then fans apply_menu out.
func (s *Service) SetItemModifiers(ctx context.Context, storeID uuid.UUID, localItemID string, modifiers []ModifierInput) error {
	st, deviceID, err := s.resolveWriteTarget(ctx, storeID)
	if err != nil {
		return err
	}
	itemID, err := s.menuRepo.GetItemID(ctx, deviceID, localItemID)
	if err != nil {
		return apperr.NotFound("item %q not found on the canonical device", localItemID)
	}

	rows := make([]menu.Modifier, len(modifiers))
	for i, m := range modifiers {
		rows[i] = menu.Modifier{Name: m.Name, PriceCents: m.PriceCents}
	}
	if err := s.menuRepo.SetItemModifiers(ctx, itemID, rows); err != nil {
		return apperr.Internal(err)
	}
	return s.fanOutApplyMenu(ctx, st.OrgID, st.ID)
}

// UpsertDishYield writes a dish-yield row directly, then fans apply_menu out.
func (s *Service) UpsertDishYield(ctx context.Context, storeID uuid.UUID, localDishID string, yieldQty float64) error {
	st, deviceID, err := s.resolveWriteTarget(ctx, storeID)
	if err != nil {
		return err
	}
	if err := s.menuRepo.UpsertDishYield(ctx, deviceID, localDishID, yieldQty); err != nil {
		return apperr.Internal(err)
	}
	return s.fanOutApplyMenu(ctx, st.OrgID, st.ID)
}

// VoidOrderParams are the inputs to VoidOrder.
type VoidOrderParams struct {
	OrgID        uuid.UUID
	StoreID      uuid.UUID
	DeviceID     uuid.UUID
	LocalOrderID string
	Reason       *string
}

// VoidOrder enqueues a sensitive void_order command to the order's owning
// device. Only this handler path may set the sensitive flag (spec §4.4).
func (s *Service) VoidOrder(ctx context.Context, p VoidOrderParams) error {
	return s.enqueueSensitive(ctx, p.OrgID, p.StoreID, p.DeviceID, commandqueue.TypeVoidOrder, p.LocalOrderID, p.Reason, nil)
}

// RefundOrderParams are the inputs to RefundOrder.
type RefundOrderParams struct {
	OrgID        uuid.UUID
	StoreID      uuid.UUID
	DeviceID     uuid.UUID
	LocalOrderID string
	AmountCents  *int64
	Reason       *string
}

// RefundOrder enqueues a sensitive refund_order command.
func (s *Service) RefundOrder(ctx context.Context, p RefundOrderParams) error {
	return s.enqueueSensitive(ctx, p.OrgID, p.StoreID, p.DeviceID, commandqueue.TypeRefundOrder, p.LocalOrderID, p.Reason, p.AmountCents)
}

func (s *Service) enqueueSensitive(ctx context.Context, orgID, storeID, deviceID uuid.UUID, commandType, localOrderID string, reason *string, amountCents *int64) error {
	device, err := s.identityRepo.GetDevice(ctx, deviceID)
	if err != nil {
		return apperr.NotFound("device not found")
	}
	if device.StoreID != storeID || device.OrgID != orgID {
		return apperr.BadRequest("device does not belong to this store")
	}

	body, err := marshalSensitiveBody(localOrderID, reason, amountCents)
	if err != nil {
		return apperr.Internal(err)
	}
	return s.commands.EnqueueSensitive(ctx, orgID, storeID, deviceID, commandType, body)
}

// GrantEntitlement grants an org's plan entitlement indefinitely.
func (s *Service) GrantEntitlement(ctx context.Context, orgID uuid.UUID, planCode string) error {
	if err := s.entitlements.Grant(ctx, orgID, planCode); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SuspendEntitlement ends an org's plan entitlement immediately.
func (s *Service) SuspendEntitlement(ctx context.Context, orgID uuid.UUID, planCode string) error {
	if err := s.entitlements.Suspend(ctx, orgID, planCode); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ReactivateEntitlement restores an org's plan entitlement.
func (s *Service) ReactivateEntitlement(ctx context.Context, orgID uuid.UUID, planCode string) error {
	if err := s.entitlements.Reactivate(ctx, orgID, planCode); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ListConfigAlerts surfaces recent canonical-device conflicts for a store.
func (s *Service) ListConfigAlerts(ctx context.Context, storeID uuid.UUID, limit int) ([]menu.ConfigAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	alerts, err := s.menuRepo.ListConfigAlerts(ctx, storeID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if alerts == nil {
		alerts = []menu.ConfigAlert{}
	}
	return alerts, nil
}

// ListConfigAlertsPage surfaces a paginated page of config alerts for a
// store, alongside the total count needed for httpserver.NewOffsetPage.
func (s *Service) ListConfigAlertsPage(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]menu.ConfigAlert, int, error) {
	alerts, err := s.menuRepo.ListConfigAlertsPage(ctx, storeID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	if alerts == nil {
		alerts = []menu.ConfigAlert{}
	}
	total, err := s.menuRepo.CountConfigAlerts(ctx, storeID)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return alerts, total, nil
}
