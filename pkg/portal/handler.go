package portal

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
	"github.com/Chosen17/TraqrPOSCloud/pkg/portalauth"
)

// Handler exposes the operator-facing routes enumerated in SPEC_FULL.md
// §6.1. Routes mounts one chi sub-router per resource family, each gated by
// portalauth.RequireMinRole; Handler itself never checks roles inline.
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the portal sub-router. The caller mounts this under
// /portal behind portalauth.Middleware (authentication only — role checks
// are attached per route group below).
func (h *Handler) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/orgs", h.createOrganization)
	r.With(portalauth.RequireMinRole(portalauth.RoleReadonly)).Get("/orgs/{orgID}", h.getOrganization)
	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/orgs/{orgID}/stores", h.createStore)
	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/orgs/{orgID}/activation-keys", h.issueActivationKey)

	r.With(portalauth.RequireMinRole(portalauth.RoleReadonly)).Get("/devices", h.listDevices)
	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/devices/{deviceID}/canonical", h.setCanonicalDevice)

	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/menu/categories", h.upsertCategory)
	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/menu/items", h.upsertItem)
	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/menu/items/{itemID}/modifiers", h.setItemModifiers)
	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/menu/dish-yields", h.upsertDishYield)

	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/orders/{orderID}/void", h.voidOrder)
	r.With(portalauth.RequireMinRole(portalauth.RoleManager)).Post("/orders/{orderID}/refund", h.refundOrder)

	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/entitlements/{orgID}/grant", h.grantEntitlement)
	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/entitlements/{orgID}/suspend", h.suspendEntitlement)
	r.With(portalauth.RequireMinRole(portalauth.RoleAdmin)).Post("/entitlements/{orgID}/reactivate", h.reactivateEntitlement)

	r.With(portalauth.RequireMinRole(portalauth.RoleReadonly)).Get("/device-config-alerts", h.listConfigAlerts)

	return r
}

func parseURLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func parseStoreIDQuery(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("store_id")
	if raw == "" {
		return uuid.Nil, apperr.BadRequest("store_id is required")
	}
	return uuid.Parse(raw)
}

type createOrganizationRequest struct {
	Name           string  `json:"name" validate:"required"`
	Slug           string  `json:"slug" validate:"required"`
	FirstStoreName string  `json:"first_store_name" validate:"required"`
	Timezone       *string `json:"timezone"`
}

type organizationResponse struct {
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	FirstStoreID *uuid.UUID `json:"first_store_id,omitempty"`
}

// createOrganization handles POST /portal/orgs.
func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	o, st, err := h.svc.CreateOrganization(r.Context(), CreateOrganizationParams{
		Name: req.Name, Slug: req.Slug, FirstStoreName: req.FirstStoreName, Timezone: req.Timezone,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, organizationResponse{
		OrgID: o.ID, Name: o.Name, Slug: o.Slug, Status: o.Status, FirstStoreID: &st.ID,
	})
}

// getOrganization handles GET /portal/orgs/{orgID}.
func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseURLParamUUID(r, "orgID")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("orgID is not a valid id"))
		return
	}

	o, err := h.svc.GetOrganization(r.Context(), orgID)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, organizationResponse{OrgID: o.ID, Name: o.Name, Slug: o.Slug, Status: o.Status})
}

type createStoreRequest struct {
	Name     string  `json:"name" validate:"required"`
	Timezone *string `json:"timezone"`
}

type storeResponse struct {
	StoreID uuid.UUID `json:"store_id"`
	OrgID   uuid.UUID `json:"org_id"`
	Name    string    `json:"name"`
}

// createStore handles POST /portal/orgs/{orgID}/stores.
func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseURLParamUUID(r, "orgID")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("orgID is not a valid id"))
		return
	}

	var req createStoreRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	st, err := h.svc.CreateStore(r.Context(), orgID, req.Name, req.Timezone)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, storeResponse{StoreID: st.ID, OrgID: st.OrgID, Name: st.Name})
}

type issueActivationKeyRequest struct {
	Scope     string     `json:"scope" validate:"required,oneof=store franchise org"`
	ScopeID   *uuid.UUID `json:"scope_id"`
	MaxUses   int        `json:"max_uses" validate:"gte=0"`
	ExpiresAt *string    `json:"expires_at"`
}

type activationKeyResponse struct {
	ActivationKeyID uuid.UUID `json:"activation_key_id"`
	RawSecret       string    `json:"raw_secret"`
	Scope           string    `json:"scope"`
	MaxUses         int       `json:"max_uses"`
	ExpiresAt       *string   `json:"expires_at,omitempty"`
}

// issueActivationKey handles POST /portal/orgs/{orgID}/activation-keys.
func (h *Handler) issueActivationKey(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseURLParamUUID(r, "orgID")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("orgID is not a valid id"))
		return
	}

	var req issueActivationKeyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			httpserver.RespondAppError(w, apperr.BadRequest("expires_at must be RFC3339"))
			return
		}
		expiresAt = &t
	}

	raw, key, err := h.svc.IssueActivationKey(r.Context(), identity.IssueActivationKeyParams{
		OrgID: orgID, Scope: req.Scope, ScopeID: req.ScopeID, MaxUses: req.MaxUses, ExpiresAt: expiresAt,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	resp := activationKeyResponse{ActivationKeyID: key.ID, RawSecret: raw, Scope: key.Scope, MaxUses: key.MaxUses}
	if key.ExpiresAt != nil {
		formatted := key.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &formatted
	}
	httpserver.Respond(w, http.StatusCreated, resp)
}

// listDevices handles GET /portal/devices?store_id=.
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	storeID, err := parseStoreIDQuery(r)
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("store_id is not a valid id"))
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("%v", err))
		return
	}

	devices, err := h.svc.ListDevices(r.Context(), storeID)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	total := len(devices)
	start := params.Offset
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(devices[start:end], params, total))
}

type setCanonicalDeviceRequest struct {
	StoreID uuid.UUID `json:"store_id" validate:"required"`
}

// setCanonicalDevice handles POST /portal/devices/{deviceID}/canonical.
func (h *Handler) setCanonicalDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := parseURLParamUUID(r, "deviceID")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("deviceID is not a valid id"))
		return
	}

	var req setCanonicalDeviceRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.SetCanonicalDevice(r.Context(), req.StoreID, deviceID); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type upsertCategoryRequest struct {
	StoreID         uuid.UUID `json:"store_id" validate:"required"`
	LocalCategoryID string    `json:"local_category_id" validate:"required"`
	Name            string    `json:"name" validate:"required"`
	ImageURL        *string   `json:"image_url"`
}

// upsertCategory handles POST /portal/menu/categories.
func (h *Handler) upsertCategory(w http.ResponseWriter, r *http.Request) {
	var req upsertCategoryRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.UpsertCategory(r.Context(), UpsertCategoryParams{
		StoreID: req.StoreID, LocalCategoryID: req.LocalCategoryID, Name: req.Name, ImageURL: req.ImageURL,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type upsertItemRequest struct {
	StoreID         uuid.UUID `json:"store_id" validate:"required"`
	LocalItemID     string    `json:"local_item_id" validate:"required"`
	LocalCategoryID *string   `json:"local_category_id"`
	Name            string    `json:"name" validate:"required"`
}

// upsertItem handles POST /portal/menu/items.
func (h *Handler) upsertItem(w http.ResponseWriter, r *http.Request) {
	var req upsertItemRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.UpsertItem(r.Context(), UpsertItemParams{
		StoreID: req.StoreID, LocalItemID: req.LocalItemID, LocalCategoryID: req.LocalCategoryID, Name: req.Name,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modifierRequest struct {
	Name       string `json:"name" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

type setItemModifiersRequest struct {
	StoreID   uuid.UUID         `json:"store_id" validate:"required"`
	Modifiers []modifierRequest `json:"modifiers" validate:"dive"`
}

// setItemModifiers handles POST /portal/menu/items/{itemID}/modifiers. The
// path parameter is the item's local_item_id, not an internal row id — the
// canonical device is resolved from store_id the same way every other
// direct menu write is.
func (h *Handler) setItemModifiers(w http.ResponseWriter, r *http.Request) {
	localItemID := chi.URLParam(r, "itemID")

	var req setItemModifiersRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	modifiers := make([]ModifierInput, len(req.Modifiers))
	for i, m := range req.Modifiers {
		modifiers[i] = ModifierInput{Name: m.Name, PriceCents: m.PriceCents}
	}

	if err := h.svc.SetItemModifiers(r.Context(), req.StoreID, localItemID, modifiers); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type upsertDishYieldRequest struct {
	StoreID     uuid.UUID `json:"store_id" validate:"required"`
	LocalDishID string    `json:"local_dish_id" validate:"required"`
	YieldQty    float64   `json:"yield_qty" validate:"gte=0"`
}

// upsertDishYield handles POST /portal/menu/dish-yields.
func (h *Handler) upsertDishYield(w http.ResponseWriter, r *http.Request) {
	var req upsertDishYieldRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.UpsertDishYield(r.Context(), req.StoreID, req.LocalDishID, req.YieldQty); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type voidOrderRequest struct {
	StoreID  uuid.UUID `json:"store_id" validate:"required"`
	DeviceID uuid.UUID `json:"device_id" validate:"required"`
	Reason   *string   `json:"reason"`
}

// voidOrder handles POST /portal/orders/{orderID}/void. The path parameter
// is the order's local_order_id.
func (h *Handler) voidOrder(w http.ResponseWriter, r *http.Request) {
	localOrderID := chi.URLParam(r, "orderID")

	id := portalauth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondAppError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var req voidOrderRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.VoidOrder(r.Context(), VoidOrderParams{
		OrgID: id.OrgID, StoreID: req.StoreID, DeviceID: req.DeviceID, LocalOrderID: localOrderID, Reason: req.Reason,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type refundOrderRequest struct {
	StoreID     uuid.UUID `json:"store_id" validate:"required"`
	DeviceID    uuid.UUID `json:"device_id" validate:"required"`
	AmountCents *int64    `json:"amount_cents"`
	Reason      *string   `json:"reason"`
}

// refundOrder handles POST /portal/orders/{orderID}/refund.
func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	localOrderID := chi.URLParam(r, "orderID")

	id := portalauth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondAppError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var req refundOrderRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.RefundOrder(r.Context(), RefundOrderParams{
		OrgID: id.OrgID, StoreID: req.StoreID, DeviceID: req.DeviceID, LocalOrderID: localOrderID,
		AmountCents: req.AmountCents, Reason: req.Reason,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

const entitlementPlanCode = identity.PlanCloudSync

// grantEntitlement handles POST /portal/entitlements/{orgID}/grant.
func (h *Handler) grantEntitlement(w http.ResponseWriter, r *http.Request) {
	h.entitlementTransition(w, r, h.svc.GrantEntitlement)
}

// suspendEntitlement handles POST /portal/entitlements/{orgID}/suspend.
func (h *Handler) suspendEntitlement(w http.ResponseWriter, r *http.Request) {
	h.entitlementTransition(w, r, h.svc.SuspendEntitlement)
}

// reactivateEntitlement handles POST /portal/entitlements/{orgID}/reactivate.
func (h *Handler) reactivateEntitlement(w http.ResponseWriter, r *http.Request) {
	h.entitlementTransition(w, r, h.svc.ReactivateEntitlement)
}

func (h *Handler) entitlementTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, orgID uuid.UUID, planCode string) error) {
	orgID, err := parseURLParamUUID(r, "orgID")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("orgID is not a valid id"))
		return
	}

	planCode := r.URL.Query().Get("plan_code")
	if planCode == "" {
		planCode = entitlementPlanCode
	}

	if err := transition(r.Context(), orgID, planCode); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type configAlertView struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  uuid.UUID `json:"device_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	CreatedAt string    `json:"created_at"`
}

// listConfigAlerts handles GET /portal/device-config-alerts?store_id=.
func (h *Handler) listConfigAlerts(w http.ResponseWriter, r *http.Request) {
	storeID, err := parseStoreIDQuery(r)
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("store_id is not a valid id"))
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("%v", err))
		return
	}

	alerts, total, err := h.svc.ListConfigAlertsPage(r.Context(), storeID, params.PageSize, params.Offset)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	views := make([]configAlertView, len(alerts))
	for i, a := range alerts {
		views[i] = configAlertView{
			ID: a.ID, DeviceID: a.DeviceID, EventType: a.EventType, Detail: a.Detail,
			CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(views, params, total))
}
