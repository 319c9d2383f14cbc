package identity

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
)

// Handler exposes the single unauthenticated device-facing route,
// POST /device/activate (spec §6). Every other device route requires the
// bearer token this handler issues, so it is mounted outside Middleware.
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type activateRequest struct {
	ActivationKey string  `json:"activation_key" validate:"required"`
	StoreHint     *string `json:"store_hint"`
	DeviceName    *string `json:"device_name"`
	IsPrimary     bool    `json:"is_primary"`
}

type activateResponse struct {
	DeviceID               uuid.UUID `json:"device_id"`
	OrgID                  uuid.UUID `json:"org_id"`
	StoreID                uuid.UUID `json:"store_id"`
	DeviceToken            string    `json:"device_token"`
	PollingIntervalSeconds int       `json:"polling_interval_seconds"`
}

// Activate handles POST /device/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	var storeHint *uuid.UUID
	if req.StoreHint != nil && *req.StoreHint != "" {
		id, err := uuid.Parse(*req.StoreHint)
		if err != nil {
			httpserver.RespondAppError(w, apperr.BadRequest("store_hint is not a valid id"))
			return
		}
		storeHint = &id
	}

	name := ""
	if req.DeviceName != nil {
		name = *req.DeviceName
	}

	result, err := h.svc.ActivateDevice(r.Context(), ActivateDeviceParams{
		RawActivationKey: req.ActivationKey,
		StoreHint:        storeHint,
		DeviceName:       name,
		IsPrimary:        req.IsPrimary,
	})
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, activateResponse{
		DeviceID:               result.DeviceID,
		OrgID:                  result.OrgID,
		StoreID:                result.StoreID,
		DeviceToken:            result.RawDeviceToken,
		PollingIntervalSeconds: result.PollingIntervalSeconds,
	})
}
