package commandqueue

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// Handler exposes the device-facing command-queue routes: GET /sync/commands
// and POST /sync/commands/ack (spec §6).
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type fetchResponse struct {
	Commands []CommandView `json:"commands"`
}

// Fetch handles GET /sync/commands?limit=.
func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
		return
	}

	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpserver.RespondAppError(w, apperr.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	commands, err := h.svc.Fetch(r.Context(), principal.DeviceID, limit)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}
	if commands == nil {
		commands = []CommandView{}
	}

	httpserver.Respond(w, http.StatusOK, fetchResponse{Commands: commands})
}

type ackRequest struct {
	CommandID uuid.UUID `json:"command_id" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=acked failed"`
	Result    *string   `json:"result"`
}

// Ack handles POST /sync/commands/ack.
func (h *Handler) Ack(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
		return
	}

	var req ackRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Ack(r.Context(), principal.DeviceID, req.CommandID, req.Status, req.Result); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
