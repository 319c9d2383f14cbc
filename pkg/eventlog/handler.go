package eventlog

import (
	"net/http"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// Handler exposes POST /sync/events, mounted behind identity.Middleware and
// entitlement.RequireActive (spec §6).
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type syncEventsRequest struct {
	LastAckSeq *int64       `json:"last_ack_seq"`
	Events     []EventInput `json:"events" validate:"required,dive"`
}

type syncEventsResponse struct {
	AckSeq int64 `json:"ack_seq"`
}

// SyncEvents handles POST /sync/events.
func (h *Handler) SyncEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
		return
	}

	var req syncEventsRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.Ingest(r.Context(), principal, req.LastAckSeq, req.Events)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, syncEventsResponse{AckSeq: result.AckSeq})
}
