package billing

import (
	"io"
	"net/http"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
)

// maxWebhookBodyBytes bounds an inbound billing webhook payload.
const maxWebhookBodyBytes = 1 << 20 // 1 MiB

// Handler exposes POST /billing/stripe/webhook (spec §6).
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Receive handles POST /billing/stripe/webhook. Unauthenticated route —
// authenticity is established by the Stripe-Signature check inside
// Service.HandleWebhook.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpserver.RespondAppError(w, apperr.New(apperr.KindPayloadTooLarge, "webhook body exceeds the maximum allowed size"))
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), r.Header.Get("Stripe-Signature"), body); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
