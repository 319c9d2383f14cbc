package webhook

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/delivery"
)

// maxWebhookBodyBytes bounds an inbound provider webhook payload.
const maxWebhookBodyBytes = 2 << 20 // 2 MiB

// Handler exposes the three provider webhook routes (spec §6):
// POST /webhooks/just_eat, /webhooks/deliveroo, /webhooks/uber_eats.
type Handler struct {
	svc *Service
}

// NewHandler builds a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Receive handles POST /webhooks/{provider}. Unauthenticated route —
// authenticity is established by the provider-specific signature check
// inside Service.Ingest, not by bearer auth.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	switch provider {
	case delivery.ProviderJustEat, delivery.ProviderDeliveroo, delivery.ProviderUberEats:
	default:
		httpserver.RespondAppError(w, apperr.NotFound("unknown delivery provider %q", provider))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpserver.RespondAppError(w, apperr.New(apperr.KindPayloadTooLarge, "webhook body exceeds the maximum allowed size"))
		return
	}

	if err := h.svc.Ingest(r.Context(), provider, r.Header, body); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
