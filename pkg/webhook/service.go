package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/secretbox"
	"github.com/Chosen17/TraqrPOSCloud/internal/telemetry"
	"github.com/Chosen17/TraqrPOSCloud/pkg/delivery"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// DeviceLister resolves the devices a normalized order command must reach
// (spec §4.6 step 7: "enqueue ... for the store's device(s)").
type DeviceLister interface {
	ListDevicesByStore(ctx context.Context, storeID uuid.UUID) ([]identity.Device, error)
}

// CommandEnqueuer is the narrow commandqueue.Service dependency this
// package needs.
type CommandEnqueuer interface {
	EnqueueDeliveryOrder(ctx context.Context, orgID, storeID, deviceID uuid.UUID, body []byte) error
}

// Service implements component H end to end: lookup, decrypt, verify,
// normalize, upsert, enqueue, audit (spec §4.6 steps 1-8).
type Service struct {
	integrations  *delivery.Repo
	box           *secretbox.Box
	devices       DeviceLister
	commands      CommandEnqueuer
	fetcher       OrderFetcher
	uberTokenURL  string
	logger        *slog.Logger
}

// NewService builds a Service.
func NewService(integrations *delivery.Repo, box *secretbox.Box, devices DeviceLister, commands CommandEnqueuer,
	fetcher OrderFetcher, uberTokenURL string, logger *slog.Logger) *Service {
	return &Service{
		integrations: integrations,
		box:          box,
		devices:      devices,
		commands:     commands,
		fetcher:      fetcher,
		uberTokenURL: uberTokenURL,
		logger:       logger,
	}
}

// Ingest runs the full webhook-ingress pipeline for one provider request.
func (s *Service) Ingest(ctx context.Context, provider string, headers http.Header, body []byte) error {
	start := time.Now()
	defer func() {
		telemetry.WebhookProcessingDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	// Step 1: extract provider-store-reference.
	storeRef, err := ExtractStoreRef(provider, body)
	if err != nil {
		telemetry.WebhooksReceivedTotal.WithLabelValues(provider, "bad_request").Inc()
		return apperr.BadRequest("%v", err)
	}

	// Step 2: look up the integration.
	integration, err := s.integrations.GetByProviderRef(ctx, provider, storeRef)
	if err != nil {
		telemetry.WebhooksReceivedTotal.WithLabelValues(provider, "unknown_integration").Inc()
		return apperr.BadRequest("no delivery integration registered for %s/%s", provider, storeRef)
	}

	// Step 3: decrypt the secrets this provider's verification needs.
	clientID, webhookSecret, clientSecret, err := s.decryptSecrets(integration)
	if err != nil {
		return apperr.Internal(err)
	}

	// Step 4: verify signature.
	ok, verifyErr := s.verify(provider, webhookSecret, clientSecret, headers, body)
	if verifyErr != nil || !ok {
		telemetry.WebhooksReceivedTotal.WithLabelValues(provider, "signature_invalid").Inc()
		_ = s.integrations.AppendLog(ctx, &integration.ID, provider, delivery.LogOutcomeSignatureInvalid,
			fmt.Sprintf("headers=%v", headers))
		s.logger.Warn("webhook signature verification failed", "provider", provider, "store_ref", storeRef)
		return apperr.Unauthorized("signature verification failed")
	}

	// Step 5: normalize. Uber Eats may need a client-credentials fetch of
	// the full order first.
	payload := body
	if provider == delivery.ProviderUberEats && clientSecret != "" {
		cfg := UberEatsTokenConfig(clientID, clientSecret, s.uberTokenURL)
		payload = resolveUberEatsPayload(ctx, cfg, s.fetcher, body)
	}

	normalized, externalOrderID, err := Normalize(provider, payload, integration.StoreID, storeRef, time.Now())
	if err != nil {
		return apperr.BadRequest("%v", err)
	}

	status := mapProviderStatus(normalized.Status)
	normalizedJSON, err := json.Marshal(normalized)
	if err != nil {
		return apperr.Internal(err)
	}

	// Step 6: idempotent upsert keyed by (provider, provider_order_id).
	if _, err := s.integrations.UpsertOrder(ctx, integration.ID, integration.StoreID, provider, externalOrderID,
		normalizedJSON, status, normalized.ReceivedAt); err != nil {
		return apperr.Internal(err)
	}

	// Step 7: enqueue delivery_order commands for the store's device(s).
	// A duplicate command on a retried webhook is acceptable; devices
	// de-duplicate by external_order_id (spec §5).
	devices, err := s.devices.ListDevicesByStore(ctx, integration.StoreID)
	if err != nil {
		return apperr.Internal(err)
	}
	for _, d := range devices {
		if d.Status != identity.DeviceStatusActive {
			continue
		}
		if err := s.commands.EnqueueDeliveryOrder(ctx, d.OrgID, integration.StoreID, d.ID, normalizedJSON); err != nil {
			s.logger.Error("enqueuing delivery_order command failed", "device_id", d.ID, "error", err)
		}
	}

	// Step 8: touch last_sync_at, append a success log entry.
	if err := s.integrations.TouchLastSync(ctx, integration.ID); err != nil {
		s.logger.Error("touching integration last_sync_at failed", "integration_id", integration.ID, "error", err)
	}
	_ = s.integrations.AppendLog(ctx, &integration.ID, provider, delivery.LogOutcomeSuccess, externalOrderID)

	telemetry.WebhooksReceivedTotal.WithLabelValues(provider, "success").Inc()
	return nil
}

func (s *Service) decryptSecrets(in delivery.Integration) (clientID, webhookSecret, clientSecret string, err error) {
	if in.ClientIDCiphertext != nil {
		clientID, err = s.box.Open(*in.ClientIDCiphertext)
		if err != nil {
			return "", "", "", fmt.Errorf("decrypting client id: %w", err)
		}
	}
	if in.WebhookSecretCiphertext != nil {
		webhookSecret, err = s.box.Open(*in.WebhookSecretCiphertext)
		if err != nil {
			return "", "", "", fmt.Errorf("decrypting webhook secret: %w", err)
		}
	}
	if in.ClientSecretCiphertext != nil {
		clientSecret, err = s.box.Open(*in.ClientSecretCiphertext)
		if err != nil {
			return "", "", "", fmt.Errorf("decrypting client secret: %w", err)
		}
	}
	return clientID, webhookSecret, clientSecret, nil
}

func (s *Service) verify(provider, webhookSecret, clientSecret string, headers http.Header, body []byte) (bool, error) {
	switch provider {
	case delivery.ProviderDeliveroo:
		return VerifyDeliveroo(webhookSecret, headers, body)
	case delivery.ProviderUberEats:
		return VerifyUberEats(clientSecret, headers, body)
	case delivery.ProviderJustEat:
		return VerifyJustEat(webhookSecret, headers, body)
	default:
		return VerifySharedSecretHex(webhookSecret, "X-"+provider+"-Signature", headers, body)
	}
}

// mapProviderStatus maps a provider-reported order status into the closed
// internal order-status set; unknown values map to pending (spec §4.6).
func mapProviderStatus(raw string) string {
	switch raw {
	case delivery.OrderStatusPending, delivery.OrderStatusAccepted, delivery.OrderStatusRejected,
		delivery.OrderStatusCancelled, delivery.OrderStatusReady, delivery.OrderStatusCollected,
		delivery.OrderStatusDelivered:
		return raw
	default:
		return delivery.OrderStatusPending
	}
}
