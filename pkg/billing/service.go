package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
)

// EntitlementGranter is the narrow entitlement.Service dependency this
// package needs.
type EntitlementGranter interface {
	Grant(ctx context.Context, orgID uuid.UUID, planCode string) error
	Suspend(ctx context.Context, orgID uuid.UUID, planCode string) error
}

// Service implements component J.
type Service struct {
	entitlements EntitlementGranter
	planCode     string
	secret       string
	logger       *slog.Logger
}

// NewService builds a Service. planCode is the plan granted/suspended by
// this billing integration (identity.PlanCloudSync).
func NewService(entitlements EntitlementGranter, planCode, secret string, logger *slog.Logger) *Service {
	return &Service{entitlements: entitlements, planCode: planCode, secret: secret, logger: logger}
}

// HandleWebhook verifies the signature and, for the event types this gate
// acts on, applies the corresponding entitlement transition. Every other
// event type is accepted and ignored (spec §4.7).
func (s *Service) HandleWebhook(ctx context.Context, signatureHeader string, body []byte) error {
	ok, err := VerifySignature(s.secret, signatureHeader, body, time.Now())
	if err != nil || !ok {
		return apperr.Unauthorized("billing webhook signature verification failed")
	}

	e, err := parseEvent(body)
	if err != nil {
		return apperr.BadRequest("%v", err)
	}

	switch e.Type {
	case EventCheckoutSessionCompleted:
		orgID, err := uuid.Parse(e.Data.Object.Metadata.OrgID)
		if err != nil {
			return apperr.BadRequest("checkout.session.completed missing metadata.org_id")
		}
		if err := s.entitlements.Grant(ctx, orgID, s.planCode); err != nil {
			return apperr.Internal(fmt.Errorf("granting entitlement: %w", err))
		}

	case EventSubscriptionDeleted, EventSubscriptionUpdated:
		if !suspendStatuses[e.Data.Object.Status] {
			return nil
		}
		orgID, err := uuid.Parse(e.Data.Object.Metadata.OrgID)
		if err != nil {
			return apperr.BadRequest("%s missing metadata.org_id", e.Type)
		}
		if err := s.entitlements.Suspend(ctx, orgID, s.planCode); err != nil {
			return apperr.Internal(fmt.Errorf("suspending entitlement: %w", err))
		}

	default:
		s.logger.Debug("ignoring billing webhook event", "type", e.Type)
	}

	return nil
}
