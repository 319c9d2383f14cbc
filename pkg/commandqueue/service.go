package commandqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/telemetry"
)

// Service wraps Repo with the device-facing fetch/ack contract and the
// operator-only sensitive-enqueue path.
type Service struct {
	repo *Repo
}

// NewService builds a Service.
func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// CommandView is the wire shape returned by GET /sync/commands.
type CommandView struct {
	CommandID   uuid.UUID       `json:"command_id"`
	CommandType string          `json:"command_type"`
	Sensitive   bool            `json:"sensitive"`
	CommandBody json.RawMessage `json:"command_body"`
}

// Fetch returns up to limit pending commands for a device, delivering them.
func (s *Service) Fetch(ctx context.Context, deviceID uuid.UUID, limit int) ([]CommandView, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	commands, err := s.repo.FetchPending(ctx, deviceID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	views := make([]CommandView, len(commands))
	for i, c := range commands {
		views[i] = CommandView{CommandID: c.ID, CommandType: c.CommandType, Sensitive: c.Sensitive, CommandBody: c.Body}
		telemetry.CommandsDeliveredTotal.WithLabelValues(c.CommandType).Inc()
	}
	return views, nil
}

// AckStatus values accepted from a device.
const (
	AckStatusAcked  = "acked"
	AckStatusFailed = "failed"
)

// Ack applies a device's ack/fail result to a command it owns.
func (s *Service) Ack(ctx context.Context, deviceID, commandID uuid.UUID, status string, result *string) error {
	if status != AckStatusAcked && status != AckStatusFailed {
		return apperr.BadRequest("status must be acked or failed")
	}
	ok, err := s.repo.Ack(ctx, deviceID, commandID, status, result)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("command not found, owned by another device, or already terminal")
	}
	telemetry.CommandsAckedTotal.WithLabelValues(status).Inc()
	return nil
}

// EnqueueApplyMenu enqueues a non-sensitive apply_menu snapshot refresh,
// called by the portal after any direct menu write (spec §4.5).
func (s *Service) EnqueueApplyMenu(ctx context.Context, orgID, storeID, deviceID uuid.UUID, body []byte) error {
	_, err := s.repo.Enqueue(ctx, orgID, storeID, deviceID, TypeApplyMenu, body, false)
	if err != nil {
		return apperr.Internal(err)
	}
	telemetry.CommandsEnqueuedTotal.WithLabelValues(TypeApplyMenu).Inc()
	return nil
}

// EnqueueDeliveryOrder enqueues a normalized third-party order, called by
// webhook ingress (spec §4.6 step 7).
func (s *Service) EnqueueDeliveryOrder(ctx context.Context, orgID, storeID, deviceID uuid.UUID, body []byte) error {
	_, err := s.repo.Enqueue(ctx, orgID, storeID, deviceID, TypeDeliveryOrder, body, false)
	if err != nil {
		return apperr.Internal(err)
	}
	telemetry.CommandsEnqueuedTotal.WithLabelValues(TypeDeliveryOrder).Inc()
	return nil
}

// EnqueueSensitive enqueues a void_order or refund_order command. This is
// the only path in the system that may set the sensitive flag (spec §4.4);
// callers must have already authorized the request as an operator action
// before reaching this method.
func (s *Service) EnqueueSensitive(ctx context.Context, orgID, storeID, deviceID uuid.UUID, commandType string, body []byte) error {
	if commandType != TypeVoidOrder && commandType != TypeRefundOrder {
		return apperr.BadRequest("unsupported sensitive command type %q", commandType)
	}
	_, err := s.repo.Enqueue(ctx, orgID, storeID, deviceID, commandType, body, true)
	if err != nil {
		return apperr.Internal(err)
	}
	telemetry.CommandsEnqueuedTotal.WithLabelValues(commandType).Inc()
	return nil
}

// ExpireStale transitions commands that have sat queued (never delivered)
// past maxAge to expired (spec invariant 3's queued -> expired leg);
// delivered commands are not expired. Intended to
// be run on a ticker from the worker process, not from a request path.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, apperr.Internal(err)
	}
	if n > 0 {
		telemetry.CommandsExpiredTotal.Add(float64(n))
	}
	return n, nil
}

// RunExpiryLoop runs ExpireStale on a tick until ctx is cancelled. Grounded
// on the teacher's pkg/escalation background-tick engine shape.
func RunExpiryLoop(ctx context.Context, svc *Service, maxAge, tick time.Duration, onError func(error)) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireStale(ctx, maxAge); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
