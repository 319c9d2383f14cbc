package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/telemetry"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// Service implements component E.
type Service struct {
	repo           *Repo
	identity       *identity.Repo
	menuProjector  Projector
	orderProjector Projector
	logger         *slog.Logger
}

// NewService builds a Service. menuProjector runs before orderProjector on
// every newly inserted event, matching spec §4.3 step 3 ("read-model first:
// menu/yield/device config, then order-history").
func NewService(repo *Repo, identityRepo *identity.Repo, menuProjector, orderProjector Projector, logger *slog.Logger) *Service {
	return &Service{repo: repo, identity: identityRepo, menuProjector: menuProjector, orderProjector: orderProjector, logger: logger}
}

// IngestResult is returned to the device after a successful sync-events call.
type IngestResult struct {
	AckSeq int64
}

// Ingest implements spec §4.3: parse, dedup-insert, project, advance watermark.
func (s *Service) Ingest(ctx context.Context, principal identity.Principal, lastAckSeq *int64, events []EventInput) (IngestResult, error) {
	// Step 1: parse occurred_at for every event up front. No partial
	// acceptance of a malformed batch.
	parsed := make([]Entry, len(events))
	for i, ev := range events {
		occurredAt, err := time.Parse(time.RFC3339, ev.OccurredAt)
		if err != nil {
			return IngestResult{}, apperr.BadRequest("event %s: occurred_at is not RFC-3339: %v", ev.EventID, err)
		}
		body := ev.EventBody
		if len(body) == 0 {
			body = json.RawMessage(`{}`)
		}
		parsed[i] = Entry{
			OrgID:      principal.OrgID,
			StoreID:    principal.StoreID,
			DeviceID:   principal.DeviceID,
			EventID:    ev.EventID,
			Seq:        ev.Seq,
			EventType:  ev.EventType,
			EventBody:  body,
			OccurredAt: occurredAt,
		}
	}

	var maxSeq int64
	haveSeq := false

	for _, entry := range parsed {
		inserted, err := s.repo.Insert(ctx, entry)
		if err != nil {
			return IngestResult{}, apperr.Internal(err)
		}

		if entry.Seq != nil && (!haveSeq || *entry.Seq > maxSeq) {
			maxSeq = *entry.Seq
			haveSeq = true
		}

		if !inserted {
			telemetry.EventsDuplicateTotal.Inc()
			continue
		}

		telemetry.EventsIngestedTotal.WithLabelValues(entry.EventType).Inc()

		// Step 3: projectors run only on a fresh insert, in order; failures
		// are logged but never fail the ingress (the event log is the
		// source of truth, projections can be replayed).
		if err := s.menuProjector.Project(ctx, entry); err != nil {
			s.logger.Warn("menu projector failed", "event_id", entry.EventID, "device_id", entry.DeviceID, "error", err)
			telemetry.ProjectionFailuresTotal.WithLabelValues("menu").Inc()
		}
		if err := s.orderProjector.Project(ctx, entry); err != nil {
			s.logger.Warn("order projector failed", "event_id", entry.EventID, "device_id", entry.DeviceID, "error", err)
			telemetry.ProjectionFailuresTotal.WithLabelValues("order").Inc()
		}
	}

	// Step 4: advance the watermark by max(existing, max seq in batch,
	// request.last_ack_seq). seq is advisory; when every event in the
	// batch has seq=null the watermark advances only by last_ack_seq,
	// preserving the source's documented behavior (see DESIGN.md).
	proposed := int64(0)
	if haveSeq {
		proposed = maxSeq
	}
	if lastAckSeq != nil && *lastAckSeq > proposed {
		proposed = *lastAckSeq
	}

	watermark, err := s.identity.AdvanceWatermark(ctx, principal.DeviceID, proposed)
	if err != nil {
		return IngestResult{}, apperr.Internal(err)
	}

	return IngestResult{AckSeq: watermark}, nil
}
