// Package eventlog implements idempotent device-event ingress and the
// per-device ack-sequence watermark (component E). Grounded on the
// teacher's pkg/alert webhook handling shape: decode, validate, per-item
// loop, store, projector dispatch, metrics.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is an append-only per-device event-log row. Immutable after insert
// (spec invariant 1).
type Entry struct {
	OrgID      uuid.UUID
	StoreID    uuid.UUID
	DeviceID   uuid.UUID
	EventID    string
	Seq        *int64
	EventType  string
	EventBody  json.RawMessage
	OccurredAt time.Time
	ReceivedAt time.Time
}

// EventInput is a single element of a sync-events request body.
type EventInput struct {
	EventID    string          `json:"event_id" validate:"required"`
	Seq        *int64          `json:"seq"`
	EventType  string          `json:"event_type" validate:"required"`
	OccurredAt string          `json:"occurred_at" validate:"required"`
	EventBody  json.RawMessage `json:"event_body" validate:"required"`
}

// Projector is invoked once per newly inserted event, in order, after the
// insert commits. Errors are logged, never propagated (spec §4.3 step 3).
type Projector interface {
	Project(ctx context.Context, entry Entry) error
}
