// Package commandqueue implements the per-device command FIFO (component G):
// at-least-once fetch, conditional ack, and the sensitive-flag restriction
// that reserves void/refund style commands to operator-driven enqueue.
// Grounded on the teacher's pkg/escalation tick-loop shape for FIFO
// processing and pkg/alert's terminal-status transitions (firing →
// resolved generalizes here to queued → delivered → {acked, failed}).
package commandqueue

import (
	"time"

	"github.com/google/uuid"
)

// Command status values. A command transitions only queued → delivered →
// (acked|failed), or queued → expired (spec invariant 3).
const (
	StatusQueued    = "queued"
	StatusDelivered = "delivered"
	StatusAcked     = "acked"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Command types. apply_menu is produced by portal menu writes and
// delivery_order by webhook ingress; void_order/refund_order are sensitive and may only
// be enqueued by an authenticated portal operator.
const (
	TypeApplyMenu     = "apply_menu"
	TypeVoidOrder     = "void_order"
	TypeRefundOrder   = "refund_order"
	TypeDeliveryOrder = "delivery_order"
)

// Command is a single per-device work item.
type Command struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	StoreID     uuid.UUID
	DeviceID    uuid.UUID
	CommandType string
	Body        []byte
	Status      string
	Sensitive   bool
	CreatedAt   time.Time
	DeliveredAt *time.Time
	AckResult   *string
}

// Terminal reports whether the command has reached a terminal status and
// can no longer be acked.
func (c Command) Terminal() bool {
	return c.Status == StatusAcked || c.Status == StatusFailed || c.Status == StatusExpired
}
