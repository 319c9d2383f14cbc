// Package portal implements the operator-facing control surface (component
// I): organization/store provisioning, activation-key issuance, device
// management, direct menu edits with apply_menu fan-out, sensitive
// void/refund enqueue, and entitlement lifecycle transitions. Grounded on
// the teacher's pkg/incident, pkg/apikey and pkg/tenantconfig
// handler/service layering — one chi sub-router per resource, RBAC enforced
// with pkg/portalauth.RequireMinRole before any handler method runs.
package portal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeviceView is the wire shape returned by GET /portal/devices.
type DeviceView struct {
	DeviceID    uuid.UUID `json:"device_id"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	IsPrimary   bool      `json:"is_primary"`
	Canonical   bool      `json:"canonical"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// applyMenuBody is the command payload enqueued to every device of a store
// after a direct portal menu write. It carries no row data of its own —
// devices treat it as a cue to re-pull GET /sync/menu (spec §4.5/§9).
type applyMenuBody struct {
	Reason string `json:"reason"`
}

func marshalApplyMenuBody(reason string) []byte {
	b, _ := json.Marshal(applyMenuBody{Reason: reason})
	return b
}

// sensitiveCommandBody is the command payload for void_order/refund_order.
type sensitiveCommandBody struct {
	LocalOrderID string  `json:"local_order_id"`
	Reason       *string `json:"reason,omitempty"`
	AmountCents  *int64  `json:"amount_cents,omitempty"`
}

func marshalSensitiveBody(localOrderID string, reason *string, amountCents *int64) ([]byte, error) {
	return json.Marshal(sensitiveCommandBody{LocalOrderID: localOrderID, Reason: reason, AmountCents: amountCents})
}
