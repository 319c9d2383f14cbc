// Package delivery models a store's connection to a third-party delivery
// platform (Just Eat, Deliveroo, Uber Eats) and the normalized orders that
// arrive through it (spec §4.6, entities "Delivery Integration"/"Delivery
// Order"). Every credential field is stored ciphertext, sealed through
// internal/secretbox; plaintext only exists in process memory for the
// duration of a single webhook verification or outbound call.
package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider tags, the closed set spec.md §4.6 names.
const (
	ProviderJustEat  = "just_eat"
	ProviderDeliveroo = "deliveroo"
	ProviderUberEats = "uber_eats"
)

// Integration status values. Unknown provider-reported states map to Pending.
const (
	StatusPending      = "pending"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

// Order status values, the closed set a delivery order's lifecycle moves
// through (spec §4.6). Unknown provider-reported order states map to
// OrderStatusPending.
const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusRejected  = "rejected"
	OrderStatusCancelled = "cancelled"
	OrderStatusReady     = "ready"
	OrderStatusCollected = "collected"
	OrderStatusDelivered = "delivered"
)

// Integration is one per (store_id, provider). Credential fields hold
// secretbox-sealed ciphertext, never plaintext.
type Integration struct {
	ID                    uuid.UUID
	StoreID               uuid.UUID
	Provider              string
	ProviderStoreRef      string
	APIKeyCiphertext      *string
	ClientIDCiphertext    *string
	ClientSecretCiphertext *string
	WebhookSecretCiphertext *string
	Status                string
	LastSyncAt             *time.Time
	LastErrorMessage       *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Order is a normalized order keyed unique by (provider, provider_order_id).
type Order struct {
	ID              uuid.UUID
	IntegrationID   uuid.UUID
	Provider        string
	ProviderOrderID string
	StoreID         uuid.UUID
	Payload         json.RawMessage
	Status          string
	ReceivedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IntegrationLog is an audit row for a webhook attempt, successful or not
// (spec §4.6 step 4/8: "log the request to delivery_integration_logs").
type IntegrationLog struct {
	ID            uuid.UUID
	IntegrationID *uuid.UUID
	Provider      string
	Outcome       string
	Detail        string
	CreatedAt     time.Time
}

// IntegrationLog outcomes.
const (
	LogOutcomeSignatureInvalid = "signature_invalid"
	LogOutcomeSuccess          = "success"
)

// NormalizedOrder is the canonical shape produced by webhook ingress
// (spec §4.6 step 5) before being upserted as a Delivery Order and
// enqueued as a device command.
type NormalizedOrder struct {
	Type            string          `json:"type"`
	Provider        string          `json:"provider"`
	StoreID         uuid.UUID       `json:"store_id"`
	BusinessID      string          `json:"business_id"`
	ExternalOrderID string          `json:"external_order_id"`
	Status          string          `json:"status"`
	Customer        json.RawMessage `json:"customer,omitempty"`
	DeliveryAddress json.RawMessage `json:"delivery_address,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	Notes           string          `json:"notes,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// OrderItem is a single line in a NormalizedOrder.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}
