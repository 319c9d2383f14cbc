// Package order is the order-history read model projected from the device
// event log (spec §4.5 order-history projector).
package order

import (
	"time"

	"github.com/google/uuid"
)

// Order is keyed unique by (store_id, device_id, local_order_id).
type Order struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	DeviceID      uuid.UUID
	LocalOrderID  string
	OccurredAt    time.Time
	TotalCents    *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is a line item attached to an Order.
type Item struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Name          string
	Quantity      int
	UnitPriceCents int64
}

// Transaction is keyed unique by (store_id, device_id, local_transaction_id).
// OrderID is nil until/unless an order with the same local_order_id is seen.
type Transaction struct {
	ID                  uuid.UUID
	StoreID             uuid.UUID
	DeviceID            uuid.UUID
	LocalTransactionID  string
	LocalOrderID        *string
	OrderID             *uuid.UUID
	AmountCents         *int64
	OccurredAt          time.Time
	CreatedAt           time.Time
}

// Receipt is keyed unique by local_receipt_id, and is attached to an order
// and transaction when resolvable.
type Receipt struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	DeviceID         uuid.UUID
	LocalReceiptID   string
	LocalOrderID     *string
	OrderID          *uuid.UUID
	LocalTransactionID *string
	TransactionID    *uuid.UUID
	OccurredAt       time.Time
	CreatedAt        time.Time
}

// EventLogEntry records each projected event keyed to its resolved order
// (the append-only order_events log, spec §4.5).
type EventLogEntry struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	CreatedAt time.Time
}
