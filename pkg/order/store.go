package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for the order-history read model.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates an order Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

// UpsertOrder inserts or updates an order keyed by (store_id, device_id,
// local_order_id).
func (r *Repo) UpsertOrder(ctx context.Context, storeID, deviceID uuid.UUID, localOrderID string, occurredAt interface{}, totalCents *int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.dbtx.QueryRow(ctx, `
		INSERT INTO orders (store_id, device_id, local_order_id, occurred_at, total_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, device_id, local_order_id) DO UPDATE
		SET occurred_at = EXCLUDED.occurred_at,
		    total_cents = COALESCE(EXCLUDED.total_cents, orders.total_cents),
		    updated_at = now()
		RETURNING id`,
		storeID, deviceID, localOrderID, occurredAt, totalCents,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting order: %w", err)
	}
	return id, nil
}

// FindOrderID resolves an order's id by (store_id, device_id, local_order_id)
// without creating it. Used by transaction/receipt projection to attach to
// an order that may not exist yet.
func (r *Repo) FindOrderID(ctx context.Context, storeID, deviceID uuid.UUID, localOrderID string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.dbtx.QueryRow(ctx,
		`SELECT id FROM orders WHERE store_id = $1 AND device_id = $2 AND local_order_id = $3`,
		storeID, deviceID, localOrderID,
	).Scan(&id)
	if err != nil {
		return nil, nil //nolint:nilerr // "not found yet" is expected, not a fault
	}
	return &id, nil
}

// InsertItems appends line items to an order.
func (r *Repo) InsertItems(ctx context.Context, orderID uuid.UUID, items []Item) error {
	for _, it := range items {
		_, err := r.dbtx.Exec(ctx,
			`INSERT INTO order_items (order_id, name, quantity, unit_price_cents) VALUES ($1, $2, $3, $4)`,
			orderID, it.Name, it.Quantity, it.UnitPriceCents,
		)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}
	return nil
}

// UpsertTransaction inserts or updates a transaction keyed by (store_id,
// device_id, local_transaction_id), attaching it to orderID when resolvable.
func (r *Repo) UpsertTransaction(ctx context.Context, storeID, deviceID uuid.UUID, localTransactionID string, localOrderID *string, orderID *uuid.UUID, amountCents *int64, occurredAt interface{}) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.dbtx.QueryRow(ctx, `
		INSERT INTO transactions (store_id, device_id, local_transaction_id, local_order_id, order_id, amount_cents, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (store_id, device_id, local_transaction_id) DO UPDATE
		SET order_id = COALESCE(EXCLUDED.order_id, transactions.order_id),
		    amount_cents = COALESCE(EXCLUDED.amount_cents, transactions.amount_cents)
		RETURNING id`,
		storeID, deviceID, localTransactionID, localOrderID, orderID, amountCents, occurredAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting transaction: %w", err)
	}
	return id, nil
}

// FindTransactionID resolves a transaction's id by local_transaction_id.
func (r *Repo) FindTransactionID(ctx context.Context, storeID, deviceID uuid.UUID, localTransactionID string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.dbtx.QueryRow(ctx,
		`SELECT id FROM transactions WHERE store_id = $1 AND device_id = $2 AND local_transaction_id = $3`,
		storeID, deviceID, localTransactionID,
	).Scan(&id)
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	return &id, nil
}

// UpsertReceipt inserts or updates a receipt keyed by local_receipt_id.
func (r *Repo) UpsertReceipt(ctx context.Context, storeID, deviceID uuid.UUID, localReceiptID string, localOrderID *string, orderID *uuid.UUID, localTransactionID *string, transactionID *uuid.UUID, occurredAt interface{}) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO receipts (store_id, device_id, local_receipt_id, local_order_id, order_id, local_transaction_id, transaction_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (local_receipt_id) DO UPDATE
		SET order_id = COALESCE(EXCLUDED.order_id, receipts.order_id),
		    transaction_id = COALESCE(EXCLUDED.transaction_id, receipts.transaction_id)`,
		storeID, deviceID, localReceiptID, localOrderID, orderID, localTransactionID, transactionID, occurredAt,
	)
	if err != nil {
		return fmt.Errorf("upserting receipt: %w", err)
	}
	return nil
}

// BackfillReceiptsForOrder attaches any receipts that arrived before their
// order by local_order_id (spec §4.5 order_created: "back-fill any receipts
// that arrived earlier with the same local_order_id").
func (r *Repo) BackfillReceiptsForOrder(ctx context.Context, orderID uuid.UUID, storeID, deviceID uuid.UUID, localOrderID string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE receipts SET order_id = $1 WHERE store_id = $2 AND device_id = $3 AND local_order_id = $4 AND order_id IS NULL`,
		orderID, storeID, deviceID, localOrderID,
	)
	if err != nil {
		return fmt.Errorf("backfilling receipts: %w", err)
	}
	return nil
}

// AppendOrderEvent appends to the append-only order_events log.
func (r *Repo) AppendOrderEvent(ctx context.Context, orderID uuid.UUID, eventType string) error {
	_, err := r.dbtx.Exec(ctx, `INSERT INTO order_events (order_id, event_type) VALUES ($1, $2)`, orderID, eventType)
	if err != nil {
		return fmt.Errorf("appending order event: %w", err)
	}
	return nil
}
