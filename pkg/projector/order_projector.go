package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/pkg/eventlog"
	"github.com/Chosen17/TraqrPOSCloud/pkg/order"
)

// orderEventTypes is the closed set of event types the order-history
// projector acts on (spec §4.5).
var orderEventTypes = map[string]bool{
	"order_created":         true,
	"order_updated":         true,
	"transaction_completed": true,
	"receipt_created":       true,
}

// OrderProjector applies order-lifecycle events onto the order-history read
// model.
type OrderProjector struct {
	repo *order.Repo
}

// NewOrderProjector builds an OrderProjector.
func NewOrderProjector(repo *order.Repo) *OrderProjector {
	return &OrderProjector{repo: repo}
}

type orderItemPayload struct {
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents *int64   `json:"unit_price_cents"`
	UnitPrice      *float64 `json:"unit_price"`
}

// flexString decodes a JSON field that a device may emit as either a string
// or a number (POS hardware is inconsistent about quoting local ids).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = flexString(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*s = flexString(asNumber.String())
		return nil
	}
	return fmt.Errorf("value is neither a string nor a number")
}

func flexStringPtr(s *flexString) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type orderPayload struct {
	OrderID    flexString         `json:"order_id"`
	TotalCents *int64             `json:"total_cents"`
	Total      *float64           `json:"total"`
	Items      []orderItemPayload `json:"items"`
}

type transactionPayload struct {
	TransactionID flexString  `json:"transaction_id"`
	OrderID       *flexString `json:"order_id"`
	AmountCents   *int64      `json:"amount_cents"`
	Amount        *float64    `json:"amount"`
}

type receiptPayload struct {
	ReceiptID     flexString  `json:"receipt_id"`
	OrderID       *flexString `json:"order_id"`
	TransactionID *flexString `json:"transaction_id"`
}

// centsFromPayload prefers an explicit integer cents field; falling back to
// a floating-point currency amount rounded to the nearest cent, per the
// documented "floating-point values are rounded ×100" rule.
func centsFromPayload(cents *int64, amount *float64) *int64 {
	if cents != nil {
		return cents
	}
	if amount != nil {
		rounded := int64(math.Round(*amount * 100))
		return &rounded
	}
	return nil
}

// Project implements eventlog.Projector.
func (p *OrderProjector) Project(ctx context.Context, entry eventlog.Entry) error {
	if !orderEventTypes[entry.EventType] {
		return nil
	}

	switch entry.EventType {
	case "order_created", "order_updated":
		var payload orderPayload
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding %s: %w", entry.EventType, err)
		}
		totalCents := centsFromPayload(payload.TotalCents, payload.Total)
		localOrderID := string(payload.OrderID)
		orderID, err := p.repo.UpsertOrder(ctx, entry.StoreID, entry.DeviceID, localOrderID, entry.OccurredAt, totalCents)
		if err != nil {
			return fmt.Errorf("upserting order: %w", err)
		}
		if len(payload.Items) > 0 {
			items := make([]order.Item, len(payload.Items))
			for i, it := range payload.Items {
				items[i] = order.Item{
					Name:           it.Name,
					Quantity:       it.Quantity,
					UnitPriceCents: deref(centsFromPayload(it.UnitPriceCents, it.UnitPrice)),
				}
			}
			if err := p.repo.InsertItems(ctx, orderID, items); err != nil {
				return fmt.Errorf("inserting order items: %w", err)
			}
		}
		if err := p.repo.BackfillReceiptsForOrder(ctx, orderID, entry.StoreID, entry.DeviceID, localOrderID); err != nil {
			return fmt.Errorf("backfilling receipts: %w", err)
		}
		return p.repo.AppendOrderEvent(ctx, orderID, entry.EventType)

	case "transaction_completed":
		var payload transactionPayload
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding transaction_completed: %w", err)
		}
		return p.projectTransaction(ctx, entry, payload)

	case "receipt_created":
		var payload receiptPayload
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding receipt_created: %w", err)
		}
		return p.projectReceipt(ctx, entry, payload)
	}

	return nil
}

// projectTransaction resolves the transaction's parent order (if the order
// has already been seen) before upserting, so amount/order linkage never
// depends on event arrival order.
func (p *OrderProjector) projectTransaction(ctx context.Context, entry eventlog.Entry, payload transactionPayload) error {
	localOrderID := flexStringPtr(payload.OrderID)
	var orderID *uuid.UUID
	if localOrderID != nil {
		id, err := p.repo.FindOrderID(ctx, entry.StoreID, entry.DeviceID, *localOrderID)
		if err != nil {
			return fmt.Errorf("resolving transaction's order: %w", err)
		}
		orderID = id
	}

	amountCents := centsFromPayload(payload.AmountCents, payload.Amount)
	if _, err := p.repo.UpsertTransaction(ctx, entry.StoreID, entry.DeviceID, string(payload.TransactionID),
		localOrderID, orderID, amountCents, entry.OccurredAt); err != nil {
		return fmt.Errorf("upserting transaction: %w", err)
	}
	if orderID != nil {
		if err := p.repo.AppendOrderEvent(ctx, *orderID, entry.EventType); err != nil {
			return fmt.Errorf("appending order event: %w", err)
		}
	}
	return nil
}

// projectReceipt resolves both the receipt's parent order and transaction
// (either may not have arrived yet) before upserting.
func (p *OrderProjector) projectReceipt(ctx context.Context, entry eventlog.Entry, payload receiptPayload) error {
	localOrderID := flexStringPtr(payload.OrderID)
	var orderID *uuid.UUID
	if localOrderID != nil {
		id, err := p.repo.FindOrderID(ctx, entry.StoreID, entry.DeviceID, *localOrderID)
		if err != nil {
			return fmt.Errorf("resolving receipt's order: %w", err)
		}
		orderID = id
	}

	localTransactionID := flexStringPtr(payload.TransactionID)
	var transactionID *uuid.UUID
	if localTransactionID != nil {
		id, err := p.repo.FindTransactionID(ctx, entry.StoreID, entry.DeviceID, *localTransactionID)
		if err != nil {
			return fmt.Errorf("resolving receipt's transaction: %w", err)
		}
		transactionID = id
	}

	if err := p.repo.UpsertReceipt(ctx, entry.StoreID, entry.DeviceID, string(payload.ReceiptID),
		localOrderID, orderID, localTransactionID, transactionID, entry.OccurredAt); err != nil {
		return fmt.Errorf("upserting receipt: %w", err)
	}
	if orderID != nil {
		if err := p.repo.AppendOrderEvent(ctx, *orderID, entry.EventType); err != nil {
			return fmt.Errorf("appending order event: %w", err)
		}
	}
	return nil
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
