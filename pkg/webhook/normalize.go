package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/pkg/delivery"
)

// rawOrderPayload is the common shape shared by Just Eat, Deliveroo and
// Uber Eats order payloads (and the resolved Uber Eats order fetch). Field
// names vary slightly per provider at the edges (order id key), handled by
// the orderID method below.
type rawOrderPayload struct {
	OrderID         string          `json:"order_id"`
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Customer        json.RawMessage `json:"customer"`
	DeliveryAddress json.RawMessage `json:"delivery_address"`
	Items           []struct {
		Name      string  `json:"name"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	} `json:"items"`
	Total float64 `json:"total"`
	Notes string  `json:"notes"`
}

func (p rawOrderPayload) orderID() string {
	if p.OrderID != "" {
		return p.OrderID
	}
	return p.ID
}

// Normalize converts a raw provider payload into the canonical shape
// (spec §4.6 step 5). receivedAt is stamped by the caller, not parsed from
// the payload.
func Normalize(provider string, body []byte, storeID uuid.UUID, businessID string, receivedAt time.Time) (delivery.NormalizedOrder, string, error) {
	var raw rawOrderPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return delivery.NormalizedOrder{}, "", fmt.Errorf("decoding %s order payload: %w", provider, err)
	}
	orderID := raw.orderID()
	if orderID == "" {
		return delivery.NormalizedOrder{}, "", fmt.Errorf("%s payload missing an order id", provider)
	}

	items := make([]delivery.OrderItem, len(raw.Items))
	for i, it := range raw.Items {
		items[i] = delivery.OrderItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	normalized := delivery.NormalizedOrder{
		Type:            "delivery_order",
		Provider:        provider,
		StoreID:         storeID,
		BusinessID:      businessID,
		ExternalOrderID: orderID,
		Status:          raw.Status,
		Customer:        raw.Customer,
		DeliveryAddress: raw.DeliveryAddress,
		Items:           items,
		Total:           raw.Total,
		Notes:           raw.Notes,
		ReceivedAt:      receivedAt,
	}
	return normalized, orderID, nil
}
