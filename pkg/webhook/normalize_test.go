package webhook

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeDeliveroo(t *testing.T) {
	body := []byte(`{"order_id":"O9","status":"accepted","total":24.50,"items":[{"name":"Burger","quantity":2,"unit_price":12.25}]}`)
	storeID := uuid.New()
	received := time.Now().UTC()

	normalized, orderID, err := Normalize("deliveroo", body, storeID, "L1", received)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "O9" {
		t.Fatalf("orderID = %q, want O9", orderID)
	}
	if normalized.Provider != "deliveroo" {
		t.Fatalf("provider = %q", normalized.Provider)
	}
	if normalized.ExternalOrderID != "O9" {
		t.Fatalf("external order id = %q", normalized.ExternalOrderID)
	}
	if len(normalized.Items) != 1 || normalized.Items[0].Quantity != 2 {
		t.Fatalf("items not normalized: %+v", normalized.Items)
	}
	if normalized.Total != 24.50 {
		t.Fatalf("total = %v, want 24.50", normalized.Total)
	}
}

func TestNormalizeFallsBackToIDField(t *testing.T) {
	body := []byte(`{"id":"abc123","status":"new"}`)
	_, orderID, err := Normalize("uber_eats", body, uuid.New(), "biz", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "abc123" {
		t.Fatalf("orderID = %q, want abc123", orderID)
	}
}

func TestNormalizeMissingOrderID(t *testing.T) {
	if _, _, err := Normalize("just_eat", []byte(`{"status":"new"}`), uuid.New(), "biz", time.Now()); err == nil {
		t.Fatal("expected error for payload missing an order id")
	}
}

func TestExtractStoreRefDeliveroo(t *testing.T) {
	ref, err := ExtractStoreRef("deliveroo", []byte(`{"location_id":"L1"}`))
	if err != nil || ref != "L1" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
}

func TestExtractStoreRefUberEats(t *testing.T) {
	ref, err := ExtractStoreRef("uber_eats", []byte(`{"meta":{"user_id":"U1"}}`))
	if err != nil || ref != "U1" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
}

func TestExtractStoreRefBuiltinFallback(t *testing.T) {
	ref, err := ExtractStoreRef("built_in", []byte(`{"restaurant_id":"R1"}`))
	if err != nil || ref != "R1" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}

	ref, err = ExtractStoreRef("built_in", []byte(`{"store_id":"S1"}`))
	if err != nil || ref != "S1" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}

	if _, err := ExtractStoreRef("built_in", []byte(`{}`)); err == nil {
		t.Fatal("expected error when neither restaurant_id nor store_id is present")
	}
}
