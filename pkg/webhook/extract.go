package webhook

import (
	"encoding/json"
	"fmt"
)

// ExtractStoreRef pulls the provider-store-reference out of a raw webhook
// body via the provider-specific path (spec §4.6 step 1): `location_id` for
// Deliveroo, `meta.user_id` for Uber Eats, `restaurant_id` or `store_id`
// otherwise.
func ExtractStoreRef(provider string, body []byte) (string, error) {
	switch provider {
	case "deliveroo":
		var payload struct {
			LocationID string `json:"location_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decoding deliveroo payload: %w", err)
		}
		if payload.LocationID == "" {
			return "", fmt.Errorf("deliveroo payload missing location_id")
		}
		return payload.LocationID, nil

	case "uber_eats":
		var payload struct {
			Meta struct {
				UserID string `json:"user_id"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decoding uber eats payload: %w", err)
		}
		if payload.Meta.UserID == "" {
			return "", fmt.Errorf("uber eats payload missing meta.user_id")
		}
		return payload.Meta.UserID, nil

	default:
		var payload struct {
			RestaurantID string `json:"restaurant_id"`
			StoreID      string `json:"store_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decoding %s payload: %w", provider, err)
		}
		if payload.RestaurantID != "" {
			return payload.RestaurantID, nil
		}
		if payload.StoreID != "" {
			return payload.StoreID, nil
		}
		return "", fmt.Errorf("%s payload missing restaurant_id/store_id", provider)
	}
}
