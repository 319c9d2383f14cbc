package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Chosen17/TraqrPOSCloud/pkg/eventlog"
	"github.com/Chosen17/TraqrPOSCloud/pkg/menu"
)

// menuConfigEventTypes is the closed set of event types the menu projector
// acts on (spec §4.5). Anything else passes through untouched.
var menuConfigEventTypes = map[string]bool{
	"menu_category_created":   true,
	"menu_category_renamed":   true,
	"menu_category_image":     true,
	"menu_item_created":       true,
	"menu_item_deleted":       true,
	"menu_item_visibility":    true,
	"menu_item_image":         true,
	"menu_item_modifiers_set": true,
	"dish_yield_upserted":     true,
	"dish_yield_adjusted":     true,
	"store_updated":           true,
	"device_updated":          true,
}

// MenuProjector applies config events onto the menu/configuration read
// model, refusing writes from a non-canonical device (spec §4.5).
type MenuProjector struct {
	repo      *menu.Repo
	canonical *CanonicalChecker
	logger    *slog.Logger
}

// NewMenuProjector builds a MenuProjector.
func NewMenuProjector(repo *menu.Repo, canonical *CanonicalChecker, logger *slog.Logger) *MenuProjector {
	return &MenuProjector{repo: repo, canonical: canonical, logger: logger}
}

// Project implements eventlog.Projector.
func (p *MenuProjector) Project(ctx context.Context, entry eventlog.Entry) error {
	if !menuConfigEventTypes[entry.EventType] {
		return nil
	}

	// store_updated and device_updated are informational only: the
	// authoritative rows live in pkg/org and pkg/identity, written directly
	// by the portal and the activation flow. The projector has nothing to
	// apply for them beyond observing that they occurred.
	if entry.EventType == "store_updated" || entry.EventType == "device_updated" {
		return nil
	}

	ok, err := p.canonical.IsCanonical(ctx, entry.StoreID, entry.DeviceID)
	if err != nil {
		return fmt.Errorf("checking canonical device: %w", err)
	}
	if !ok {
		p.logger.Warn("config event from non-canonical device, skipping write",
			"store_id", entry.StoreID, "device_id", entry.DeviceID, "event_type", entry.EventType)
		if alertErr := p.repo.InsertConfigAlert(ctx, entry.StoreID, entry.DeviceID, entry.EventType,
			"event arrived from a device that is not the store's canonical device"); alertErr != nil {
			return fmt.Errorf("recording config alert: %w", alertErr)
		}
		return nil
	}

	switch entry.EventType {
	case "menu_category_created":
		var payload struct {
			CategoryID string `json:"category_id"`
			Name       string `json:"name"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_category_created: %w", err)
		}
		return p.repo.UpsertCategory(ctx, entry.DeviceID, payload.CategoryID, payload.Name)

	case "menu_category_renamed":
		var payload struct {
			CategoryID string `json:"category_id"`
			Name       string `json:"name"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_category_renamed: %w", err)
		}
		return p.repo.RenameCategory(ctx, entry.DeviceID, payload.CategoryID, payload.Name)

	case "menu_category_image":
		var payload struct {
			CategoryID string  `json:"category_id"`
			ImagePath  *string `json:"image_path"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_category_image: %w", err)
		}
		return p.repo.SetCategoryImage(ctx, entry.DeviceID, payload.CategoryID, payload.ImagePath)

	case "menu_item_created":
		var payload struct {
			ItemID     string  `json:"item_id"`
			CategoryID *string `json:"category_id"`
			Name       string  `json:"name"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_item_created: %w", err)
		}
		return p.repo.UpsertItem(ctx, entry.DeviceID, payload.ItemID, payload.CategoryID, payload.Name)

	case "menu_item_deleted":
		var payload struct {
			ItemID string `json:"item_id"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_item_deleted: %w", err)
		}
		return p.repo.DeleteItem(ctx, entry.DeviceID, payload.ItemID)

	case "menu_item_visibility":
		var payload struct {
			ItemID string `json:"item_id"`
			Active bool   `json:"active"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_item_visibility: %w", err)
		}
		return p.repo.SetItemVisibility(ctx, entry.DeviceID, payload.ItemID, payload.Active)

	case "menu_item_image":
		var payload struct {
			ItemID    string  `json:"item_id"`
			ImagePath *string `json:"image_path"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_item_image: %w", err)
		}
		return p.repo.SetItemImage(ctx, entry.DeviceID, payload.ItemID, payload.ImagePath)

	case "menu_item_modifiers_set":
		var payload struct {
			MenuItemID string `json:"menu_item_id"`
			Modifiers  []struct {
				Name       string `json:"name"`
				PriceCents int64  `json:"price_cents"`
			} `json:"modifiers"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding menu_item_modifiers_set: %w", err)
		}
		itemID, err := p.repo.GetItemID(ctx, entry.DeviceID, payload.MenuItemID)
		if err != nil {
			return fmt.Errorf("resolving item for modifiers: %w", err)
		}
		mods := make([]menu.Modifier, len(payload.Modifiers))
		for i, m := range payload.Modifiers {
			mods[i] = menu.Modifier{Name: m.Name, PriceCents: m.PriceCents}
		}
		return p.repo.SetItemModifiers(ctx, itemID, mods)

	case "dish_yield_upserted":
		var payload struct {
			MenuItemID     string  `json:"menu_item_id"`
			EstimatedTotal float64 `json:"estimated_total"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding dish_yield_upserted: %w", err)
		}
		return p.repo.UpsertDishYield(ctx, entry.DeviceID, payload.MenuItemID, payload.EstimatedTotal)

	case "dish_yield_adjusted":
		var payload struct {
			MenuItemID string  `json:"menu_item_id"`
			Remaining  float64 `json:"remaining"`
		}
		if err := json.Unmarshal(entry.EventBody, &payload); err != nil {
			return fmt.Errorf("decoding dish_yield_adjusted: %w", err)
		}
		return p.repo.AdjustDishYield(ctx, entry.DeviceID, payload.MenuItemID, payload.Remaining)
	}

	return nil
}
