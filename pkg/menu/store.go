package menu

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/db"
)

// Repo provides database operations for the menu/configuration read model.
// Every mutation method is keyed by device_id so the same local id on two
// different devices never collides; the canonical-device check happens one
// layer up, in pkg/projector, before any of these are called.
type Repo struct {
	dbtx db.DBTX
}

// NewRepo creates a menu Repo backed by the given database connection.
func NewRepo(dbtx db.DBTX) *Repo {
	return &Repo{dbtx: dbtx}
}

// UpsertCategory creates or replaces a category by (device_id, local_category_id).
func (r *Repo) UpsertCategory(ctx context.Context, deviceID uuid.UUID, localID, name string) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO menu_categories (device_id, local_category_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, local_category_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		deviceID, localID, name,
	)
	if err != nil {
		return fmt.Errorf("upserting category: %w", err)
	}
	return nil
}

// RenameCategory updates a category's display name.
func (r *Repo) RenameCategory(ctx context.Context, deviceID uuid.UUID, localID, name string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE menu_categories SET name = $3, updated_at = now() WHERE device_id = $1 AND local_category_id = $2`,
		deviceID, localID, name,
	)
	if err != nil {
		return fmt.Errorf("renaming category: %w", err)
	}
	return nil
}

// SetCategoryImage updates a category's image URL.
func (r *Repo) SetCategoryImage(ctx context.Context, deviceID uuid.UUID, localID string, imageURL *string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE menu_categories SET image_url = $3, updated_at = now() WHERE device_id = $1 AND local_category_id = $2`,
		deviceID, localID, imageURL,
	)
	if err != nil {
		return fmt.Errorf("setting category image: %w", err)
	}
	return nil
}

// UpsertItem creates or replaces an item by (device_id, local_item_id).
func (r *Repo) UpsertItem(ctx context.Context, deviceID uuid.UUID, localItemID string, localCategoryID *string, name string) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO menu_items (device_id, local_item_id, local_category_id, name, visible)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (device_id, local_item_id) DO UPDATE
		SET local_category_id = EXCLUDED.local_category_id, name = EXCLUDED.name, updated_at = now()`,
		deviceID, localItemID, localCategoryID, name,
	)
	if err != nil {
		return fmt.Errorf("upserting item: %w", err)
	}
	return nil
}

// DeleteItem marks an item deleted (a soft delete; menu rows are never
// physically removed so `apply_menu` snapshots stay consistent with history).
func (r *Repo) DeleteItem(ctx context.Context, deviceID uuid.UUID, localItemID string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE menu_items SET deleted = true, updated_at = now() WHERE device_id = $1 AND local_item_id = $2`,
		deviceID, localItemID,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemVisibility toggles an item's visible flag.
func (r *Repo) SetItemVisibility(ctx context.Context, deviceID uuid.UUID, localItemID string, visible bool) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE menu_items SET visible = $3, updated_at = now() WHERE device_id = $1 AND local_item_id = $2`,
		deviceID, localItemID, visible,
	)
	if err != nil {
		return fmt.Errorf("setting item visibility: %w", err)
	}
	return nil
}

// SetItemImage updates an item's image URL.
func (r *Repo) SetItemImage(ctx context.Context, deviceID uuid.UUID, localItemID string, imageURL *string) error {
	_, err := r.dbtx.Exec(ctx,
		`UPDATE menu_items SET image_url = $3, updated_at = now() WHERE device_id = $1 AND local_item_id = $2`,
		deviceID, localItemID, imageURL,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemID resolves an item's id by (device_id, local_item_id).
func (r *Repo) GetItemID(ctx context.Context, deviceID uuid.UUID, localItemID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.dbtx.QueryRow(ctx,
		`SELECT id FROM menu_items WHERE device_id = $1 AND local_item_id = $2`,
		deviceID, localItemID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving item id: %w", err)
	}
	return id, nil
}

// SetItemModifiers replaces the full modifier set for an item.
func (r *Repo) SetItemModifiers(ctx context.Context, itemID uuid.UUID, modifiers []Modifier) error {
	if _, err := r.dbtx.Exec(ctx, `DELETE FROM menu_modifiers WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clearing modifiers: %w", err)
	}
	for _, m := range modifiers {
		_, err := r.dbtx.Exec(ctx,
			`INSERT INTO menu_modifiers (item_id, name, price_cents) VALUES ($1, $2, $3)`,
			itemID, m.Name, m.PriceCents,
		)
		if err != nil {
			return fmt.Errorf("inserting modifier: %w", err)
		}
	}
	return nil
}

// UpsertDishYield creates or replaces a dish-yield row by (device_id, local_dish_id).
func (r *Repo) UpsertDishYield(ctx context.Context, deviceID uuid.UUID, localDishID string, yieldQty float64) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO dish_yields (device_id, local_dish_id, yield_qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, local_dish_id) DO UPDATE SET yield_qty = EXCLUDED.yield_qty, updated_at = now()`,
		deviceID, localDishID, yieldQty,
	)
	if err != nil {
		return fmt.Errorf("upserting dish yield: %w", err)
	}
	return nil
}

// AdjustDishYield sets a dish-yield row's remaining quantity to an
// absolute value (dish_yield_adjusted carries the new remaining count,
// not a delta).
func (r *Repo) AdjustDishYield(ctx context.Context, deviceID uuid.UUID, localDishID string, remaining float64) error {
	_, err := r.dbtx.Exec(ctx, `
		INSERT INTO dish_yields (device_id, local_dish_id, yield_qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, local_dish_id) DO UPDATE SET yield_qty = $3, updated_at = now()`,
		deviceID, localDishID, remaining,
	)
	if err != nil {
		return fmt.Errorf("adjusting dish yield: %w", err)
	}
	return nil
}

// InsertConfigAlert records a canonical-device conflict.
func (r *Repo) InsertConfigAlert(ctx context.Context, storeID, deviceID uuid.UUID, eventType, detail string) error {
	_, err := r.dbtx.Exec(ctx,
		`INSERT INTO device_config_alerts (store_id, device_id, event_type, detail) VALUES ($1, $2, $3, $4)`,
		storeID, deviceID, eventType, detail,
	)
	if err != nil {
		return fmt.Errorf("inserting config alert: %w", err)
	}
	return nil
}

// ListConfigAlerts returns recent conflicts for a store, for the portal's
// "GET /portal/device-config-alerts" surface.
func (r *Repo) ListConfigAlerts(ctx context.Context, storeID uuid.UUID, limit int) ([]ConfigAlert, error) {
	return r.ListConfigAlertsPage(ctx, storeID, limit, 0)
}

// ListConfigAlertsPage returns a page of recent conflicts for a store,
// ordered newest first.
func (r *Repo) ListConfigAlertsPage(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]ConfigAlert, error) {
	rows, err := r.dbtx.Query(ctx,
		`SELECT id, store_id, device_id, event_type, detail, created_at
		 FROM device_config_alerts WHERE store_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		storeID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing config alerts: %w", err)
	}
	defer rows.Close()

	var out []ConfigAlert
	for rows.Next() {
		var a ConfigAlert
		if err := rows.Scan(&a.ID, &a.StoreID, &a.DeviceID, &a.EventType, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning config alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountConfigAlerts returns the total number of config alerts for a store,
// for pagination totals.
func (r *Repo) CountConfigAlerts(ctx context.Context, storeID uuid.UUID) (int, error) {
	var total int
	err := r.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM device_config_alerts WHERE store_id = $1`, storeID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting config alerts: %w", err)
	}
	return total, nil
}

// ListCategories and ListItems back the device-facing GET /sync/menu pull.
func (r *Repo) ListCategories(ctx context.Context, deviceID uuid.UUID) ([]Category, error) {
	rows, err := r.dbtx.Query(ctx,
		`SELECT id, device_id, local_category_id, name, image_url, created_at, updated_at
		 FROM menu_categories WHERE device_id = $1 ORDER BY name ASC`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.LocalCategoryID, &c.Name, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListItems returns every non-deleted item for a device.
func (r *Repo) ListItems(ctx context.Context, deviceID uuid.UUID) ([]Item, error) {
	rows, err := r.dbtx.Query(ctx,
		`SELECT id, device_id, local_item_id, local_category_id, name, visible, image_url, deleted, created_at, updated_at
		 FROM menu_items WHERE device_id = $1 AND deleted = false ORDER BY name ASC`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.DeviceID, &it.LocalItemID, &it.LocalCategoryID, &it.Name, &it.Visible, &it.ImageURL, &it.Deleted, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
