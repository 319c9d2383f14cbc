// Package menu is the menu-and-configuration read model: per-device
// snapshots of categories, items, modifiers and dish yields (spec §4.5
// menu-and-configuration projector), plus the device-config-alert table
// used to surface canonical-device conflicts to the portal.
package menu

import (
	"time"

	"github.com/google/uuid"
)

// Category is keyed by (device_id, local_category_id).
type Category struct {
	ID              uuid.UUID
	DeviceID        uuid.UUID
	LocalCategoryID string
	Name            string
	ImageURL        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is keyed by (device_id, local_item_id).
type Item struct {
	ID              uuid.UUID
	DeviceID        uuid.UUID
	LocalItemID     string
	LocalCategoryID *string
	Name            string
	Visible         bool
	ImageURL        *string
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Modifier belongs to an Item.
type Modifier struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Name       string
	PriceCents int64
}

// DishYield is keyed by (device_id, local_dish_id).
type DishYield struct {
	ID           uuid.UUID
	DeviceID     uuid.UUID
	LocalDishID  string
	YieldQty     float64
	UpdatedAt    time.Time
}

// ConfigAlert records a canonical-device conflict: a config event arrived
// from a device that is not the store's canonical device, so the write was
// skipped (spec §4.5).
type ConfigAlert struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	DeviceID   uuid.UUID
	EventType  string
	Detail     string
	CreatedAt  time.Time
}
