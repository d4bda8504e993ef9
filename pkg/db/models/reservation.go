package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation claims quantity_reserved copies of one inventory item for one
// deck instance. The sum of reservations per item must equal the item's
// reserved_quantity counter.
type Reservation struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DeckID           uuid.UUID `gorm:"column:deck_id;type:uuid;not null;index" json:"deck_id"`
	InventoryItemID  uuid.UUID `gorm:"column:inventory_item_id;type:uuid;not null;index" json:"inventory_item_id"`
	QuantityReserved int       `gorm:"column:quantity_reserved;not null" json:"quantity_reserved"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
