package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// InventoryItem is a physical SKU line: n copies sharing name, set, finish, and quality.
type InventoryItem struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name             string            `gorm:"column:name;not null" json:"name"`
	NameLower        string            `gorm:"column:name_lower;not null;index" json:"-"`
	SetCode          string            `gorm:"column:set_code;not null" json:"set_code"`
	CollectorNumber  *string           `gorm:"column:collector_number" json:"collector_number,omitempty"`
	Finish           enums.CardFinish  `gorm:"column:finish;not null;default:normal" json:"finish"`
	Quality          enums.CardQuality `gorm:"column:quality;not null;default:NM" json:"quality"`
	Quantity         int               `gorm:"column:quantity;not null;default:0" json:"quantity"`
	ReservedQuantity int               `gorm:"column:reserved_quantity;not null;default:0" json:"reserved_quantity"`
	PurchasePrice    *decimal.Decimal  `gorm:"column:purchase_price;type:numeric(12,2)" json:"purchase_price,omitempty"`
	PurchaseDate     *time.Time        `gorm:"column:purchase_date" json:"purchase_date,omitempty"`
	ImageURL         *string           `gorm:"column:image_url" json:"image_url,omitempty"`
	Folder           string            `gorm:"column:folder;not null;default:Unsorted;index" json:"folder"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastModified     time.Time         `gorm:"column:last_modified;autoUpdateTime" json:"last_modified"`
}

// AvailableQuantity is the unreserved remainder of the line.
func (i InventoryItem) AvailableQuantity() int {
	return i.Quantity - i.ReservedQuantity
}
