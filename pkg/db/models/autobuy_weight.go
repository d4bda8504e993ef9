package models

import (
	"time"

	"github.com/google/uuid"
)

// AutobuyWeight persists one IPS weight so suggestion lift can reference the
// value that was live when a run scored its candidates.
type AutobuyWeight struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Value     float64   `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName keeps the table aligned with the autobuy_* family.
func (AutobuyWeight) TableName() string {
	return "autobuy_weights"
}
