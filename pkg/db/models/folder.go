package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a user-created named container. Unsorted and Trash are implicit
// and never have a row.
type Folder struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	NameLower   string    `gorm:"column:name_lower;not null;uniqueIndex" json:"-"`
	Description *string   `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
