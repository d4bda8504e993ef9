package models

import (
	"time"

	"github.com/google/uuid"
)

// SubstitutionGroup names a set of interchangeable cards that share demand
// pressure for IPS scoring.
type SubstitutionGroup struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string                    `gorm:"column:name;not null" json:"name"`
	Description *string                   `gorm:"column:description" json:"description,omitempty"`
	Members     []SubstitutionGroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// SubstitutionGroupMember binds one card to a group.
type SubstitutionGroupMember struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GroupID    uuid.UUID `gorm:"column:group_id;type:uuid;not null;index" json:"group_id"`
	ScryfallID string    `gorm:"column:scryfall_id;not null" json:"scryfall_id"`
	CardName   *string   `gorm:"column:card_name" json:"card_name,omitempty"`
}
