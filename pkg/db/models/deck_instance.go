package models

import (
	"time"

	"github.com/google/uuid"
)

// DeckInstance is a built physical deck holding concrete reservations against
// inventory. Cards is the snapshot of the desired composition at build time.
type DeckInstance struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name       string             `gorm:"column:name;not null" json:"name"`
	TemplateID *uuid.UUID         `gorm:"column:template_id;type:uuid" json:"template_id,omitempty"`
	Cards      []DeckInstanceCard `gorm:"foreignKey:DeckID" json:"cards,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// DeckInstanceCard is one snapshot line of a deck instance, ordered by Position.
type DeckInstanceCard struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DeckID   uuid.UUID `gorm:"column:deck_id;type:uuid;not null;index" json:"deck_id"`
	Name     string    `gorm:"column:name;not null" json:"name"`
	Quantity int       `gorm:"column:quantity;not null" json:"quantity"`
	SetCode  *string   `gorm:"column:set_code" json:"set_code,omitempty"`
	Position int       `gorm:"column:position;not null;default:0" json:"position"`
}
