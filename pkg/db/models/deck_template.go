package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// DeckTemplate describes the desired composition of a deck. It never owns
// physical copies.
type DeckTemplate struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string             `gorm:"column:name;not null" json:"name"`
	Format        enums.DeckFormat   `gorm:"column:format;not null" json:"format"`
	CommanderName *string            `gorm:"column:commander_name" json:"commander_name,omitempty"`
	Description   *string            `gorm:"column:description" json:"description,omitempty"`
	ArchidektURL  *string            `gorm:"column:archidekt_url" json:"archidekt_url,omitempty"`
	Cards         []DeckTemplateCard `gorm:"foreignKey:TemplateID" json:"cards,omitempty"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// DeckTemplateCard is one desired line of a template, ordered by Position.
type DeckTemplateCard struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TemplateID      uuid.UUID `gorm:"column:template_id;type:uuid;not null;index" json:"template_id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	Quantity        int       `gorm:"column:quantity;not null" json:"quantity"`
	SetCode         *string   `gorm:"column:set_code" json:"set_code,omitempty"`
	CollectorNumber *string   `gorm:"column:collector_number" json:"collector_number,omitempty"`
	Position        int       `gorm:"column:position;not null;default:0" json:"position"`
}
