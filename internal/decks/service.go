package decks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/reservation"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

// ServiceParams groups dependencies for the deck service.
type ServiceParams struct {
	DB           *db.Client
	Repo         Repository
	Reservations reservation.Repository
	Items        inventory.Repository
	Logger       *logger.Logger
}

// Service owns deck templates and deck instance construction. Reservation
// mutation stays in the reservation engine.
type Service struct {
	db           *db.Client
	repo         Repository
	reservations reservation.Repository
	items        inventory.Repository
	logg         *logger.Logger
}

// NewService builds a deck service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Reservations == nil {
		return nil, errors.New("reservation repo is required")
	}
	if params.Items == nil {
		return nil, errors.New("inventory repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:           params.DB,
		repo:         params.Repo,
		reservations: params.Reservations,
		items:        params.Items,
		logg:         params.Logger,
	}, nil
}

// TemplateCardInput is one desired line of a template.
type TemplateCardInput struct {
	Name            string  `json:"name" validate:"required"`
	Quantity        int     `json:"quantity" validate:"gt=0"`
	SetCode         *string `json:"set_code,omitempty"`
	CollectorNumber *string `json:"collector_number,omitempty"`
}

// CreateTemplateInput mirrors the writable template fields.
type CreateTemplateInput struct {
	Name          string              `json:"name" validate:"required"`
	Format        string              `json:"format" validate:"required"`
	CommanderName *string             `json:"commander_name,omitempty"`
	Description   *string             `json:"description,omitempty"`
	ArchidektURL  *string             `json:"archidekt_url,omitempty"`
	Cards         []TemplateCardInput `json:"cards" validate:"required,min=1,dive"`
}

// CreateTemplate stores a desired deck composition.
func (s *Service) CreateTemplate(ctx context.Context, input CreateTemplateInput) (*models.DeckTemplate, error) {
	format, err := enums.ParseDeckFormat(input.Format)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deck format")
	}

	total := 0
	for _, card := range input.Cards {
		total += card.Quantity
	}
	if total < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deck template needs at least one card")
	}

	template := &models.DeckTemplate{
		ID:            uuid.New(),
		Name:          input.Name,
		Format:        format,
		CommanderName: input.CommanderName,
		Description:   input.Description,
		ArchidektURL:  input.ArchidektURL,
	}
	for position, card := range input.Cards {
		template.Cards = append(template.Cards, models.DeckTemplateCard{
			ID:              uuid.New(),
			TemplateID:      template.ID,
			Name:            card.Name,
			Quantity:        card.Quantity,
			SetCode:         card.SetCode,
			CollectorNumber: card.CollectorNumber,
			Position:        position,
		})
	}

	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, db.Classify(err, "deck template not found")
	}
	return template, nil
}

// ImportTemplate parses an Archidekt-compatible deck list into a template.
func (s *Service) ImportTemplate(ctx context.Context, name, format, deckList string) (*models.DeckTemplate, error) {
	lines, err := ParseDeckList(deckList)
	if err != nil {
		return nil, err
	}

	cards := make([]TemplateCardInput, len(lines))
	for i, line := range lines {
		cards[i] = TemplateCardInput{Name: line.Name, Quantity: line.Quantity, SetCode: line.SetCode}
	}
	return s.CreateTemplate(ctx, CreateTemplateInput{Name: name, Format: format, Cards: cards})
}

// GetTemplate returns one template with its cards.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*models.DeckTemplate, error) {
	template, err := s.repo.FindTemplate(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "deck template not found")
	}
	if template == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deck template not found")
	}
	return template, nil
}

// ListTemplates returns all templates, newest first.
func (s *Service) ListTemplates(ctx context.Context) ([]models.DeckTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, db.Classify(err, "deck templates not found")
	}
	return templates, nil
}

// DeleteTemplate removes a template. Built instances keep their snapshot.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	template, err := s.repo.FindTemplate(ctx, id)
	if err != nil {
		return db.Classify(err, "deck template not found")
	}
	if template == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "deck template not found")
	}
	return db.Classify(s.repo.DeleteTemplate(ctx, id), "deck template not found")
}

// BuildInstance snapshots a template into a new deck instance. The snapshot
// is copied, so later template edits do not drift built decks.
func (s *Service) BuildInstance(ctx context.Context, templateID uuid.UUID, name string) (*models.DeckInstance, error) {
	var instance *models.DeckInstance

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		template, err := repo.FindTemplate(ctx, templateID)
		if err != nil {
			return db.Classify(err, "deck template not found")
		}
		if template == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deck template not found")
		}

		if name == "" {
			name = template.Name
		}
		templateRef := template.ID
		instance = &models.DeckInstance{
			ID:         uuid.New(),
			Name:       name,
			TemplateID: &templateRef,
		}
		for position, card := range template.Cards {
			instance.Cards = append(instance.Cards, models.DeckInstanceCard{
				ID:       uuid.New(),
				DeckID:   instance.ID,
				Name:     card.Name,
				Quantity: card.Quantity,
				SetCode:  card.SetCode,
				Position: position,
			})
		}
		return db.Classify(repo.CreateInstance(ctx, instance), "deck instance not found")
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ListInstances returns all deck instances, newest first.
func (s *Service) ListInstances(ctx context.Context) ([]models.DeckInstance, error) {
	decks, err := s.reservations.ListDecks(ctx)
	if err != nil {
		return nil, db.Classify(err, "deck instances not found")
	}
	return decks, nil
}

// ReservationDetail joins a reservation with its item for display.
type ReservationDetail struct {
	ID               uuid.UUID        `json:"id"`
	InventoryItemID  uuid.UUID        `json:"inventory_item_id"`
	CardName         string           `json:"card_name"`
	SetCode          string           `json:"set_code"`
	QuantityReserved int              `json:"quantity_reserved"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price,omitempty"`
}

// InstanceDetails is the full view of a built deck.
type InstanceDetails struct {
	Deck          *models.DeckInstance `json:"deck"`
	State         string               `json:"state"`
	Reservations  []ReservationDetail  `json:"reservations"`
	AggregateCost decimal.Decimal      `json:"aggregate_cost"`
}

// GetInstanceDetails returns the deck, its reservations, and the summed
// purchase cost of the reserved copies.
func (s *Service) GetInstanceDetails(ctx context.Context, deckID uuid.UUID) (*InstanceDetails, error) {
	deck, err := s.reservations.FindDeck(ctx, deckID)
	if err != nil {
		return nil, db.Classify(err, "deck instance not found")
	}
	if deck == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deck instance not found")
	}

	rows, err := s.reservations.ListReservationsByDeck(ctx, deckID)
	if err != nil {
		return nil, db.Classify(err, "reservations not found")
	}

	details := &InstanceDetails{
		Deck:          deck,
		State:         reservation.DeckState(deck, rows),
		Reservations:  make([]ReservationDetail, 0, len(rows)),
		AggregateCost: decimal.Zero,
	}
	for _, row := range rows {
		item, err := s.items.FindItemByID(ctx, row.InventoryItemID)
		if err != nil {
			return nil, db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}
		detail := ReservationDetail{
			ID:               row.ID,
			InventoryItemID:  item.ID,
			CardName:         item.Name,
			SetCode:          item.SetCode,
			QuantityReserved: row.QuantityReserved,
			PurchasePrice:    item.PurchasePrice,
		}
		details.Reservations = append(details.Reservations, detail)
		if item.PurchasePrice != nil {
			lineCost := item.PurchasePrice.Mul(decimal.NewFromInt(int64(row.QuantityReserved)))
			details.AggregateCost = details.AggregateCost.Add(lineCost)
		}
	}
	return details, nil
}
