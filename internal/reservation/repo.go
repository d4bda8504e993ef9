package reservation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
)

// Repository handles deck instance and reservation persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDeck(ctx context.Context, id uuid.UUID) (*models.DeckInstance, error)
	ListDecks(ctx context.Context) ([]models.DeckInstance, error)
	DeleteDeck(ctx context.Context, id uuid.UUID) error
	FindReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindReservationByDeckAndItem(ctx context.Context, deckID, itemID uuid.UUID) (*models.Reservation, error)
	ListReservationsByDeck(ctx context.Context, deckID uuid.UUID) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	SaveReservation(ctx context.Context, reservation *models.Reservation) error
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	SumReservedForItem(ctx context.Context, itemID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDeck(ctx context.Context, id uuid.UUID) (*models.DeckInstance, error) {
	var deck models.DeckInstance
	if err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&deck, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &deck, nil
}

func (r *repository) ListDecks(ctx context.Context) ([]models.DeckInstance, error) {
	var decks []models.DeckInstance
	if err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

func (r *repository) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.DeckInstanceCard{}, "deck_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.DeckInstance{}, "id = ?", id).Error
}

func (r *repository) FindReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindReservationByDeckAndItem(ctx context.Context, deckID, itemID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).
		Where("deck_id = ? AND inventory_item_id = ?", deckID, itemID).
		First(&reservation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListReservationsByDeck(ctx context.Context, deckID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("deck_id = ?", deckID).
		Order("created_at ASC, id ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) SaveReservation(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

func (r *repository) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", id).Error
}

func (r *repository) SumReservedForItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("inventory_item_id = ?", itemID).
		Select("COALESCE(SUM(quantity_reserved), 0)").
		Scan(&total).Error
	return int(total), err
}
