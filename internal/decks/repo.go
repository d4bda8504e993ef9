package decks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
)

// Repository handles deck template persistence and instance creation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTemplate(ctx context.Context, template *models.DeckTemplate) error
	FindTemplate(ctx context.Context, id uuid.UUID) (*models.DeckTemplate, error)
	ListTemplates(ctx context.Context) ([]models.DeckTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	CreateInstance(ctx context.Context, instance *models.DeckInstance) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deck repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTemplate(ctx context.Context, template *models.DeckTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repository) FindTemplate(ctx context.Context, id uuid.UUID) (*models.DeckTemplate, error) {
	var template models.DeckTemplate
	if err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&template, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *repository) ListTemplates(ctx context.Context) ([]models.DeckTemplate, error) {
	var templates []models.DeckTemplate
	if err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *repository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.DeckTemplateCard{}, "template_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.DeckTemplate{}, "id = ?", id).Error
}

func (r *repository) CreateInstance(ctx context.Context, instance *models.DeckInstance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}
