package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// TrashFolder is the implicit soft-delete sink.
const TrashFolder = "Trash"

// UnsortedFolder is the implicit default container.
const UnsortedFolder = "Unsorted"

// ItemFilter configures inventory list queries. Name matching is
// case-insensitive exact.
type ItemFilter struct {
	Name         string
	Folder       string
	Finish       *enums.CardFinish
	Quality      *enums.CardQuality
	AvailableGTE *int
	IncludeTrash bool
}

// Repository handles inventory persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindItemForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListCandidatesForUpdate(ctx context.Context, nameLower string) ([]models.InventoryItem, error)
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	SaveItem(ctx context.Context, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListTrash(ctx context.Context) ([]models.InventoryItem, error)
	MoveFolderItems(ctx context.Context, fromFolder, toFolder string) (int64, error)
	CountItemsInFolder(ctx context.Context, folder string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if filter.Name != "" {
		query = query.Where("name_lower = ?", strings.ToLower(filter.Name))
	}
	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	} else if !filter.IncludeTrash {
		query = query.Where("folder <> ?", TrashFolder)
	}
	if filter.Finish != nil {
		query = query.Where("finish = ?", *filter.Finish)
	}
	if filter.Quality != nil {
		query = query.Where("quality = ?", *filter.Quality)
	}
	if filter.AvailableGTE != nil {
		query = query.Where("quantity - reserved_quantity >= ?", *filter.AvailableGTE)
	}

	var items []models.InventoryItem
	if err := query.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// lockForUpdate takes a row-level exclusive lock on dialects that support it.
// SQLite serializes writers on its own.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repository) FindItemForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := lockForUpdate(r.db.WithContext(ctx)).
		First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListCandidatesForUpdate returns lockable reservation candidates for one card
// name, cheapest first, oldest first, id as the deterministic tie-break.
// Unpriced items sort last.
func (r *repository) ListCandidatesForUpdate(ctx context.Context, nameLower string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := lockForUpdate(r.db.WithContext(ctx)).
		Where("name_lower = ?", nameLower).
		Where("folder <> ?", TrashFolder).
		Where("quantity - reserved_quantity > 0").
		Order("purchase_price IS NULL, purchase_price ASC, created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id).Error
}

func (r *repository) ListTrash(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("folder = ?", TrashFolder).
		Order("last_modified ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MoveFolderItems(ctx context.Context, fromFolder, toFolder string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("folder = ?", fromFolder).
		Update("folder", toFolder)
	return result.RowsAffected, result.Error
}

func (r *repository) CountItemsInFolder(ctx context.Context, folder string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("folder = ?", folder).
		Count(&count).Error
	return count, err
}
