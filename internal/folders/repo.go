package folders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
)

// Repository handles folder persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFolder(ctx context.Context, folder *models.Folder) error
	FindFolderByName(ctx context.Context, name string) (*models.Folder, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
	DeleteFolder(ctx context.Context, id uuid.UUID) error
	RenameFolder(ctx context.Context, id uuid.UUID, name string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a folder repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}

func (r *repository) FindFolderByName(ctx context.Context, name string) (*models.Folder, error) {
	var folder models.Folder
	if err := r.db.WithContext(ctx).
		Where("name_lower = ?", strings.ToLower(name)).
		First(&folder).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &folder, nil
}

func (r *repository) ListFolders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	if err := r.db.WithContext(ctx).Order("name_lower ASC").Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *repository) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error
}

func (r *repository) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.Folder{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "name_lower": strings.ToLower(name)}).Error
}
