package autobuy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// Repository handles autobuy run, weight, and substitution group persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRun(ctx context.Context, run *models.AutobuyRun) error
	SaveRun(ctx context.Context, run *models.AutobuyRun) error
	FindRun(ctx context.Context, id uuid.UUID) (*models.AutobuyRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.AutobuyRun, error)
	ListCompletedRunsSince(ctx context.Context, cutoff time.Time) ([]models.AutobuyRun, error)
	SaveRunItem(ctx context.Context, item *models.AutobuyRunItem) error
	ListWeights(ctx context.Context) ([]models.AutobuyWeight, error)
	FindWeight(ctx context.Context, name enums.IPSWeight) (*models.AutobuyWeight, error)
	UpsertWeight(ctx context.Context, weight *models.AutobuyWeight) error
	CreateGroup(ctx context.Context, group *models.SubstitutionGroup) error
	FindGroup(ctx context.Context, id uuid.UUID) (*models.SubstitutionGroup, error)
	ListGroups(ctx context.Context) ([]models.SubstitutionGroup, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	AddGroupMember(ctx context.Context, member *models.SubstitutionGroupMember) error
	RemoveGroupMember(ctx context.Context, groupID uuid.UUID, scryfallID string) (int64, error)
	ListGroupsByCard(ctx context.Context, scryfallID string) ([]models.SubstitutionGroup, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an autobuy repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.AutobuyRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) SaveRun(ctx context.Context, run *models.AutobuyRun) error {
	return r.db.WithContext(ctx).Omit("Items").Save(run).Error
}

func (r *repository) FindRun(ctx context.Context, id uuid.UUID) (*models.AutobuyRun, error) {
	var run models.AutobuyRun
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&run, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *repository) ListRuns(ctx context.Context, limit int) ([]models.AutobuyRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.AutobuyRun
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *repository) ListCompletedRunsSince(ctx context.Context, cutoff time.Time) ([]models.AutobuyRun, error) {
	statuses := []enums.AutobuyRunStatus{
		enums.AutobuyRunStatusPurchased,
		enums.AutobuyRunStatusPartiallyPurchased,
	}
	var runs []models.AutobuyRun
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status IN (?)", statuses).
		Where("created_at >= ?", cutoff).
		Order("created_at DESC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *repository) SaveRunItem(ctx context.Context, item *models.AutobuyRunItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) ListWeights(ctx context.Context) ([]models.AutobuyWeight, error) {
	var weights []models.AutobuyWeight
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&weights).Error; err != nil {
		return nil, err
	}
	return weights, nil
}

func (r *repository) FindWeight(ctx context.Context, name enums.IPSWeight) (*models.AutobuyWeight, error) {
	var weight models.AutobuyWeight
	if err := r.db.WithContext(ctx).
		Where("name = ?", name.String()).
		First(&weight).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &weight, nil
}

func (r *repository) UpsertWeight(ctx context.Context, weight *models.AutobuyWeight) error {
	existing, err := r.FindWeight(ctx, enums.IPSWeight(weight.Name))
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Value = weight.Value
		return r.db.WithContext(ctx).Save(existing).Error
	}
	return r.db.WithContext(ctx).Create(weight).Error
}

func (r *repository) CreateGroup(ctx context.Context, group *models.SubstitutionGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.SubstitutionGroup, error) {
	var group models.SubstitutionGroup
	if err := r.db.WithContext(ctx).
		Preload("Members").
		First(&group, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListGroups(ctx context.Context) ([]models.SubstitutionGroup, error) {
	var groups []models.SubstitutionGroup
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Order("created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.SubstitutionGroupMember{}, "group_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.SubstitutionGroup{}, "id = ?", id).Error
}

func (r *repository) AddGroupMember(ctx context.Context, member *models.SubstitutionGroupMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) RemoveGroupMember(ctx context.Context, groupID uuid.UUID, scryfallID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Delete(&models.SubstitutionGroupMember{}, "group_id = ? AND scryfall_id = ?", groupID, scryfallID)
	return result.RowsAffected, result.Error
}

func (r *repository) ListGroupsByCard(ctx context.Context, scryfallID string) ([]models.SubstitutionGroup, error) {
	var groups []models.SubstitutionGroup
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Joins("JOIN substitution_group_members m ON m.group_id = substitution_groups.id").
		Where("m.scryfall_id = ?", scryfallID).
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
