package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/undo"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

// ServiceParams groups dependencies for the inventory service.
type ServiceParams struct {
	DB       *db.Client
	Repo     Repository
	Logger   *logger.Logger
	Recorder undo.Recorder
}

// Service owns inventory item lifecycle: create, edit, soft-delete to Trash,
// restore, and permanent deletion. Folder moves live in the folders service.
type Service struct {
	db       *db.Client
	repo     Repository
	logg     *logger.Logger
	recorder undo.Recorder
}

// NewService builds an inventory service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		logg:     params.Logger,
		recorder: params.Recorder,
	}, nil
}

// CreateItemInput mirrors the writable item fields.
type CreateItemInput struct {
	Name            string           `json:"name" validate:"required"`
	SetCode         string           `json:"set_code" validate:"required"`
	CollectorNumber *string          `json:"collector_number,omitempty"`
	Finish          string           `json:"finish,omitempty"`
	Quality         string           `json:"quality,omitempty"`
	Quantity        int              `json:"quantity" validate:"gte=0"`
	PurchasePrice   *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate    *time.Time       `json:"purchase_date,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
	Folder          string           `json:"folder,omitempty"`
}

// UpdateItemInput is a partial patch; nil fields are left untouched.
type UpdateItemInput struct {
	Name            *string          `json:"name,omitempty"`
	SetCode         *string          `json:"set_code,omitempty"`
	CollectorNumber *string          `json:"collector_number,omitempty"`
	Finish          *string          `json:"finish,omitempty"`
	Quality         *string          `json:"quality,omitempty"`
	Quantity        *int             `json:"quantity,omitempty"`
	PurchasePrice   *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate    *time.Time       `json:"purchase_date,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
}

// List returns items matching the filter. Trash is excluded unless requested
// explicitly.
func (s *Service) List(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error) {
	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, db.Classify(err, "inventory items not found")
	}
	return items, nil
}

// Get returns one item by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "inventory item not found")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return item, nil
}

// Create inserts a new item line.
func (s *Service) Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	finish := enums.CardFinishNormal
	if input.Finish != "" {
		parsed, err := enums.ParseCardFinish(input.Finish)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid finish")
		}
		finish = parsed
	}
	quality := enums.CardQualityNM
	if input.Quality != "" {
		parsed, err := enums.ParseCardQuality(input.Quality)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quality")
		}
		quality = parsed
	}
	folder := input.Folder
	if folder == "" {
		folder = UnsortedFolder
	}
	if strings.EqualFold(folder, TrashFolder) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot create an item directly in Trash")
	}

	item := &models.InventoryItem{
		ID:              uuid.New(),
		Name:            input.Name,
		NameLower:       strings.ToLower(input.Name),
		SetCode:         input.SetCode,
		CollectorNumber: input.CollectorNumber,
		Finish:          finish,
		Quality:         quality,
		Quantity:        input.Quantity,
		PurchasePrice:   input.PurchasePrice,
		PurchaseDate:    input.PurchaseDate,
		ImageURL:        input.ImageURL,
		Folder:          folder,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, db.Classify(err, "inventory item not found")
	}
	return item, nil
}

// Update applies a partial patch inside one transaction and records the
// inverse patch for undo.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	var updated *models.InventoryItem
	var entry undo.Entry

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, id)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}

		before := snapshotPatch(item)

		if input.Name != nil {
			if strings.ToLower(*input.Name) != item.NameLower && item.ReservedQuantity > 0 {
				return pkgerrors.New(pkgerrors.CodeConflict,
					"item has active reservations; release them before renaming").
					WithDetails(map[string]any{"reservedQuantity": item.ReservedQuantity})
			}
			item.Name = *input.Name
			item.NameLower = strings.ToLower(*input.Name)
		}
		if input.SetCode != nil {
			item.SetCode = *input.SetCode
		}
		if input.CollectorNumber != nil {
			item.CollectorNumber = input.CollectorNumber
		}
		if input.Finish != nil {
			finish, err := enums.ParseCardFinish(*input.Finish)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid finish")
			}
			item.Finish = finish
		}
		if input.Quality != nil {
			quality, err := enums.ParseCardQuality(*input.Quality)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quality")
			}
			item.Quality = quality
		}
		if input.Quantity != nil {
			if *input.Quantity < item.ReservedQuantity {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("quantity %d would drop below reserved %d", *input.Quantity, item.ReservedQuantity))
			}
			item.Quantity = *input.Quantity
		}
		if input.PurchasePrice != nil {
			item.PurchasePrice = input.PurchasePrice
		}
		if input.PurchaseDate != nil {
			item.PurchaseDate = input.PurchaseDate
		}
		if input.ImageURL != nil {
			item.ImageURL = input.ImageURL
		}

		if err := repo.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		updated = item

		after := snapshotPatch(item)
		entry = undo.NewEntry(
			enums.UndoUpdateItem,
			"edited "+item.Name,
			undo.Payload{Op: "inventory.apply_patch", Args: map[string]any{"item_id": id.String(), "patch": after}},
			undo.Payload{Op: "inventory.apply_patch", Args: map[string]any{"item_id": id.String(), "patch": before}},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, entry)
	return updated, nil
}

// ApplyPatch re-applies a recorded field snapshot. Used by undo replay.
func (s *Service) ApplyPatch(ctx context.Context, id uuid.UUID, patch map[string]any) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, id)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		applySnapshot(item, patch)
		if err := repo.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		return nil
	})
}

// MoveToTrash soft-deletes an item. Reserved items cannot be trashed.
func (s *Service) MoveToTrash(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var moved *models.InventoryItem
	var entry undo.Entry

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, id)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if item.ReservedQuantity > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				"item has active reservations; remove them before deleting").
				WithDetails(map[string]any{"reservedQuantity": item.ReservedQuantity})
		}

		previousFolder := item.Folder
		item.Folder = TrashFolder
		if err := repo.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		moved = item

		entry = undo.NewEntry(
			enums.UndoDeleteItem,
			"deleted "+item.Name,
			undo.Payload{Op: "inventory.trash", Args: map[string]any{"item_id": id.String()}},
			undo.Payload{Op: "inventory.restore", Args: map[string]any{"item_id": id.String(), "folder": previousFolder}},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, entry)
	return moved, nil
}

// Restore pulls an item out of Trash into the given folder, or Unsorted when
// none is provided.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, folder string) (*models.InventoryItem, error) {
	if folder == "" {
		folder = UnsortedFolder
	}
	if strings.EqualFold(folder, TrashFolder) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot restore into Trash")
	}

	var restored *models.InventoryItem
	var entry undo.Entry

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, id)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if item.Folder != TrashFolder {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not in Trash")
		}

		item.Folder = folder
		if err := repo.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		restored = item

		entry = undo.NewEntry(
			enums.UndoRestoreItem,
			"restored "+item.Name,
			undo.Payload{Op: "inventory.restore", Args: map[string]any{"item_id": id.String(), "folder": folder}},
			undo.Payload{Op: "inventory.trash", Args: map[string]any{"item_id": id.String()}},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, entry)
	return restored, nil
}

// Delete permanently removes an item. Fails while reservations exist.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, id)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if item.ReservedQuantity > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				"item has active reservations; remove them before deleting").
				WithDetails(map[string]any{"reservedQuantity": item.ReservedQuantity})
		}
		if err := repo.DeleteItem(ctx, id); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		return nil
	})
}

// EmptyTrash permanently deletes everything in Trash. Failures on individual
// items do not abort the sweep; they are aggregated and returned.
func (s *Service) EmptyTrash(ctx context.Context) (int, error) {
	items, err := s.repo.ListTrash(ctx)
	if err != nil {
		return 0, db.Classify(err, "inventory items not found")
	}

	deleted := 0
	var errs error
	for _, item := range items {
		if err := s.Delete(ctx, item.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", item.ID, err))
			continue
		}
		deleted++
	}
	if errs != nil {
		s.logg.Error(ctx, "emptying trash completed with failures", errs)
		return deleted, pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "some trashed items could not be deleted")
	}
	return deleted, nil
}

func (s *Service) record(ctx context.Context, entry undo.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, entry)
}

// snapshotPatch captures the undoable scalar fields of an item.
func snapshotPatch(item *models.InventoryItem) map[string]any {
	patch := map[string]any{
		"name":     item.Name,
		"set_code": item.SetCode,
		"finish":   item.Finish.String(),
		"quality":  item.Quality.String(),
		"quantity": item.Quantity,
	}
	if item.CollectorNumber != nil {
		patch["collector_number"] = *item.CollectorNumber
	}
	if item.PurchasePrice != nil {
		patch["purchase_price"] = item.PurchasePrice.String()
	}
	if item.ImageURL != nil {
		patch["image_url"] = *item.ImageURL
	}
	return patch
}

func applySnapshot(item *models.InventoryItem, patch map[string]any) {
	if v, ok := patch["name"].(string); ok {
		item.Name = v
		item.NameLower = strings.ToLower(v)
	}
	if v, ok := patch["set_code"].(string); ok {
		item.SetCode = v
	}
	if v, ok := patch["finish"].(string); ok {
		if finish, err := enums.ParseCardFinish(v); err == nil {
			item.Finish = finish
		}
	}
	if v, ok := patch["quality"].(string); ok {
		if quality, err := enums.ParseCardQuality(v); err == nil {
			item.Quality = quality
		}
	}
	if v, err := undo.IntArg(patch, "quantity"); err == nil {
		item.Quantity = v
	}
	if v, ok := patch["collector_number"].(string); ok {
		item.CollectorNumber = &v
	}
	if v, ok := patch["purchase_price"].(string); ok {
		if price, err := decimal.NewFromString(v); err == nil {
			item.PurchasePrice = &price
		}
	}
	if v, ok := patch["image_url"].(string); ok {
		item.ImageURL = &v
	}
}
