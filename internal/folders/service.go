package folders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/undo"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

// reservedNames can never be user folders, case-insensitive. Unsorted and
// Trash exist implicitly without a row.
var reservedNames = map[string]struct{}{
	"unsorted":      {},
	"uncategorized": {},
	"all":           {},
	"all cards":     {},
	"trash":         {},
}

// IsReservedName reports whether a folder name collides with the implicit set.
func IsReservedName(name string) bool {
	_, ok := reservedNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ServiceParams groups dependencies for the folder service.
type ServiceParams struct {
	DB            *db.Client
	Repo          Repository
	InventoryRepo inventory.Repository
	Logger        *logger.Logger
	Recorder      undo.Recorder
}

// Service owns folder lifecycle and every folder-move of inventory items.
type Service struct {
	db       *db.Client
	repo     Repository
	items    inventory.Repository
	logg     *logger.Logger
	recorder undo.Recorder
}

// NewService builds a folder service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.InventoryRepo == nil {
		return nil, errors.New("inventory repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		items:    params.InventoryRepo,
		logg:     params.Logger,
		recorder: params.Recorder,
	}, nil
}

// FolderView is a folder row plus its item count; implicit folders appear
// with a nil ID.
type FolderView struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	ItemCount   int64      `json:"item_count"`
}

// Create adds a user folder. Reserved names are rejected outright.
func (s *Service) Create(ctx context.Context, name string, description *string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder name is required")
	}
	if IsReservedName(name) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is a reserved folder name", name))
	}

	existing, err := s.repo.FindFolderByName(ctx, name)
	if err != nil {
		return nil, db.Classify(err, "folder not found")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("folder %q already exists", existing.Name))
	}

	folder := &models.Folder{
		ID:          uuid.New(),
		Name:        name,
		NameLower:   strings.ToLower(name),
		Description: description,
	}
	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		if db.IsUniqueViolation(err, "idx_folders_name_lower") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("folder %q already exists", name))
		}
		return nil, db.Classify(err, "folder not found")
	}
	return folder, nil
}

// List returns user folders plus the implicit Unsorted and Trash entries when
// items reference them.
func (s *Service) List(ctx context.Context) ([]FolderView, error) {
	rows, err := s.repo.ListFolders(ctx)
	if err != nil {
		return nil, db.Classify(err, "folders not found")
	}

	views := make([]FolderView, 0, len(rows)+2)
	for _, row := range rows {
		count, err := s.items.CountItemsInFolder(ctx, row.Name)
		if err != nil {
			return nil, db.Classify(err, "folders not found")
		}
		id := row.ID
		views = append(views, FolderView{ID: &id, Name: row.Name, Description: row.Description, ItemCount: count})
	}

	for _, implicit := range []string{inventory.UnsortedFolder, inventory.TrashFolder} {
		count, err := s.items.CountItemsInFolder(ctx, implicit)
		if err != nil {
			return nil, db.Classify(err, "folders not found")
		}
		if count > 0 {
			views = append(views, FolderView{Name: implicit, ItemCount: count})
		}
	}
	return views, nil
}

// Rename changes a folder's name and moves every referencing item in the same
// transaction.
func (s *Service) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "folder name is required")
	}
	if IsReservedName(newName) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is a reserved folder name", newName))
	}
	if IsReservedName(oldName) {
		return pkgerrors.New(pkgerrors.CodeValidation, "implicit folders cannot be renamed")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)

		folder, err := repo.FindFolderByName(ctx, oldName)
		if err != nil {
			return db.Classify(err, "folder not found")
		}
		if folder == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("folder %q not found", oldName))
		}

		if !strings.EqualFold(oldName, newName) {
			clash, err := repo.FindFolderByName(ctx, newName)
			if err != nil {
				return db.Classify(err, "folder not found")
			}
			if clash != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("folder %q already exists", newName))
			}
		}

		if err := repo.RenameFolder(ctx, folder.ID, newName); err != nil {
			return db.Classify(err, "folder not found")
		}
		if _, err := items.MoveFolderItems(ctx, folder.Name, newName); err != nil {
			return db.Classify(err, "folder not found")
		}
		return nil
	})
}

// Delete removes a user folder; referencing items fall back to Unsorted in
// the same transaction.
func (s *Service) Delete(ctx context.Context, name string) error {
	if IsReservedName(name) {
		return pkgerrors.New(pkgerrors.CodeValidation, "implicit folders cannot be deleted")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)

		folder, err := repo.FindFolderByName(ctx, name)
		if err != nil {
			return db.Classify(err, "folder not found")
		}
		if folder == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("folder %q not found", name))
		}

		if _, err := items.MoveFolderItems(ctx, folder.Name, inventory.UnsortedFolder); err != nil {
			return db.Classify(err, "folder not found")
		}
		if err := repo.DeleteFolder(ctx, folder.ID); err != nil {
			return db.Classify(err, "folder not found")
		}
		return nil
	})
}

// MoveItem places one item into the target folder.
func (s *Service) MoveItem(ctx context.Context, itemID uuid.UUID, targetFolder string) (*models.InventoryItem, error) {
	target, err := s.resolveTarget(ctx, targetFolder)
	if err != nil {
		return nil, err
	}

	var moved *models.InventoryItem
	var entry undo.Entry

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		item, err := items.FindItemForUpdate(ctx, itemID)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if target == inventory.TrashFolder && item.ReservedQuantity > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				"item has active reservations; remove them before deleting").
				WithDetails(map[string]any{"reservedQuantity": item.ReservedQuantity})
		}

		from := item.Folder
		item.Folder = target
		if err := items.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}
		moved = item

		entry = undo.NewEntry(
			enums.UndoMoveToFolder,
			fmt.Sprintf("moved %s to %s", item.Name, target),
			undo.Payload{Op: "folders.move_item", Args: map[string]any{"item_id": itemID.String(), "folder": target}},
			undo.Payload{Op: "folders.move_item", Args: map[string]any{"item_id": itemID.String(), "folder": from}},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, entry)
	return moved, nil
}

// MoveItems places a batch of items into the target folder atomically.
func (s *Service) MoveItems(ctx context.Context, itemIDs []uuid.UUID, targetFolder string) (int, error) {
	if len(itemIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item ids are required")
	}
	target, err := s.resolveTarget(ctx, targetFolder)
	if err != nil {
		return 0, err
	}

	previous := make(map[string]string, len(itemIDs))
	moved := 0

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		for _, id := range itemIDs {
			item, err := items.FindItemForUpdate(ctx, id)
			if err != nil {
				return db.Classify(err, "inventory item not found")
			}
			if item == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory item %s not found", id))
			}
			if target == inventory.TrashFolder && item.ReservedQuantity > 0 {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("item %s has active reservations", id))
			}
			previous[id.String()] = item.Folder
			item.Folder = target
			if err := items.SaveItem(ctx, item); err != nil {
				return db.Classify(err, "inventory item not found")
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	entryType := enums.UndoBulkMove
	if target == inventory.TrashFolder {
		entryType = enums.UndoBulkDelete
	}
	s.record(ctx, undo.NewEntry(
		entryType,
		fmt.Sprintf("moved %d items to %s", moved, target),
		undo.Payload{Op: "folders.restore_folders", Args: map[string]any{"folders": uniformTargets(previous, target)}},
		undo.Payload{Op: "folders.restore_folders", Args: map[string]any{"folders": anyMap(previous)}},
	))
	return moved, nil
}

// MoveByCardName moves every non-trashed item matching the card name.
func (s *Service) MoveByCardName(ctx context.Context, cardName, targetFolder string) (int, error) {
	matches, err := s.items.ListItems(ctx, inventory.ItemFilter{Name: cardName})
	if err != nil {
		return 0, db.Classify(err, "inventory items not found")
	}
	if len(matches) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no items named %q", cardName))
	}

	ids := make([]uuid.UUID, len(matches))
	for i, item := range matches {
		ids[i] = item.ID
	}
	return s.MoveItems(ctx, ids, targetFolder)
}

// RestoreFolders re-applies a recorded item-to-folder mapping. Used by undo
// replay of bulk moves.
func (s *Service) RestoreFolders(ctx context.Context, mapping map[string]any) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		for rawID, rawFolder := range mapping {
			id, err := uuid.Parse(rawID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id in payload")
			}
			folder, ok := rawFolder.(string)
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid folder in payload")
			}
			item, err := items.FindItemForUpdate(ctx, id)
			if err != nil {
				return db.Classify(err, "inventory item not found")
			}
			if item == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory item %s not found", id))
			}
			item.Folder = folder
			if err := items.SaveItem(ctx, item); err != nil {
				return db.Classify(err, "inventory item not found")
			}
		}
		return nil
	})
}

// resolveTarget validates a move destination: implicit folders pass, user
// folders must exist.
func (s *Service) resolveTarget(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "target folder is required")
	}
	if strings.EqualFold(name, inventory.UnsortedFolder) {
		return inventory.UnsortedFolder, nil
	}
	if strings.EqualFold(name, inventory.TrashFolder) {
		return inventory.TrashFolder, nil
	}
	if IsReservedName(name) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not a movable folder", name))
	}

	folder, err := s.repo.FindFolderByName(ctx, name)
	if err != nil {
		return "", db.Classify(err, "folder not found")
	}
	if folder == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("folder %q not found", name))
	}
	return folder.Name, nil
}

func (s *Service) record(ctx context.Context, entry undo.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, entry)
}

func uniformTargets(previous map[string]string, target string) map[string]any {
	out := make(map[string]any, len(previous))
	for id := range previous {
		out[id] = target
	}
	return out
}

func anyMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
