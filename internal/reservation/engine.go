package reservation

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
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/metrics"
)

// Deck lifecycle states derived from reservation coverage.
const (
	StateDraft    = "draft"
	StatePartial  = "partial"
	StateComplete = "complete"
)

// EngineParams groups dependencies for the reservation engine.
type EngineParams struct {
	DB       *db.Client
	Repo     Repository
	Items    inventory.Repository
	Logger   *logger.Logger
	Recorder undo.Recorder
	Metrics  *metrics.EngineMetrics
}

// Engine allocates inventory copies to deck instances. Every public operation
// runs in exactly one transaction; reserved_quantity counters and reservation
// rows always move together.
type Engine struct {
	db       *db.Client
	repo     Repository
	items    inventory.Repository
	logg     *logger.Logger
	recorder undo.Recorder
	metrics  *metrics.EngineMetrics
}

// NewEngine builds a reservation engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Items == nil {
		return nil, errors.New("inventory repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Engine{
		db:       params.DB,
		repo:     params.Repo,
		items:    params.Items,
		logg:     params.Logger,
		recorder: params.Recorder,
		metrics:  params.Metrics,
	}, nil
}

// UnmetLine reports a desired card the allocator could not fully cover.
type UnmetLine struct {
	Name      string `json:"name"`
	Shortfall int    `json:"shortfall"`
}

// AllocationResult summarizes a reoptimize or auto-fill pass.
type AllocationResult struct {
	ReservedCount int         `json:"reservedCount"`
	Unmet         []UnmetLine `json:"unmet"`
}

// AddCardToDeck reserves up to qty copies of one item for a deck. When the
// item cannot cover the full request, the reservation downsizes to what is
// available unless exact is set. Zero availability always fails.
func (e *Engine) AddCardToDeck(ctx context.Context, deckID, itemID uuid.UUID, qty int, exact bool) (int, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var reserved int
	var entry undo.Entry

	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		deck, err := repo.FindDeck(ctx, deckID)
		if err != nil {
			return db.Classify(err, "deck instance not found")
		}
		if deck == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deck instance not found")
		}

		item, err := items.FindItemForUpdate(ctx, itemID)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if !deckListsCard(deck, item.NameLower) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("deck list does not include %s", item.Name))
		}

		available := item.AvailableQuantity()
		if available == 0 {
			return pkgerrors.Insufficient(qty, 0)
		}
		if available < qty && exact {
			return pkgerrors.Insufficient(qty, available)
		}

		reserved = qty
		if available < reserved {
			reserved = available
		}

		existing, err := repo.FindReservationByDeckAndItem(ctx, deckID, itemID)
		if err != nil {
			return db.Classify(err, "reservation not found")
		}
		var reservationID uuid.UUID
		if existing != nil {
			existing.QuantityReserved += reserved
			if err := repo.SaveReservation(ctx, existing); err != nil {
				return db.Classify(err, "reservation not found")
			}
			reservationID = existing.ID
		} else {
			fresh := &models.Reservation{
				ID:               uuid.New(),
				DeckID:           deckID,
				InventoryItemID:  itemID,
				QuantityReserved: reserved,
			}
			if err := repo.CreateReservation(ctx, fresh); err != nil {
				return db.Classify(err, "reservation not found")
			}
			reservationID = fresh.ID
		}

		item.ReservedQuantity += reserved
		if err := items.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}

		entry = undo.NewEntry(
			enums.UndoReservationAdd,
			fmt.Sprintf("reserved %d x %s", reserved, item.Name),
			undo.Payload{Op: "reservation.add", Args: map[string]any{
				"deck_id": deckID.String(), "item_id": itemID.String(), "qty": reserved, "exact": true,
			}},
			undo.Payload{Op: "reservation.remove", Args: map[string]any{
				"deck_id": deckID.String(), "reservation_id": reservationID.String(), "qty": reserved,
			}},
		)
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.metrics.AddReserved("add_card", reserved)
	e.record(ctx, entry)
	return reserved, nil
}

// RemoveCardFromDeck gives back qty copies from a reservation, deleting the
// row when it empties.
func (e *Engine) RemoveCardFromDeck(ctx context.Context, deckID, reservationID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var entry undo.Entry

	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		reservation, err := repo.FindReservation(ctx, reservationID)
		if err != nil {
			return db.Classify(err, "reservation not found")
		}
		if reservation == nil || reservation.DeckID != deckID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found for deck")
		}
		if qty > reservation.QuantityReserved {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cannot release %d of %d reserved", qty, reservation.QuantityReserved))
		}

		item, err := items.FindItemForUpdate(ctx, reservation.InventoryItemID)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}

		reservation.QuantityReserved -= qty
		if reservation.QuantityReserved == 0 {
			if err := repo.DeleteReservation(ctx, reservation.ID); err != nil {
				return db.Classify(err, "reservation not found")
			}
		} else if err := repo.SaveReservation(ctx, reservation); err != nil {
			return db.Classify(err, "reservation not found")
		}

		item.ReservedQuantity -= qty
		if item.ReservedQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reserved_quantity would go negative")
		}
		if err := items.SaveItem(ctx, item); err != nil {
			return db.Classify(err, "inventory item not found")
		}

		entry = undo.NewEntry(
			enums.UndoReservationRemove,
			fmt.Sprintf("released %d x %s", qty, item.Name),
			undo.Payload{Op: "reservation.remove", Args: map[string]any{
				"deck_id": deckID.String(), "reservation_id": reservationID.String(), "qty": qty,
			}},
			undo.Payload{Op: "reservation.add", Args: map[string]any{
				"deck_id": deckID.String(), "item_id": item.ID.String(), "qty": qty, "exact": true,
			}},
		)
		return nil
	})
	if err != nil {
		return err
	}

	e.metrics.AddReleased("remove_card", qty)
	e.record(ctx, entry)
	return nil
}

// ReleaseDeck returns every reserved copy and deletes the deck instance.
func (e *Engine) ReleaseDeck(ctx context.Context, deckID uuid.UUID) error {
	released := 0

	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		deck, err := repo.FindDeck(ctx, deckID)
		if err != nil {
			return db.Classify(err, "deck instance not found")
		}
		if deck == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deck instance not found")
		}

		count, err := e.releaseAllLocked(ctx, repo, items, deckID)
		if err != nil {
			return err
		}
		released = count

		return repo.DeleteDeck(ctx, deckID)
	})
	if err != nil {
		return err
	}

	e.metrics.AddReleased("release_deck", released)
	return nil
}

// Reoptimize drops the deck's current reservations and reallocates every
// desired line against the cheapest matching copies. Deterministic ordering
// makes back-to-back calls converge on the same reservation set.
func (e *Engine) Reoptimize(ctx context.Context, deckID uuid.UUID) (AllocationResult, error) {
	var result AllocationResult

	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		deck, err := repo.FindDeck(ctx, deckID)
		if err != nil {
			return db.Classify(err, "deck instance not found")
		}
		if deck == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deck instance not found")
		}

		if _, err := e.releaseAllLocked(ctx, repo, items, deckID); err != nil {
			return err
		}

		for _, line := range deck.Cards {
			allocated, err := e.allocateLineLocked(ctx, repo, items, deckID, line.Name, line.Quantity)
			if err != nil {
				return err
			}
			result.ReservedCount += allocated
			if allocated < line.Quantity {
				result.Unmet = append(result.Unmet, UnmetLine{Name: line.Name, Shortfall: line.Quantity - allocated})
			}
		}
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}

	e.metrics.AddReserved("reoptimize", result.ReservedCount)
	e.metrics.AddUnmet(len(result.Unmet))
	return result, nil
}

// AutoFill tops up under-reserved lines without touching existing
// reservations. Uses the same candidate ranking as Reoptimize.
func (e *Engine) AutoFill(ctx context.Context, deckID uuid.UUID) (AllocationResult, error) {
	var result AllocationResult

	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		deck, err := repo.FindDeck(ctx, deckID)
		if err != nil {
			return db.Classify(err, "deck instance not found")
		}
		if deck == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deck instance not found")
		}

		reservedByName, err := e.reservedByNameLocked(ctx, repo, items, deckID)
		if err != nil {
			return err
		}

		for _, line := range deck.Cards {
			have := reservedByName[strings.ToLower(line.Name)]
			if have >= line.Quantity {
				continue
			}
			need := line.Quantity - have
			allocated, err := e.allocateLineLocked(ctx, repo, items, deckID, line.Name, need)
			if err != nil {
				return err
			}
			result.ReservedCount += allocated
			if allocated < need {
				result.Unmet = append(result.Unmet, UnmetLine{Name: line.Name, Shortfall: need - allocated})
			}
		}
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}

	e.metrics.AddReserved("auto_fill", result.ReservedCount)
	e.metrics.AddUnmet(len(result.Unmet))
	return result, nil
}

// MoveCardBetweenDecks retargets a reservation to another deck, merging with
// an existing reservation of the same item. The item's reserved total is
// unchanged, so the move is all-or-nothing by construction.
func (e *Engine) MoveCardBetweenDecks(ctx context.Context, reservationID, targetDeckID uuid.UUID) error {
	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		reservation, err := repo.FindReservation(ctx, reservationID)
		if err != nil {
			return db.Classify(err, "reservation not found")
		}
		if reservation == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		if reservation.DeckID == targetDeckID {
			return nil
		}

		target, err := repo.FindDeck(ctx, targetDeckID)
		if err != nil {
			return db.Classify(err, "deck instance not found")
		}
		if target == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "target deck not found")
		}

		item, err := items.FindItemByID(ctx, reservation.InventoryItemID)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}
		if !deckListsCard(target, item.NameLower) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("deck list does not include %s", item.Name))
		}

		existing, err := repo.FindReservationByDeckAndItem(ctx, targetDeckID, reservation.InventoryItemID)
		if err != nil {
			return db.Classify(err, "reservation not found")
		}
		if existing != nil {
			existing.QuantityReserved += reservation.QuantityReserved
			if err := repo.SaveReservation(ctx, existing); err != nil {
				return db.Classify(err, "reservation not found")
			}
			return repo.DeleteReservation(ctx, reservation.ID)
		}

		reservation.DeckID = targetDeckID
		return repo.SaveReservation(ctx, reservation)
	})
}

// MoveCardFromDeckToFolder releases a reservation and files the item into the
// target folder, both inside one transaction.
func (e *Engine) MoveCardFromDeckToFolder(ctx context.Context, reservationID uuid.UUID, targetFolder string) error {
	targetFolder = strings.TrimSpace(targetFolder)
	if targetFolder == "" {
		targetFolder = inventory.UnsortedFolder
	}
	if strings.EqualFold(targetFolder, inventory.TrashFolder) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot move a reserved card to Trash")
	}

	released := 0
	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		items := e.items.WithTx(tx)

		reservation, err := repo.FindReservation(ctx, reservationID)
		if err != nil {
			return db.Classify(err, "reservation not found")
		}
		if reservation == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}

		item, err := items.FindItemForUpdate(ctx, reservation.InventoryItemID)
		if err != nil {
			return db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}

		if err := repo.DeleteReservation(ctx, reservation.ID); err != nil {
			return db.Classify(err, "reservation not found")
		}
		item.ReservedQuantity -= reservation.QuantityReserved
		if item.ReservedQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reserved_quantity would go negative")
		}
		item.Folder = targetFolder
		released = reservation.QuantityReserved
		return db.Classify(items.SaveItem(ctx, item), "inventory item not found")
	})
	if err != nil {
		return err
	}

	e.metrics.AddReleased("move_to_folder", released)
	return nil
}

// deckListsCard reports whether the deck's desired composition includes the
// card name. Every reservation must stay on-list.
func deckListsCard(deck *models.DeckInstance, nameLower string) bool {
	for _, line := range deck.Cards {
		if strings.ToLower(line.Name) == nameLower {
			return true
		}
	}
	return false
}

// DeckState classifies reservation coverage against the deck's snapshot.
func DeckState(deck *models.DeckInstance, reservations []models.Reservation) string {
	desired := 0
	for _, line := range deck.Cards {
		desired += line.Quantity
	}
	reserved := 0
	for _, r := range reservations {
		reserved += r.QuantityReserved
	}
	switch {
	case reserved == 0:
		return StateDraft
	case reserved < desired:
		return StatePartial
	default:
		return StateComplete
	}
}

// releaseAllLocked drops every reservation of one deck, locking and
// decrementing each referenced item.
func (e *Engine) releaseAllLocked(ctx context.Context, repo Repository, items inventory.Repository, deckID uuid.UUID) (int, error) {
	reservations, err := repo.ListReservationsByDeck(ctx, deckID)
	if err != nil {
		return 0, db.Classify(err, "reservations not found")
	}

	released := 0
	for _, reservation := range reservations {
		item, err := items.FindItemForUpdate(ctx, reservation.InventoryItemID)
		if err != nil {
			return 0, db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return 0, pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}
		item.ReservedQuantity -= reservation.QuantityReserved
		if item.ReservedQuantity < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeInvariant, "reserved_quantity would go negative")
		}
		if err := items.SaveItem(ctx, item); err != nil {
			return 0, db.Classify(err, "inventory item not found")
		}
		if err := repo.DeleteReservation(ctx, reservation.ID); err != nil {
			return 0, db.Classify(err, "reservation not found")
		}
		released += reservation.QuantityReserved
	}
	return released, nil
}

// allocateLineLocked walks ranked candidates for one card name, consuming
// availability until need is covered or candidates run out.
func (e *Engine) allocateLineLocked(ctx context.Context, repo Repository, items inventory.Repository, deckID uuid.UUID, name string, need int) (int, error) {
	candidates, err := items.ListCandidatesForUpdate(ctx, strings.ToLower(name))
	if err != nil {
		return 0, db.Classify(err, "inventory items not found")
	}

	allocated := 0
	for _, candidate := range candidates {
		if allocated >= need {
			break
		}
		available := candidate.AvailableQuantity()
		if available <= 0 {
			continue
		}
		take := need - allocated
		if available < take {
			take = available
		}

		existing, err := repo.FindReservationByDeckAndItem(ctx, deckID, candidate.ID)
		if err != nil {
			return 0, db.Classify(err, "reservation not found")
		}
		if existing != nil {
			existing.QuantityReserved += take
			if err := repo.SaveReservation(ctx, existing); err != nil {
				return 0, db.Classify(err, "reservation not found")
			}
		} else {
			fresh := &models.Reservation{
				ID:               uuid.New(),
				DeckID:           deckID,
				InventoryItemID:  candidate.ID,
				QuantityReserved: take,
			}
			if err := repo.CreateReservation(ctx, fresh); err != nil {
				return 0, db.Classify(err, "reservation not found")
			}
		}

		candidate.ReservedQuantity += take
		if err := items.SaveItem(ctx, &candidate); err != nil {
			return 0, db.Classify(err, "inventory item not found")
		}
		allocated += take
	}
	return allocated, nil
}

// reservedByNameLocked sums this deck's reservations keyed by the item's
// lowered name.
func (e *Engine) reservedByNameLocked(ctx context.Context, repo Repository, items inventory.Repository, deckID uuid.UUID) (map[string]int, error) {
	reservations, err := repo.ListReservationsByDeck(ctx, deckID)
	if err != nil {
		return nil, db.Classify(err, "reservations not found")
	}

	out := make(map[string]int, len(reservations))
	for _, reservation := range reservations {
		item, err := items.FindItemByID(ctx, reservation.InventoryItemID)
		if err != nil {
			return nil, db.Classify(err, "inventory item not found")
		}
		if item == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvariant, "reservation references a missing item")
		}
		out[item.NameLower] += reservation.QuantityReserved
	}
	return out, nil
}

func (e *Engine) record(ctx context.Context, entry undo.Entry) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(ctx, entry)
}
