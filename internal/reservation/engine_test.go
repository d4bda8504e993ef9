package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.InventoryItem{},
		&models.DeckInstance{},
		&models.DeckInstanceCard{},
		&models.Reservation{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine, err := NewEngine(EngineParams{
		DB:     db.NewFromGorm(conn),
		Repo:   NewRepository(conn),
		Items:  inventory.NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, conn
}

type seedSpec struct {
	name     string
	qty      int
	reserved int
	price    *float64
	age      time.Duration
}

func price(v float64) *float64 { return &v }

func seed(t *testing.T, conn *gorm.DB, spec seedSpec) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:               uuid.New(),
		Name:             spec.name,
		NameLower:        spec.name,
		SetCode:          "C21",
		Finish:           enums.CardFinishNormal,
		Quality:          enums.CardQualityNM,
		Quantity:         spec.qty,
		ReservedQuantity: spec.reserved,
		Folder:           inventory.UnsortedFolder,
		CreatedAt:        time.Now().Add(-spec.age),
	}
	if spec.price != nil {
		p := decimal.NewFromFloat(*spec.price)
		item.PurchasePrice = &p
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func seedDeck(t *testing.T, conn *gorm.DB, name string, wants map[string]int) models.DeckInstance {
	t.Helper()
	deck := models.DeckInstance{ID: uuid.New(), Name: name}
	if err := conn.Create(&deck).Error; err != nil {
		t.Fatalf("seed deck: %v", err)
	}
	position := 0
	for cardName, qty := range wants {
		card := models.DeckInstanceCard{
			ID:       uuid.New(),
			DeckID:   deck.ID,
			Name:     cardName,
			Quantity: qty,
			Position: position,
		}
		position++
		if err := conn.Create(&card).Error; err != nil {
			t.Fatalf("seed deck card: %v", err)
		}
	}
	return deck
}

func reservedOf(t *testing.T, conn *gorm.DB, itemID uuid.UUID) int {
	t.Helper()
	var item models.InventoryItem
	if err := conn.First(&item, "id = ?", itemID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item.ReservedQuantity
}

func assertCardinalInvariant(t *testing.T, conn *gorm.DB) {
	t.Helper()
	var items []models.InventoryItem
	if err := conn.Find(&items).Error; err != nil {
		t.Fatalf("list items: %v", err)
	}
	repo := NewRepository(conn)
	for _, item := range items {
		sum, err := repo.SumReservedForItem(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("sum reservations: %v", err)
		}
		if sum != item.ReservedQuantity {
			t.Fatalf("invariant broken for %s: counter=%d sum=%d", item.Name, item.ReservedQuantity, sum)
		}
		if item.ReservedQuantity < 0 || item.ReservedQuantity > item.Quantity {
			t.Fatalf("reserved out of bounds for %s: %+v", item.Name, item)
		}
	}
}

func TestReoptimizePrefersCheapestThenOldest(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	i1 := seed(t, conn, seedSpec{name: "sol ring", qty: 4, reserved: 2, age: 3 * time.Hour})
	i2 := seed(t, conn, seedSpec{name: "sol ring", qty: 1, price: price(0.5), age: 2 * time.Hour})
	i3 := seed(t, conn, seedSpec{name: "sol ring", qty: 3, price: price(2.0), age: time.Hour})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	result, err := engine.Reoptimize(ctx, deck.ID)
	if err != nil {
		t.Fatalf("reoptimize: %v", err)
	}
	if result.ReservedCount != 3 || len(result.Unmet) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Cheapest copy first, then the priced 2.0 line; the unpriced item ranks last.
	if got := reservedOf(t, conn, i2.ID); got != 1 {
		t.Fatalf("expected i2 fully reserved, got %d", got)
	}
	if got := reservedOf(t, conn, i3.ID); got != 2 {
		t.Fatalf("expected 2 reserved on i3, got %d", got)
	}
	if got := reservedOf(t, conn, i1.ID); got != 2 {
		t.Fatalf("expected i1 untouched at 2, got %d", got)
	}
	assertCardinalInvariant(t, conn)
}

func TestReoptimizeIsIdempotent(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	seed(t, conn, seedSpec{name: "sol ring", qty: 4, price: price(1.0), age: time.Hour})
	seed(t, conn, seedSpec{name: "sol ring", qty: 2, price: price(0.5), age: 2 * time.Hour})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	first, err := engine.Reoptimize(ctx, deck.ID)
	if err != nil {
		t.Fatalf("first reoptimize: %v", err)
	}
	var firstSet []models.Reservation
	if err := conn.Order("inventory_item_id").Find(&firstSet).Error; err != nil {
		t.Fatalf("load reservations: %v", err)
	}

	second, err := engine.Reoptimize(ctx, deck.ID)
	if err != nil {
		t.Fatalf("second reoptimize: %v", err)
	}
	var secondSet []models.Reservation
	if err := conn.Order("inventory_item_id").Find(&secondSet).Error; err != nil {
		t.Fatalf("load reservations: %v", err)
	}

	if first.ReservedCount != second.ReservedCount {
		t.Fatalf("reserved count drifted: %d vs %d", first.ReservedCount, second.ReservedCount)
	}
	if len(firstSet) != len(secondSet) {
		t.Fatalf("reservation rows drifted: %d vs %d", len(firstSet), len(secondSet))
	}
	for i := range firstSet {
		if firstSet[i].InventoryItemID != secondSet[i].InventoryItemID ||
			firstSet[i].QuantityReserved != secondSet[i].QuantityReserved {
			t.Fatalf("allocation drifted at %d: %+v vs %+v", i, firstSet[i], secondSet[i])
		}
	}
	assertCardinalInvariant(t, conn)
}

func TestReoptimizeReportsUnmet(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	seed(t, conn, seedSpec{name: "sol ring", qty: 1})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3, "mana crypt": 1})

	result, err := engine.Reoptimize(ctx, deck.ID)
	if err != nil {
		t.Fatalf("reoptimize: %v", err)
	}
	if result.ReservedCount != 1 {
		t.Fatalf("expected 1 reserved, got %d", result.ReservedCount)
	}
	if len(result.Unmet) != 2 {
		t.Fatalf("expected 2 unmet lines, got %+v", result.Unmet)
	}
	shortfalls := map[string]int{}
	for _, unmet := range result.Unmet {
		shortfalls[unmet.Name] = unmet.Shortfall
	}
	if shortfalls["sol ring"] != 2 || shortfalls["mana crypt"] != 1 {
		t.Fatalf("unexpected shortfalls: %+v", shortfalls)
	}
}

func TestAddCardDownscalesWhenPartialAllowed(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 2, reserved: 1})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	reserved, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 3, false)
	if err != nil {
		t.Fatalf("add card: %v", err)
	}
	if reserved != 1 {
		t.Fatalf("expected downscale to 1, got %d", reserved)
	}
	if got := reservedOf(t, conn, item.ID); got != 2 {
		t.Fatalf("expected reserved 2, got %d", got)
	}
	assertCardinalInvariant(t, conn)
}

func TestAddCardExactFailsOnShortage(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 2, reserved: 1})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	_, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 3, true)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficient) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	if got := reservedOf(t, conn, item.ID); got != 1 {
		t.Fatalf("state changed on failure: reserved=%d", got)
	}
}

func TestAddCardRejectsOffListItem(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "mana crypt", qty: 4})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	_, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 2, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := reservedOf(t, conn, item.ID); got != 0 {
		t.Fatalf("state changed on failure: reserved=%d", got)
	}
	var count int64
	conn.Model(&models.Reservation{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no reservations, count=%d", count)
	}
}

func TestAddCardZeroAvailabilityFails(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 2, reserved: 2})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	_, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 1, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficient) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok || details["availableCount"] != 0 {
		t.Fatalf("expected availableCount detail, got %+v", typed.Details())
	}
}

func TestRemoveCardDeletesEmptyReservation(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 2})

	if _, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add card: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", deck.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	if err := engine.RemoveCardFromDeck(ctx, deck.ID, reservation.ID, 2); err != nil {
		t.Fatalf("remove card: %v", err)
	}
	var count int64
	conn.Model(&models.Reservation{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected reservation deleted, count=%d", count)
	}
	if got := reservedOf(t, conn, item.ID); got != 0 {
		t.Fatalf("expected reserved 0, got %d", got)
	}
}

func TestRemoveCardWrongDeckNotFound(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 2})
	other := seedDeck(t, conn, "other", map[string]int{"sol ring": 1})

	if _, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add card: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", deck.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	err := engine.RemoveCardFromDeck(ctx, other.ID, reservation.ID, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReleaseDeckRestoresBaseline(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	i1 := seed(t, conn, seedSpec{name: "sol ring", qty: 4, reserved: 2, age: 3 * time.Hour})
	i2 := seed(t, conn, seedSpec{name: "sol ring", qty: 1, price: price(0.5), age: 2 * time.Hour})
	i3 := seed(t, conn, seedSpec{name: "sol ring", qty: 3, price: price(2.0), age: time.Hour})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	if _, err := engine.Reoptimize(ctx, deck.ID); err != nil {
		t.Fatalf("reoptimize: %v", err)
	}
	if err := engine.ReleaseDeck(ctx, deck.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	if got := reservedOf(t, conn, i1.ID); got != 2 {
		t.Fatalf("expected i1 baseline 2, got %d", got)
	}
	if got := reservedOf(t, conn, i2.ID); got != 0 {
		t.Fatalf("expected i2 baseline 0, got %d", got)
	}
	if got := reservedOf(t, conn, i3.ID); got != 0 {
		t.Fatalf("expected i3 baseline 0, got %d", got)
	}

	var deckCount int64
	conn.Model(&models.DeckInstance{}).Count(&deckCount)
	if deckCount != 0 {
		t.Fatalf("expected deck deleted, count=%d", deckCount)
	}
	assertCardinalInvariant(t, conn)
}

func TestAutoFillTopsUpWithoutReleasing(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	expensive := seed(t, conn, seedSpec{name: "sol ring", qty: 2, price: price(5.0), age: time.Hour})
	cheap := seed(t, conn, seedSpec{name: "sol ring", qty: 2, price: price(0.5), age: 2 * time.Hour})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 3})

	// Existing reservation on the expensive copy must survive auto-fill.
	if _, err := engine.AddCardToDeck(ctx, deck.ID, expensive.ID, 1, true); err != nil {
		t.Fatalf("add card: %v", err)
	}

	result, err := engine.AutoFill(ctx, deck.ID)
	if err != nil {
		t.Fatalf("auto fill: %v", err)
	}
	if result.ReservedCount != 2 || len(result.Unmet) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := reservedOf(t, conn, expensive.ID); got != 1 {
		t.Fatalf("existing reservation disturbed: %d", got)
	}
	if got := reservedOf(t, conn, cheap.ID); got != 2 {
		t.Fatalf("expected top-up from cheap copy, got %d", got)
	}
	assertCardinalInvariant(t, conn)
}

func TestMoveCardBetweenDecks(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	source := seedDeck(t, conn, "source", map[string]int{"sol ring": 2})
	target := seedDeck(t, conn, "target", map[string]int{"sol ring": 2})

	if _, err := engine.AddCardToDeck(ctx, source.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add card: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", source.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	if err := engine.MoveCardBetweenDecks(ctx, reservation.ID, target.ID); err != nil {
		t.Fatalf("move: %v", err)
	}

	var moved models.Reservation
	if err := conn.First(&moved, "deck_id = ?", target.ID).Error; err != nil {
		t.Fatalf("load moved reservation: %v", err)
	}
	if moved.QuantityReserved != 2 {
		t.Fatalf("unexpected moved quantity: %d", moved.QuantityReserved)
	}
	var sourceCount int64
	conn.Model(&models.Reservation{}).Where("deck_id = ?", source.ID).Count(&sourceCount)
	if sourceCount != 0 {
		t.Fatalf("expected no source reservations, got %d", sourceCount)
	}
	if got := reservedOf(t, conn, item.ID); got != 2 {
		t.Fatalf("reserved total changed by move: %d", got)
	}
	assertCardinalInvariant(t, conn)
}

func TestMoveCardBetweenDecksMergesExisting(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	source := seedDeck(t, conn, "source", map[string]int{"sol ring": 1})
	target := seedDeck(t, conn, "target", map[string]int{"sol ring": 3})

	if _, err := engine.AddCardToDeck(ctx, source.ID, item.ID, 1, true); err != nil {
		t.Fatalf("add to source: %v", err)
	}
	if _, err := engine.AddCardToDeck(ctx, target.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add to target: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", source.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	if err := engine.MoveCardBetweenDecks(ctx, reservation.ID, target.ID); err != nil {
		t.Fatalf("move: %v", err)
	}

	var merged models.Reservation
	if err := conn.First(&merged, "deck_id = ?", target.ID).Error; err != nil {
		t.Fatalf("load merged: %v", err)
	}
	if merged.QuantityReserved != 3 {
		t.Fatalf("expected merged quantity 3, got %d", merged.QuantityReserved)
	}
	assertCardinalInvariant(t, conn)
}

func TestMoveCardRejectsOffListTargetDeck(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	source := seedDeck(t, conn, "source", map[string]int{"sol ring": 2})
	target := seedDeck(t, conn, "target", map[string]int{"mana crypt": 1})

	if _, err := engine.AddCardToDeck(ctx, source.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add card: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", source.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	err := engine.MoveCardBetweenDecks(ctx, reservation.ID, target.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var still models.Reservation
	if err := conn.First(&still, "id = ?", reservation.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if still.DeckID != source.ID {
		t.Fatalf("reservation moved despite rejection: %+v", still)
	}
	assertCardinalInvariant(t, conn)
}

func TestMoveCardFromDeckToFolder(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	item := seed(t, conn, seedSpec{name: "sol ring", qty: 4})
	deck := seedDeck(t, conn, "commander", map[string]int{"sol ring": 2})

	if _, err := engine.AddCardToDeck(ctx, deck.ID, item.ID, 2, true); err != nil {
		t.Fatalf("add card: %v", err)
	}
	var reservation models.Reservation
	if err := conn.First(&reservation, "deck_id = ?", deck.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}

	if err := engine.MoveCardFromDeckToFolder(ctx, reservation.ID, "Staples"); err != nil {
		t.Fatalf("move to folder: %v", err)
	}

	var reloaded models.InventoryItem
	if err := conn.First(&reloaded, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloaded.Folder != "Staples" || reloaded.ReservedQuantity != 0 {
		t.Fatalf("unexpected item state: %+v", reloaded)
	}
	var count int64
	conn.Model(&models.Reservation{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected reservation removed, count=%d", count)
	}
	assertCardinalInvariant(t, conn)
}

func TestDeckStateTransitions(t *testing.T) {
	deck := &models.DeckInstance{
		Cards: []models.DeckInstanceCard{{Name: "sol ring", Quantity: 3}},
	}

	if got := DeckState(deck, nil); got != StateDraft {
		t.Fatalf("expected draft, got %s", got)
	}
	if got := DeckState(deck, []models.Reservation{{QuantityReserved: 2}}); got != StatePartial {
		t.Fatalf("expected partial, got %s", got)
	}
	if got := DeckState(deck, []models.Reservation{{QuantityReserved: 3}}); got != StateComplete {
		t.Fatalf("expected complete, got %s", got)
	}
}
