package autobuy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/config"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:autobuy_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.AutobuyRun{},
		&models.AutobuyRunItem{},
		&models.AutobuyWeight{},
		&models.SubstitutionGroup{},
		&models.SubstitutionGroupMember{},
		&models.InventoryItem{},
	))

	svc, err := NewService(ServiceParams{
		DB:     db.NewFromGorm(conn),
		Repo:   NewRepository(conn),
		Items:  inventory.NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Config: config.AutobuyConfig{
			SuggestionAlpha: 0.1,
			LiftThreshold:   0.1,
			MinSampleSize:   10,
			DefaultWindow:   30,
		},
	})
	require.NoError(t, err)
	return svc, conn
}

func runWithOneItem(t *testing.T, svc *Service, predictedUnit float64, qty int) *models.AutobuyRun {
	t.Helper()
	run, err := svc.CreateRun(context.Background(), CreateRunInput{
		Items: []RunItemInput{{
			CardID:        uuid.NewString(),
			PredictedUnit: decimal.NewFromFloat(predictedUnit),
			PredictedQty:  qty,
		}},
	})
	require.NoError(t, err)
	return run
}

func recordActual(t *testing.T, svc *Service, run *models.AutobuyRun, actualUnit float64, actualQty int) {
	t.Helper()
	unit := decimal.NewFromFloat(actualUnit)
	_, err := svc.UpdateRun(context.Background(), run.ID, UpdateRunInput{
		Items: []RunItemActuals{{
			ItemID:     run.Items[0].ID,
			ActualUnit: &unit,
			ActualQty:  &actualQty,
		}},
	})
	require.NoError(t, err)
}

func TestCreateRunComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)

	run, err := svc.CreateRun(context.Background(), CreateRunInput{
		Items: []RunItemInput{
			{CardID: "a", PredictedUnit: decimal.NewFromFloat(2.5), PredictedQty: 2},
			{CardID: "b", PredictedUnit: decimal.NewFromFloat(10), PredictedQty: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AutobuyRunStatusPurchased, run.Status)
	assert.Equal(t, 2, run.ItemCount)
	assert.True(t, run.PredictedTotal.Equal(decimal.NewFromFloat(15)),
		"predicted total %s", run.PredictedTotal)
}

func TestCreateRunRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		Status: "pending",
		Items:  []RunItemInput{{CardID: "a", PredictedQty: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestUpdateRunRecordsActuals(t *testing.T) {
	svc, _ := newTestService(t)

	run := runWithOneItem(t, svc, 10, 2)
	recordActual(t, svc, run, 12, 2)

	updated, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ActualTotal)
	assert.True(t, updated.ActualTotal.Equal(decimal.NewFromFloat(24)),
		"actual total %s", updated.ActualTotal)
	assert.Equal(t, 2, updated.PurchasedCount)
}

func TestUpdateRunUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)

	run := runWithOneItem(t, svc, 10, 1)
	qty := 1
	_, err := svc.UpdateRun(context.Background(), run.ID, UpdateRunInput{
		Items: []RunItemActuals{{ItemID: uuid.New(), ActualQty: &qty}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestAccuracy(t *testing.T) {
	svc, _ := newTestService(t)

	// +20% on one run, -10% on the other.
	over := runWithOneItem(t, svc, 10, 1)
	recordActual(t, svc, over, 12, 1)
	under := runWithOneItem(t, svc, 20, 1)
	recordActual(t, svc, under, 18, 1)

	report, err := svc.Accuracy(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRuns)
	assert.Equal(t, 2, report.TotalItems)
	assert.InDelta(t, 0.85, report.OverallAccuracy, 1e-9)
	assert.True(t, report.AvgPriceVariance.IsZero(), "avg variance %s", report.AvgPriceVariance)
	assert.InDelta(t, 0.05, report.AvgPriceVariancePercent, 1e-9)

	// Breakdown is sorted by absolute variance percent, worst first.
	require.Len(t, report.ItemBreakdown, 2)
	assert.InDelta(t, 0.2, report.ItemBreakdown[0].VariancePercent, 1e-9)
	assert.InDelta(t, -0.1, report.ItemBreakdown[1].VariancePercent, 1e-9)
}

func TestAccuracySkipsItemsWithoutActuals(t *testing.T) {
	svc, _ := newTestService(t)

	runWithOneItem(t, svc, 10, 1)
	report, err := svc.Accuracy(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRuns)
	assert.Zero(t, report.TotalItems)
	assert.Zero(t, report.OverallAccuracy)
}

func TestSellThrough(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	run := runWithOneItem(t, svc, 5, 4)
	qty := 4
	sold := 2
	unit := decimal.NewFromFloat(5)
	_, err := svc.UpdateRun(ctx, run.ID, UpdateRunInput{
		Items: []RunItemActuals{{
			ItemID:     run.Items[0].ID,
			ActualUnit: &unit,
			ActualQty:  &qty,
			SoldQty:    &sold,
		}},
	})
	require.NoError(t, err)

	report, err := svc.SellThrough(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalSold)
	assert.Equal(t, 4, report.TotalPurchased)
	assert.InDelta(t, 0.5, report.SellThroughRate, 1e-9)
}

func TestSellThroughIgnoresSalesOutsideWindow(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	run := runWithOneItem(t, svc, 5, 4)
	stale := time.Now().UTC().AddDate(0, 0, -90)
	require.NoError(t, conn.Model(&models.AutobuyRunItem{}).
		Where("run_id = ?", run.ID).
		Updates(map[string]any{"sold_qty": 2, "sold_at": stale}).Error)

	report, err := svc.SellThrough(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, report.TotalSold)
	assert.Equal(t, 4, report.TotalPurchased)
}

func seedSuggestionRuns(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	weight := func(name enums.IPSWeight) *string {
		s := name.String()
		return &s
	}

	// Twelve healthy purchases credited to price_delta.
	var good []RunItemInput
	for i := 0; i < 12; i++ {
		good = append(good, RunItemInput{
			CardID:         uuid.NewString(),
			PredictedUnit:  decimal.NewFromFloat(10),
			PredictedQty:   1,
			DominantWeight: weight(enums.IPSWeightPriceDelta),
		})
	}
	_, err := svc.CreateRun(ctx, CreateRunInput{Items: good})
	require.NoError(t, err)

	// Twelve heavy overpays credited to recency.
	var bad []RunItemInput
	for i := 0; i < 12; i++ {
		bad = append(bad, RunItemInput{
			CardID:         uuid.NewString(),
			PredictedUnit:  decimal.NewFromFloat(10),
			PredictedQty:   1,
			DominantWeight: weight(enums.IPSWeightRecency),
		})
	}
	run, err := svc.CreateRun(ctx, CreateRunInput{Items: bad})
	require.NoError(t, err)

	unit := decimal.NewFromFloat(14)
	qty := 1
	var actuals []RunItemActuals
	for _, item := range run.Items {
		actuals = append(actuals, RunItemActuals{ItemID: item.ID, ActualUnit: &unit, ActualQty: &qty})
	}
	_, err = svc.UpdateRun(ctx, run.ID, UpdateRunInput{Items: actuals})
	require.NoError(t, err)
}

func TestSuggestions(t *testing.T) {
	svc, _ := newTestService(t)
	seedSuggestionRuns(t, svc)

	suggestions, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	byName := map[string]WeightSuggestion{}
	for _, s := range suggestions {
		byName[s.WeightName] = s
	}

	up := byName[enums.IPSWeightPriceDelta.String()]
	assert.InDelta(t, 1.1, up.SuggestedValue, 1e-9)
	assert.Equal(t, enums.SuggestionConfidenceMedium, up.Confidence)
	assert.Equal(t, 12, up.BasedOnCards)

	down := byName[enums.IPSWeightRecency.String()]
	assert.InDelta(t, 0.9, down.SuggestedValue, 1e-9)
	assert.Equal(t, enums.SuggestionConfidenceMedium, down.Confidence)
}

func TestSuggestionsEmptyWithoutSamples(t *testing.T) {
	svc, _ := newTestService(t)

	suggestions, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestWeightsSeedDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	weights, err := svc.Weights(context.Background())
	require.NoError(t, err)
	require.Len(t, weights, len(enums.AllIPSWeights()))

	values := map[string]float64{}
	for _, w := range weights {
		values[w.Name] = w.Value
	}
	assert.Equal(t, 0.5, values[enums.IPSWeightSubstitutionBeta.String()])
	assert.Equal(t, 1.0, values[enums.IPSWeightPriceDelta.String()])
}

func TestUpdateWeights(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	weights, err := svc.UpdateWeights(ctx, map[string]float64{
		enums.IPSWeightPriceDelta.String(): 1.5,
	})
	require.NoError(t, err)

	values := map[string]float64{}
	for _, w := range weights {
		values[w.Name] = w.Value
	}
	assert.Equal(t, 1.5, values[enums.IPSWeightPriceDelta.String()])

	_, err = svc.UpdateWeights(ctx, map[string]float64{"popularity": 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.UpdateWeights(ctx, map[string]float64{
		enums.IPSWeightSubstitutionBeta.String(): 1.5,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestSubstitutionGroups(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	name := "Llanowar Elves"
	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		Name: "One-drop dorks",
		Members: []GroupMemberInput{
			{ScryfallID: "elves-1", CardName: &name},
		},
	})
	require.NoError(t, err)
	require.Len(t, group.Members, 1)

	fyndhorn := "Fyndhorn Elves"
	_, err = svc.AddGroupCard(ctx, group.ID, GroupMemberInput{ScryfallID: "elves-1", CardName: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	updated, err := svc.AddGroupCard(ctx, group.ID, GroupMemberInput{ScryfallID: "fyndhorn-1", CardName: &fyndhorn})
	require.NoError(t, err)
	assert.Len(t, updated.Members, 2)

	require.NoError(t, svc.RemoveGroupCard(ctx, group.ID, "fyndhorn-1"))
	err = svc.RemoveGroupCard(ctx, group.ID, "fyndhorn-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	require.NoError(t, svc.DeleteGroup(ctx, group.ID))
	err = svc.DeleteGroup(ctx, group.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCreateGroupRejectsDuplicateMembers(t *testing.T) {
	svc, _ := newTestService(t)

	name := "Llanowar Elves"
	_, err := svc.CreateGroup(context.Background(), CreateGroupInput{
		Name: "dupes",
		Members: []GroupMemberInput{
			{ScryfallID: "x", CardName: &name},
			{ScryfallID: "x", CardName: &name},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestGroupMembersRequireCardName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, CreateGroupInput{
		Name:    "nameless",
		Members: []GroupMemberInput{{ScryfallID: "elves-1"}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	name := "Llanowar Elves"
	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		Name:    "dorks",
		Members: []GroupMemberInput{{ScryfallID: "elves-1", CardName: &name}},
	})
	require.NoError(t, err)

	blank := "   "
	_, err = svc.AddGroupCard(ctx, group.ID, GroupMemberInput{ScryfallID: "fyndhorn-1", CardName: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestScoreCandidatesResolvesSubstitutes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	elves := "Llanowar Elves"
	fyndhorn := "Fyndhorn Elves"
	_, err := svc.CreateGroup(ctx, CreateGroupInput{
		Name: "One-drop dorks",
		Members: []GroupMemberInput{
			{ScryfallID: "elves-1", CardName: &elves},
			{ScryfallID: "fyndhorn-1", CardName: &fyndhorn},
		},
	})
	require.NoError(t, err)

	// Sibling has copies in stock, so the first candidate attenuates.
	require.NoError(t, conn.Create(&models.InventoryItem{
		ID:        uuid.New(),
		Name:      fyndhorn,
		NameLower: "fyndhorn elves",
		Finish:    enums.CardFinishNormal,
		Quality:   enums.CardQualityNM,
		Quantity:  2,
		Folder:    inventory.UnsortedFolder,
	}).Error)

	scored, err := svc.ScoreCandidates(ctx, []ScoreInput{
		{CardName: elves, ScryfallID: "elves-1", DemandPressure: 1.0},
		{CardName: "Sol Ring", ScryfallID: "sol-ring-1", DemandPressure: 1.0},
	})
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.True(t, scored[0].SubstituteInStock)
	assert.InDelta(t, 0.5, scored[0].Score, 1e-9)
	assert.False(t, scored[1].SubstituteInStock)
	assert.InDelta(t, 1.0, scored[1].Score, 1e-9)
}
