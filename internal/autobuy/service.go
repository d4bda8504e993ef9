package autobuy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/config"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db/models"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

// Items acquired this far above prediction count as underperforming for
// suggestion lift.
const overpayThreshold = 0.25

// ServiceParams groups dependencies for the autobuy service.
type ServiceParams struct {
	DB     *db.Client
	Repo   Repository
	Items  inventory.Repository
	Logger *logger.Logger
	Config config.AutobuyConfig
}

// Service records purchasing runs and derives read-only analytics from them:
// prediction accuracy, sell-through, and IPS weight suggestions.
type Service struct {
	db    *db.Client
	repo  Repository
	items inventory.Repository
	logg  *logger.Logger
	cfg   config.AutobuyConfig
}

// NewService builds an autobuy service.
func NewService(params ServiceParams) (*Service, error) {
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
	return &Service{
		db:    params.DB,
		repo:  params.Repo,
		items: params.Items,
		logg:  params.Logger,
		cfg:   params.Config,
	}, nil
}

// RunItemInput is one purchasing decision at run creation time.
type RunItemInput struct {
	CardID         string          `json:"card_id" validate:"required"`
	CardName       *string         `json:"card_name,omitempty"`
	PredictedUnit  decimal.Decimal `json:"predicted_unit"`
	PredictedQty   int             `json:"predicted_qty" validate:"gt=0"`
	DominantWeight *string         `json:"dominant_weight,omitempty"`
}

// CreateRunInput mirrors the writable run fields.
type CreateRunInput struct {
	Status string         `json:"status,omitempty"`
	Items  []RunItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateRun stores a batch of purchasing decisions.
func (s *Service) CreateRun(ctx context.Context, input CreateRunInput) (*models.AutobuyRun, error) {
	status := enums.AutobuyRunStatusPurchased
	if input.Status != "" {
		parsed, err := enums.ParseAutobuyRunStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid run status")
		}
		status = parsed
	}

	run := &models.AutobuyRun{
		ID:             uuid.New(),
		Status:         status,
		PredictedTotal: decimal.Zero,
		ItemCount:      len(input.Items),
	}
	for _, item := range input.Items {
		if item.DominantWeight != nil {
			if _, err := enums.ParseIPSWeight(*item.DominantWeight); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dominant weight")
			}
		}
		row := models.AutobuyRunItem{
			ID:             uuid.New(),
			RunID:          run.ID,
			CardID:         item.CardID,
			CardName:       item.CardName,
			PredictedUnit:  item.PredictedUnit,
			PredictedQty:   item.PredictedQty,
			DominantWeight: item.DominantWeight,
		}
		run.Items = append(run.Items, row)
		run.PredictedTotal = run.PredictedTotal.Add(row.PredictedLineTotal())
	}

	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, db.Classify(err, "autobuy run not found")
	}
	return run, nil
}

// RunItemActuals records the purchase or sale outcome for one run item.
type RunItemActuals struct {
	ItemID     uuid.UUID        `json:"item_id" validate:"required"`
	ActualUnit *decimal.Decimal `json:"actual_unit,omitempty"`
	ActualQty  *int             `json:"actual_qty,omitempty"`
	SoldQty    *int             `json:"sold_qty,omitempty"`
	SoldAt     *time.Time       `json:"sold_at,omitempty"`
}

// UpdateRunInput records outcomes against an existing run.
type UpdateRunInput struct {
	Status *string          `json:"status,omitempty"`
	Items  []RunItemActuals `json:"items,omitempty"`
}

// UpdateRun applies actual prices, quantities, and sale counts, then
// recomputes the run's totals. One transaction.
func (s *Service) UpdateRun(ctx context.Context, runID uuid.UUID, input UpdateRunInput) (*models.AutobuyRun, error) {
	var updated *models.AutobuyRun

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		run, err := repo.FindRun(ctx, runID)
		if err != nil {
			return db.Classify(err, "autobuy run not found")
		}
		if run == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "autobuy run not found")
		}

		if input.Status != nil {
			status, err := enums.ParseAutobuyRunStatus(*input.Status)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid run status")
			}
			run.Status = status
		}

		byID := make(map[uuid.UUID]*models.AutobuyRunItem, len(run.Items))
		for i := range run.Items {
			byID[run.Items[i].ID] = &run.Items[i]
		}
		for _, actuals := range input.Items {
			item, ok := byID[actuals.ItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("run item %s not found", actuals.ItemID))
			}
			if actuals.ActualUnit != nil {
				item.ActualUnit = actuals.ActualUnit
			}
			if actuals.ActualQty != nil {
				if *actuals.ActualQty < 0 {
					return pkgerrors.New(pkgerrors.CodeValidation, "actual quantity cannot be negative")
				}
				item.ActualQty = actuals.ActualQty
			}
			if actuals.SoldQty != nil {
				if *actuals.SoldQty < 0 {
					return pkgerrors.New(pkgerrors.CodeValidation, "sold quantity cannot be negative")
				}
				item.SoldQty = *actuals.SoldQty
				if actuals.SoldAt != nil {
					item.SoldAt = actuals.SoldAt
				} else if item.SoldAt == nil {
					now := time.Now().UTC()
					item.SoldAt = &now
				}
			}
			if err := repo.SaveRunItem(ctx, item); err != nil {
				return db.Classify(err, "autobuy run not found")
			}
		}

		recomputeTotals(run)
		if err := repo.SaveRun(ctx, run); err != nil {
			return db.Classify(err, "autobuy run not found")
		}
		updated = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetRun returns one run with its items.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*models.AutobuyRun, error) {
	run, err := s.repo.FindRun(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "autobuy run not found")
	}
	if run == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "autobuy run not found")
	}
	return run, nil
}

// ListRuns returns the newest runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]models.AutobuyRun, error) {
	runs, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, db.Classify(err, "autobuy runs not found")
	}
	return runs, nil
}

// ItemVariance is one row of the accuracy breakdown.
type ItemVariance struct {
	CardName        string          `json:"cardName"`
	PredictedTotal  decimal.Decimal `json:"predictedTotal"`
	ActualTotal     decimal.Decimal `json:"actualTotal"`
	VariancePercent float64         `json:"variancePercent"`
}

// AccuracyReport aggregates prediction quality over a rolling window.
type AccuracyReport struct {
	OverallAccuracy         float64         `json:"overallAccuracy"`
	TotalItems              int             `json:"totalItems"`
	TotalRuns               int             `json:"totalRuns"`
	AvgPriceVariance        decimal.Decimal `json:"avgPriceVariance"`
	AvgPriceVariancePercent float64         `json:"avgPriceVariancePercent"`
	ItemBreakdown           []ItemVariance  `json:"itemBreakdown"`
}

// Accuracy compares predicted to actual totals for completed runs within the
// window. Variance is actual minus predicted, so positive means the purchase
// cost more than predicted.
func (s *Service) Accuracy(ctx context.Context, days int) (*AccuracyReport, error) {
	runs, err := s.completedRuns(ctx, days)
	if err != nil {
		return nil, err
	}

	report := &AccuracyReport{
		TotalRuns:        len(runs),
		AvgPriceVariance: decimal.Zero,
		ItemBreakdown:    []ItemVariance{},
	}

	varianceSum := decimal.Zero
	absPctSum := 0.0
	pctSum := 0.0

	for _, run := range runs {
		for _, item := range run.Items {
			actualTotal := item.ActualLineTotal()
			if actualTotal == nil {
				continue
			}
			predictedTotal := item.PredictedLineTotal()
			if predictedTotal.IsZero() {
				continue
			}

			variance := actualTotal.Sub(predictedTotal)
			pct, _ := variance.Div(predictedTotal).Float64()

			report.TotalItems++
			varianceSum = varianceSum.Add(variance)
			absPctSum += math.Abs(pct)
			pctSum += pct
			report.ItemBreakdown = append(report.ItemBreakdown, ItemVariance{
				CardName:        itemDisplayName(item),
				PredictedTotal:  predictedTotal,
				ActualTotal:     *actualTotal,
				VariancePercent: pct,
			})
		}
	}

	if report.TotalItems > 0 {
		n := int64(report.TotalItems)
		report.AvgPriceVariance = varianceSum.Div(decimal.NewFromInt(n)).Round(4)
		report.AvgPriceVariancePercent = pctSum / float64(report.TotalItems)
		report.OverallAccuracy = clamp01(1 - absPctSum/float64(report.TotalItems))
	}

	sort.SliceStable(report.ItemBreakdown, func(i, j int) bool {
		return math.Abs(report.ItemBreakdown[i].VariancePercent) > math.Abs(report.ItemBreakdown[j].VariancePercent)
	})
	return report, nil
}

// SellThroughReport relates sold copies to purchased copies over a window.
type SellThroughReport struct {
	SellThroughRate float64 `json:"sellThroughRate"`
	TotalSold       int     `json:"totalSold"`
	TotalPurchased  int     `json:"totalPurchased"`
}

// SellThrough counts purchases from completed runs in the window against
// sales recorded inside the same window.
func (s *Service) SellThrough(ctx context.Context, days int) (*SellThroughReport, error) {
	runs, err := s.completedRuns(ctx, days)
	if err != nil {
		return nil, err
	}
	cutoff := s.windowCutoff(days)

	report := &SellThroughReport{}
	for _, run := range runs {
		for _, item := range run.Items {
			report.TotalPurchased += purchasedQty(item)
			if item.SoldQty > 0 && item.SoldAt != nil && !item.SoldAt.Before(cutoff) {
				report.TotalSold += item.SoldQty
			}
		}
	}
	if report.TotalPurchased > 0 {
		report.SellThroughRate = float64(report.TotalSold) / float64(report.TotalPurchased)
	}
	return report, nil
}

// WeightSuggestion proposes one IPS weight adjustment.
type WeightSuggestion struct {
	WeightName     string                     `json:"weightName"`
	CurrentValue   float64                    `json:"currentValue"`
	SuggestedValue float64                    `json:"suggestedValue"`
	Confidence     enums.SuggestionConfidence `json:"confidence"`
	Reason         string                     `json:"reason"`
	BasedOnCards   int                        `json:"basedOnCards"`
}

// Suggestions computes per-weight outcome lift over the default window and
// proposes adjustments where the lift clears the configured threshold.
func (s *Service) Suggestions(ctx context.Context) ([]WeightSuggestion, error) {
	cutoff := s.windowCutoff(s.cfg.DefaultWindow)
	runs, err := s.repo.ListCompletedRunsSince(ctx, cutoff)
	if err != nil {
		return nil, db.Classify(err, "autobuy runs not found")
	}

	type labelled struct {
		weight  string
		outcome float64
	}
	var samples []labelled
	for _, run := range runs {
		for _, item := range run.Items {
			if item.DominantWeight == nil {
				continue
			}
			samples = append(samples, labelled{
				weight:  *item.DominantWeight,
				outcome: outcomeOf(run, item),
			})
		}
	}
	if len(samples) == 0 {
		return []WeightSuggestion{}, nil
	}

	weights, err := s.WeightValues(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := []WeightSuggestion{}
	for _, name := range enums.AllIPSWeights() {
		var withSum, withoutSum float64
		var withN, withoutN int
		for _, sample := range samples {
			if sample.weight == name.String() {
				withSum += sample.outcome
				withN++
			} else {
				withoutSum += sample.outcome
				withoutN++
			}
		}
		if withN < s.cfg.MinSampleSize || withoutN == 0 {
			continue
		}

		lift := withSum/float64(withN) - withoutSum/float64(withoutN)
		if math.Abs(lift) <= s.cfg.LiftThreshold {
			continue
		}

		current := weights[name]
		direction := 1.0
		verdict := "outperform"
		if lift < 0 {
			direction = -1.0
			verdict = "underperform"
		}

		confidence := enums.SuggestionConfidenceLow
		switch {
		case withN >= 30 && math.Abs(lift) > 0.2:
			confidence = enums.SuggestionConfidenceHigh
		case withN >= s.cfg.MinSampleSize:
			confidence = enums.SuggestionConfidenceMedium
		}

		suggestions = append(suggestions, WeightSuggestion{
			WeightName:     name.String(),
			CurrentValue:   current,
			SuggestedValue: roundTo(current*(1+s.cfg.SuggestionAlpha*direction), 4),
			Confidence:     confidence,
			Reason: fmt.Sprintf("Purchases driven by %s %s the rest by %.0f%% over the last %d days.",
				name.String(), verdict, math.Abs(lift)*100, s.cfg.DefaultWindow),
			BasedOnCards: withN,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].BasedOnCards > suggestions[j].BasedOnCards
	})
	return suggestions, nil
}

// Weights returns the persisted weight rows, seeding defaults for any
// missing name so callers always see the full set.
func (s *Service) Weights(ctx context.Context) ([]models.AutobuyWeight, error) {
	rows, err := s.repo.ListWeights(ctx)
	if err != nil {
		return nil, db.Classify(err, "autobuy weights not found")
	}

	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		present[row.Name] = true
	}
	for _, name := range enums.AllIPSWeights() {
		if present[name.String()] {
			continue
		}
		row := models.AutobuyWeight{ID: uuid.New(), Name: name.String(), Value: defaultWeightValue(name)}
		if err := s.repo.UpsertWeight(ctx, &row); err != nil {
			return nil, db.Classify(err, "autobuy weights not found")
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

// WeightValues returns the weight set as a lookup map.
func (s *Service) WeightValues(ctx context.Context) (map[enums.IPSWeight]float64, error) {
	rows, err := s.Weights(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[enums.IPSWeight]float64, len(rows))
	for _, row := range rows {
		values[enums.IPSWeight(row.Name)] = row.Value
	}
	return values, nil
}

// UpdateWeights overwrites the named weights. Unknown names and out-of-range
// beta values are rejected.
func (s *Service) UpdateWeights(ctx context.Context, values map[string]float64) ([]models.AutobuyWeight, error) {
	for raw, value := range values {
		name, err := enums.ParseIPSWeight(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weight name")
		}
		if name == enums.IPSWeightSubstitutionBeta && (value <= 0 || value > 1) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"substitution_attenuation_beta must be in (0, 1]")
		}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for raw, value := range values {
			row := models.AutobuyWeight{ID: uuid.New(), Name: raw, Value: value}
			if err := repo.UpsertWeight(ctx, &row); err != nil {
				return db.Classify(err, "autobuy weights not found")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Weights(ctx)
}

// GroupMemberInput names one interchangeable card. Inventory rows carry no
// scryfall ids, so stock checks for substitutes match on the card name.
type GroupMemberInput struct {
	ScryfallID string  `json:"scryfall_id" validate:"required"`
	CardName   *string `json:"card_name" validate:"required"`
}

func validateGroupMember(member GroupMemberInput) error {
	if member.CardName == nil || strings.TrimSpace(*member.CardName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("member %s requires a card name", member.ScryfallID))
	}
	return nil
}

// CreateGroupInput mirrors the writable substitution group fields.
type CreateGroupInput struct {
	Name        string             `json:"name" validate:"required"`
	Description *string            `json:"description,omitempty"`
	Members     []GroupMemberInput `json:"members,omitempty"`
}

// CreateGroup stores a substitution group with its initial members.
func (s *Service) CreateGroup(ctx context.Context, input CreateGroupInput) (*models.SubstitutionGroup, error) {
	group := &models.SubstitutionGroup{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
	}
	seen := map[string]bool{}
	for _, member := range input.Members {
		if err := validateGroupMember(member); err != nil {
			return nil, err
		}
		if seen[member.ScryfallID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("duplicate member %s", member.ScryfallID))
		}
		seen[member.ScryfallID] = true
		group.Members = append(group.Members, models.SubstitutionGroupMember{
			ID:         uuid.New(),
			GroupID:    group.ID,
			ScryfallID: member.ScryfallID,
			CardName:   member.CardName,
		})
	}

	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, db.Classify(err, "substitution group not found")
	}
	return group, nil
}

// ListGroups returns all substitution groups with members.
func (s *Service) ListGroups(ctx context.Context) ([]models.SubstitutionGroup, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, db.Classify(err, "substitution groups not found")
	}
	return groups, nil
}

// DeleteGroup removes a group and its members.
func (s *Service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	group, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		return db.Classify(err, "substitution group not found")
	}
	if group == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "substitution group not found")
	}
	return db.Classify(s.repo.DeleteGroup(ctx, id), "substitution group not found")
}

// AddGroupCard appends a member to an existing group.
func (s *Service) AddGroupCard(ctx context.Context, groupID uuid.UUID, member GroupMemberInput) (*models.SubstitutionGroup, error) {
	if err := validateGroupMember(member); err != nil {
		return nil, err
	}
	group, err := s.repo.FindGroup(ctx, groupID)
	if err != nil {
		return nil, db.Classify(err, "substitution group not found")
	}
	if group == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "substitution group not found")
	}
	for _, existing := range group.Members {
		if existing.ScryfallID == member.ScryfallID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("card %s is already in the group", member.ScryfallID))
		}
	}

	row := &models.SubstitutionGroupMember{
		ID:         uuid.New(),
		GroupID:    groupID,
		ScryfallID: member.ScryfallID,
		CardName:   member.CardName,
	}
	if err := s.repo.AddGroupMember(ctx, row); err != nil {
		return nil, db.Classify(err, "substitution group not found")
	}
	return s.repo.FindGroup(ctx, groupID)
}

// RemoveGroupCard deletes a member from a group.
func (s *Service) RemoveGroupCard(ctx context.Context, groupID uuid.UUID, scryfallID string) error {
	removed, err := s.repo.RemoveGroupMember(ctx, groupID, scryfallID)
	if err != nil {
		return db.Classify(err, "substitution group not found")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "card not found in group")
	}
	return nil
}

func (s *Service) completedRuns(ctx context.Context, days int) ([]models.AutobuyRun, error) {
	runs, err := s.repo.ListCompletedRunsSince(ctx, s.windowCutoff(days))
	if err != nil {
		return nil, db.Classify(err, "autobuy runs not found")
	}
	return runs, nil
}

func (s *Service) windowCutoff(days int) time.Time {
	if days <= 0 {
		days = s.cfg.DefaultWindow
	}
	if days <= 0 {
		days = 30
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func recomputeTotals(run *models.AutobuyRun) {
	predicted := decimal.Zero
	actual := decimal.Zero
	hasActuals := false
	purchased := 0

	for _, item := range run.Items {
		predicted = predicted.Add(item.PredictedLineTotal())
		if lineTotal := item.ActualLineTotal(); lineTotal != nil {
			actual = actual.Add(*lineTotal)
			hasActuals = true
		}
		purchased += purchasedQty(item)
	}

	run.PredictedTotal = predicted
	run.PurchasedCount = purchased
	run.ItemCount = len(run.Items)
	if hasActuals {
		run.ActualTotal = &actual
	} else {
		run.ActualTotal = nil
	}
}

func purchasedQty(item models.AutobuyRunItem) int {
	if item.ActualQty != nil {
		return *item.ActualQty
	}
	return item.PredictedQty
}

// outcomeOf labels one run item for suggestion lift: 1 for a healthy
// acquisition or a sale, 0 for cancelled runs and heavy overpays.
func outcomeOf(run models.AutobuyRun, item models.AutobuyRunItem) float64 {
	if run.Status == enums.AutobuyRunStatusCancelled {
		return 0
	}
	if item.SoldQty > 0 {
		return 1
	}
	if actual := item.ActualLineTotal(); actual != nil {
		predicted := item.PredictedLineTotal()
		if !predicted.IsZero() {
			pct, _ := actual.Sub(predicted).Div(predicted).Float64()
			if pct > overpayThreshold {
				return 0
			}
		}
	}
	return 1
}

func itemDisplayName(item models.AutobuyRunItem) string {
	if item.CardName != nil && *item.CardName != "" {
		return *item.CardName
	}
	return item.CardID
}

func defaultWeightValue(name enums.IPSWeight) float64 {
	if name == enums.IPSWeightSubstitutionBeta {
		return 0.5
	}
	return 1.0
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
