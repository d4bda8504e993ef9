package autobuy

import (
	"context"
	"strings"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// ScoreInput carries the observed factor values of one purchase candidate.
// Factor values are caller-normalized; the weights decide their mix.
type ScoreInput struct {
	CardName          string  `json:"card_name"`
	ScryfallID        string  `json:"scryfall_id"`
	PriceDelta        float64 `json:"price_delta"`
	DemandPressure    float64 `json:"demand_pressure"`
	Recency           float64 `json:"recency"`
	StockHeadroom     float64 `json:"stock_headroom"`
	SubstituteInStock bool    `json:"substitute_in_stock"`
}

// ScoredCandidate is a candidate with its computed priority score and the
// factor that contributed the most, recorded so later suggestions can
// attribute lift.
type ScoredCandidate struct {
	ScoreInput
	Score          float64         `json:"score"`
	DominantWeight enums.IPSWeight `json:"dominant_weight"`
}

// ComputeScore evaluates the Item Priority Score for one candidate. When a
// substitution-group sibling is in stock, the demand contribution is
// attenuated by the beta weight.
func ComputeScore(weights map[enums.IPSWeight]float64, input ScoreInput) ScoredCandidate {
	demand := input.DemandPressure
	if input.SubstituteInStock {
		beta := weights[enums.IPSWeightSubstitutionBeta]
		if beta <= 0 || beta > 1 {
			beta = 1
		}
		demand *= beta
	}

	contributions := map[enums.IPSWeight]float64{
		enums.IPSWeightPriceDelta:     weights[enums.IPSWeightPriceDelta] * input.PriceDelta,
		enums.IPSWeightDemandPressure: weights[enums.IPSWeightDemandPressure] * demand,
		enums.IPSWeightRecency:        weights[enums.IPSWeightRecency] * input.Recency,
		enums.IPSWeightStockHeadroom:  weights[enums.IPSWeightStockHeadroom] * input.StockHeadroom,
	}

	scored := ScoredCandidate{ScoreInput: input}
	dominantAbs := -1.0
	for _, name := range enums.AllIPSWeights() {
		contribution, ok := contributions[name]
		if !ok {
			continue
		}
		scored.Score += contribution
		if abs := absFloat(contribution); abs > dominantAbs {
			dominantAbs = abs
			scored.DominantWeight = name
		}
	}
	if input.SubstituteInStock && scored.DominantWeight == enums.IPSWeightDemandPressure {
		// Attenuation changed the outcome; credit the beta weight.
		scored.DominantWeight = enums.IPSWeightSubstitutionBeta
	}
	return scored
}

// substituteInStock reports whether any other member of the card's
// substitution groups has available copies.
func (s *Service) substituteInStock(ctx context.Context, scryfallID string) (bool, error) {
	if scryfallID == "" {
		return false, nil
	}
	groups, err := s.repo.ListGroupsByCard(ctx, scryfallID)
	if err != nil {
		return false, db.Classify(err, "substitution groups not found")
	}

	minAvailable := 1
	for _, group := range groups {
		for _, member := range group.Members {
			if member.ScryfallID == scryfallID || member.CardName == nil {
				continue
			}
			matches, err := s.items.ListItems(ctx, inventory.ItemFilter{
				Name:         strings.ToLower(*member.CardName),
				AvailableGTE: &minAvailable,
			})
			if err != nil {
				return false, db.Classify(err, "inventory items not found")
			}
			if len(matches) > 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

// ScoreCandidates evaluates IPS for a batch against the persisted weight set,
// resolving substitution-group stock along the way. Results keep input order.
func (s *Service) ScoreCandidates(ctx context.Context, inputs []ScoreInput) ([]ScoredCandidate, error) {
	weights, err := s.WeightValues(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredCandidate, 0, len(inputs))
	for _, input := range inputs {
		inStock, err := s.substituteInStock(ctx, input.ScryfallID)
		if err != nil {
			return nil, err
		}
		input.SubstituteInStock = inStock
		scored = append(scored, ComputeScore(weights, input))
	}
	return scored, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
