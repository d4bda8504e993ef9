package autobuy

import (
	"math"
	"testing"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

func testWeights() map[enums.IPSWeight]float64 {
	return map[enums.IPSWeight]float64{
		enums.IPSWeightPriceDelta:       1.0,
		enums.IPSWeightDemandPressure:   1.0,
		enums.IPSWeightSubstitutionBeta: 0.5,
		enums.IPSWeightRecency:          1.0,
		enums.IPSWeightStockHeadroom:    1.0,
	}
}

func TestComputeScore(t *testing.T) {
	scored := ComputeScore(testWeights(), ScoreInput{
		CardName:       "Sol Ring",
		PriceDelta:     0.5,
		DemandPressure: 0.8,
		Recency:        0.2,
		StockHeadroom:  0.1,
	})

	if math.Abs(scored.Score-1.6) > 1e-9 {
		t.Fatalf("expected score 1.6, got %v", scored.Score)
	}
	if scored.DominantWeight != enums.IPSWeightDemandPressure {
		t.Fatalf("expected demand_pressure dominant, got %s", scored.DominantWeight)
	}
}

func TestComputeScoreAttenuatesDemand(t *testing.T) {
	input := ScoreInput{
		CardName:          "Sol Ring",
		PriceDelta:        0.5,
		DemandPressure:    0.8,
		SubstituteInStock: true,
	}
	scored := ComputeScore(testWeights(), input)

	// 0.5 + 0.8*0.5 = 0.9
	if math.Abs(scored.Score-0.9) > 1e-9 {
		t.Fatalf("expected score 0.9, got %v", scored.Score)
	}
	if scored.DominantWeight != enums.IPSWeightPriceDelta {
		t.Fatalf("expected price_delta dominant after attenuation, got %s", scored.DominantWeight)
	}
}

func TestComputeScoreCreditsBetaWhenAttenuatedDemandDominates(t *testing.T) {
	scored := ComputeScore(testWeights(), ScoreInput{
		CardName:          "Sol Ring",
		PriceDelta:        0.3,
		DemandPressure:    2.0,
		SubstituteInStock: true,
	})

	if scored.DominantWeight != enums.IPSWeightSubstitutionBeta {
		t.Fatalf("expected substitution beta credited, got %s", scored.DominantWeight)
	}
}

func TestComputeScoreIgnoresOutOfRangeBeta(t *testing.T) {
	weights := testWeights()
	weights[enums.IPSWeightSubstitutionBeta] = 0

	scored := ComputeScore(weights, ScoreInput{
		DemandPressure:    0.8,
		SubstituteInStock: true,
	})
	if math.Abs(scored.Score-0.8) > 1e-9 {
		t.Fatalf("expected unattenuated score 0.8, got %v", scored.Score)
	}
}
