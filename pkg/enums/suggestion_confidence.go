package enums

// SuggestionConfidence grades how much evidence backs a weight suggestion.
type SuggestionConfidence string

const (
	SuggestionConfidenceHigh   SuggestionConfidence = "high"
	SuggestionConfidenceMedium SuggestionConfidence = "medium"
	SuggestionConfidenceLow    SuggestionConfidence = "low"
)

func (c SuggestionConfidence) String() string {
	return string(c)
}
