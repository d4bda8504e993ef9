package enums

import "fmt"

// CardQuality grades physical condition.
type CardQuality string

const (
	CardQualityNM  CardQuality = "NM"
	CardQualityLP  CardQuality = "LP"
	CardQualityMP  CardQuality = "MP"
	CardQualityHP  CardQuality = "HP"
	CardQualityDMG CardQuality = "DMG"
)

func (q CardQuality) String() string {
	return string(q)
}

// ParseCardQuality validates a raw quality grade.
func ParseCardQuality(value string) (CardQuality, error) {
	switch CardQuality(value) {
	case CardQualityNM, CardQualityLP, CardQualityMP, CardQualityHP, CardQualityDMG:
		return CardQuality(value), nil
	}
	return "", fmt.Errorf("invalid card quality %q", value)
}
