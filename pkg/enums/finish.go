package enums

import "fmt"

// CardFinish distinguishes normal from foil printings.
type CardFinish string

const (
	CardFinishNormal CardFinish = "normal"
	CardFinishFoil   CardFinish = "foil"
)

func (f CardFinish) String() string {
	return string(f)
}

// ParseCardFinish validates a raw finish value.
func ParseCardFinish(value string) (CardFinish, error) {
	switch CardFinish(value) {
	case CardFinishNormal, CardFinishFoil:
		return CardFinish(value), nil
	}
	return "", fmt.Errorf("invalid card finish %q", value)
}
