package enums

import "fmt"

// AutobuyRunStatus records the outcome of a purchasing batch.
type AutobuyRunStatus string

const (
	AutobuyRunStatusPurchased          AutobuyRunStatus = "purchased"
	AutobuyRunStatusPartiallyPurchased AutobuyRunStatus = "partially_purchased"
	AutobuyRunStatusCancelled          AutobuyRunStatus = "cancelled"
)

func (s AutobuyRunStatus) String() string {
	return string(s)
}

// Completed reports whether the run counts toward accuracy windows.
func (s AutobuyRunStatus) Completed() bool {
	return s == AutobuyRunStatusPurchased || s == AutobuyRunStatusPartiallyPurchased
}

// ParseAutobuyRunStatus validates a raw run status.
func ParseAutobuyRunStatus(value string) (AutobuyRunStatus, error) {
	switch AutobuyRunStatus(value) {
	case AutobuyRunStatusPurchased, AutobuyRunStatusPartiallyPurchased, AutobuyRunStatusCancelled:
		return AutobuyRunStatus(value), nil
	}
	return "", fmt.Errorf("invalid autobuy run status %q", value)
}
