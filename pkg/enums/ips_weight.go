package enums

import "fmt"

// IPSWeight names a factor in the Item Priority Score weight set.
type IPSWeight string

const (
	IPSWeightPriceDelta       IPSWeight = "price_delta"
	IPSWeightDemandPressure   IPSWeight = "demand_pressure"
	IPSWeightSubstitutionBeta IPSWeight = "substitution_attenuation_beta"
	IPSWeightRecency          IPSWeight = "recency"
	IPSWeightStockHeadroom    IPSWeight = "stock_headroom"
)

// AllIPSWeights returns the full weight set in canonical order.
func AllIPSWeights() []IPSWeight {
	return []IPSWeight{
		IPSWeightPriceDelta,
		IPSWeightDemandPressure,
		IPSWeightSubstitutionBeta,
		IPSWeightRecency,
		IPSWeightStockHeadroom,
	}
}

func (w IPSWeight) String() string {
	return string(w)
}

// ParseIPSWeight validates a raw weight name.
func ParseIPSWeight(value string) (IPSWeight, error) {
	for _, known := range AllIPSWeights() {
		if IPSWeight(value) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("invalid IPS weight %q", value)
}
