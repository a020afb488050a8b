package service

import (
	"fmt"
	"math"

	"coop-loans/domain"
)

// roundTo2Decimals rounds to cents for display and persisted totals.
func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}

// Tiers returns a copy of the tier table, lowest tier first.
func Tiers() []domain.TierDefinition {
	out := make([]domain.TierDefinition, len(tierTable))
	copy(out, tierTable[:])
	return out
}

// CalculateUserTier returns the highest tier whose minimum contribution is
// met. Negative contributions count as zero, and anything below the lowest
// threshold still classifies as Basic.
func CalculateUserTier(cumulativeContribution float64) domain.Tier {
	contribution := math.Max(cumulativeContribution, 0)
	for i := len(tierTable) - 1; i > 0; i-- {
		if contribution >= tierTable[i].MinContribution {
			return tierTable[i].Tier
		}
	}
	return tierTable[0].Tier
}

// TierDefinition panics on a tier outside the table: that can only be a
// programming error upstream.
func TierDefinition(tier domain.Tier) domain.TierDefinition {
	if !tier.Valid() {
		panic(fmt.Sprintf("service: no tier definition for %v", tier))
	}
	return tierTable[tier]
}

func TierInterestRate(tier domain.Tier) float64 {
	return TierDefinition(tier).MonthlyInterestRate
}

func TierMaxDuration(tier domain.Tier) int {
	return TierDefinition(tier).MaxDurationMonths
}

// MaxLoanFor returns contribution × multiplier for the contribution's tier.
func MaxLoanFor(cumulativeContribution float64) float64 {
	def := TierDefinition(CalculateUserTier(cumulativeContribution))
	return math.Max(cumulativeContribution, 0) * float64(def.MaxLoanMultiplier)
}
