package service

import (
	"time"

	"coop-loans/domain"
)

const (
	MaxLoanAmount         = 1_000_000_000.0
	MaxContributionAmount = 100_000_000.0
	MaxMemberNameLength   = 120

	previewCacheTTL = 10 * time.Minute
)

// tierTable is indexed by domain.Tier and sorted by MinContribution.
var tierTable = [...]domain.TierDefinition{
	domain.TierBasic: {
		Tier:                domain.TierBasic,
		MinContribution:     5_000,
		MaxLoanMultiplier:   2,
		MonthlyInterestRate: 2.5,
		MaxDurationMonths:   6,
	},
	domain.TierPremium: {
		Tier:                domain.TierPremium,
		MinContribution:     20_000,
		MaxLoanMultiplier:   2,
		MonthlyInterestRate: 2.0,
		MaxDurationMonths:   12,
	},
}
