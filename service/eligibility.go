package service

import (
	"fmt"
	"math"

	"coop-loans/domain"
)

// IsEligibleForLoan applies the loan gates in order and reports the first
// one that fails. It never errors; the reason is meant for end users.
// Comparisons are written so that NaN fails every gate it reaches.
func IsEligibleForLoan(
	cumulativeContribution float64,
	requestedAmount float64,
	hasActiveLoan bool,
) domain.LoanEligibilityResult {

	floor := tierTable[0].MinContribution
	if !(cumulativeContribution >= floor) || math.IsInf(cumulativeContribution, 1) {
		return domain.LoanEligibilityResult{
			Reason: fmt.Sprintf("A minimum contribution of %.2f is required to apply for a loan", floor),
			Rule:   domain.RuleMinimumContribution,
		}
	}

	if hasActiveLoan {
		return domain.LoanEligibilityResult{
			Reason: "You already have an active loan; repay it before applying again",
			Rule:   domain.RuleActiveLoan,
		}
	}

	tier := CalculateUserTier(cumulativeContribution)
	maxLoan := cumulativeContribution * float64(TierDefinition(tier).MaxLoanMultiplier)
	if !(requestedAmount <= maxLoan) {
		return domain.LoanEligibilityResult{
			Reason: fmt.Sprintf("Maximum loan amount for the %s tier is %.2f", tier, maxLoan),
			Rule:   domain.RuleMultiplierCeiling,
		}
	}

	return domain.LoanEligibilityResult{Eligible: true}
}

// RequireFinite rejects NaN and infinite amounts with ErrInvalidAmount.
func RequireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", domain.ErrInvalidAmount, field)
	}
	return nil
}
