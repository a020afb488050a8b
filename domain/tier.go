package domain

import (
	"fmt"
	"strings"
)

// Tier is a cooperative membership level. The set is closed: every value
// the service hands out comes from CalculateUserTier.
type Tier int

const (
	TierBasic Tier = iota
	TierPremium
)

var tierNames = [...]string{
	TierBasic:   "Basic",
	TierPremium: "Premium",
}

func (t Tier) Valid() bool {
	return t >= TierBasic && int(t) < len(tierNames)
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier accepts a tier name in any letter case.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(tierNames[t]), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type TierDefinition struct {
	Tier                Tier    `json:"tier" yaml:"tier"`
	MinContribution     float64 `json:"min_contribution" yaml:"min_contribution"`
	MaxLoanMultiplier   int     `json:"max_loan_multiplier" yaml:"max_loan_multiplier"`
	MonthlyInterestRate float64 `json:"monthly_interest_rate" yaml:"monthly_interest_rate"` // percent per month
	MaxDurationMonths   int     `json:"max_duration_months" yaml:"max_duration_months"`
}

// EligibilityRule names the gate that rejected a loan request.
type EligibilityRule string

const (
	RuleMinimumContribution EligibilityRule = "minimum_contribution"
	RuleActiveLoan          EligibilityRule = "active_loan"
	RuleMultiplierCeiling   EligibilityRule = "multiplier_ceiling"
)

type LoanEligibilityResult struct {
	Eligible bool            `json:"eligible" yaml:"eligible"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Rule     EligibilityRule `json:"rule,omitempty" yaml:"rule,omitempty"`
}
