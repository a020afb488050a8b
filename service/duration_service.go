package service

import (
	"fmt"
	"sort"

	"coop-loans/domain"
)

// RecommendDuration scores every duration the tier allows whose flat monthly
// installment fits the member's budget, best first. Under simple interest a
// shorter loan always costs less interest and a longer one always has the
// smaller installment, so the preference decides which side wins.
func RecommendDuration(req domain.DurationRequest) (domain.DurationRecommendation, error) {
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		return domain.DurationRecommendation{}, err
	}
	if err := validatePrincipal(req.Principal); err != nil {
		return domain.DurationRecommendation{}, err
	}
	if req.MaxMonthlyPayment <= 0 {
		return domain.DurationRecommendation{}, fmt.Errorf("%w: max monthly payment must be positive", domain.ErrInvalidAmount)
	}
	preference := req.Preference
	if preference == "" {
		preference = domain.PreferBalanced
	}
	switch preference {
	case domain.PreferMinimizeInterest, domain.PreferMinimizePayment, domain.PreferBalanced:
	default:
		return domain.DurationRecommendation{}, fmt.Errorf("%w: %q", domain.ErrInvalidPreference, req.Preference)
	}

	def := TierDefinition(tier)
	options := []domain.DurationOption{}
	for months := 1; months <= def.MaxDurationMonths; months++ {
		schedule := CalculateRepaymentSchedule(req.Principal, def.MonthlyInterestRate, months)
		payment := schedule[0].TotalAmount
		if payment > req.MaxMonthlyPayment {
			continue
		}
		options = append(options, domain.DurationOption{
			DurationMonths: months,
			MonthlyPayment: roundTo2Decimals(payment),
			TotalInterest:  roundTo2Decimals(TotalInterest(schedule)),
		})
	}
	if len(options) == 0 {
		return domain.DurationRecommendation{}, fmt.Errorf("%w of %.2f for the %s tier", domain.ErrNoDurationFits, req.MaxMonthlyPayment, tier)
	}

	for i := range options {
		options[i].Score = scoreDuration(options[i], options, preference)
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Score > options[j].Score
	})

	return domain.DurationRecommendation{
		Tier:              tier,
		RecommendedMonths: options[0].DurationMonths,
		Reason:            durationReason(preference),
		Options:           options,
	}, nil
}

// scoreDuration normalizes interest and payment across the feasible options
// to 0-10 and weights them by preference.
func scoreDuration(opt domain.DurationOption, all []domain.DurationOption, preference domain.DurationPreference) float64 {
	minInterest, maxInterest := all[0].TotalInterest, all[0].TotalInterest
	minPayment, maxPayment := all[0].MonthlyPayment, all[0].MonthlyPayment
	for _, o := range all[1:] {
		minInterest = min(minInterest, o.TotalInterest)
		maxInterest = max(maxInterest, o.TotalInterest)
		minPayment = min(minPayment, o.MonthlyPayment)
		maxPayment = max(maxPayment, o.MonthlyPayment)
	}

	interestScore, paymentScore := 10.0, 10.0
	if r := maxInterest - minInterest; r > 0 {
		interestScore = 10 * (1 - (opt.TotalInterest-minInterest)/r)
	}
	if r := maxPayment - minPayment; r > 0 {
		paymentScore = 10 * (1 - (opt.MonthlyPayment-minPayment)/r)
	}

	var score float64
	switch preference {
	case domain.PreferMinimizeInterest:
		score = 0.8*interestScore + 0.2*paymentScore
	case domain.PreferMinimizePayment:
		score = 0.2*interestScore + 0.8*paymentScore
	default:
		score = 0.5*interestScore + 0.5*paymentScore
	}
	return roundTo2Decimals(score)
}

func durationReason(preference domain.DurationPreference) string {
	switch preference {
	case domain.PreferMinimizeInterest:
		return "Shortest duration within budget, minimizing total interest"
	case domain.PreferMinimizePayment:
		return "Longest duration the tier allows, minimizing the monthly installment"
	default:
		return "Balance between monthly installment and total interest"
	}
}
