package domain

type DurationPreference string

const (
	PreferMinimizeInterest DurationPreference = "minimize_interest"
	PreferMinimizePayment  DurationPreference = "minimize_payment"
	PreferBalanced         DurationPreference = "balanced"
)

type DurationRequest struct {
	Tier              string             `json:"tier"`
	Principal         float64            `json:"principal"`
	MaxMonthlyPayment float64            `json:"max_monthly_payment"`
	Preference        DurationPreference `json:"preference"`
}

type DurationOption struct {
	DurationMonths int     `json:"duration_months"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalInterest  float64 `json:"total_interest"`
	Score          float64 `json:"score"`
}

type DurationRecommendation struct {
	Tier              Tier             `json:"tier"`
	RecommendedMonths int              `json:"recommended_months"`
	Reason            string           `json:"reason"`
	Options           []DurationOption `json:"options"`
}
