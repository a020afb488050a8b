package domain

import "time"

type Member struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	CumulativeContribution float64   `json:"cumulative_contribution"`
	HasActiveLoan          bool      `json:"has_active_loan"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type Contribution struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	Amount     float64   `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

type MemberSummary struct {
	Member
	Tier          Tier    `json:"tier"`
	MaxLoanAmount float64 `json:"max_loan_amount"`
}
