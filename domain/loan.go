package domain

import "time"

type RepaymentInstallment struct {
	InstallmentNumber int     `json:"installment_number" yaml:"installment_number"`
	PrincipalAmount   float64 `json:"principal_amount" yaml:"principal_amount"`
	InterestAmount    float64 `json:"interest_amount" yaml:"interest_amount"`
	TotalAmount       float64 `json:"total_amount" yaml:"total_amount"`
}

type SchedulePreview struct {
	Tier                Tier                   `json:"tier" yaml:"tier"`
	Principal           float64                `json:"principal" yaml:"principal"`
	MonthlyInterestRate float64                `json:"monthly_interest_rate" yaml:"monthly_interest_rate"`
	DurationMonths      int                    `json:"duration_months" yaml:"duration_months"`
	TotalInterest       float64                `json:"total_interest" yaml:"total_interest"`
	TotalRepayment      float64                `json:"total_repayment" yaml:"total_repayment"`
	Installments        []RepaymentInstallment `json:"installments" yaml:"installments"`
}

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanRepaid LoanStatus = "repaid"
)

// ScheduledInstallment is a persisted installment of an issued loan.
type ScheduledInstallment struct {
	RepaymentInstallment
	DueDate time.Time  `json:"due_date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
}

type Loan struct {
	ID                  string                 `json:"id"`
	MemberID            string                 `json:"member_id"`
	Tier                Tier                   `json:"tier"`
	Principal           float64                `json:"principal"`
	MonthlyInterestRate float64                `json:"monthly_interest_rate"`
	DurationMonths      int                    `json:"duration_months"`
	Status              LoanStatus             `json:"status"`
	Installments        []ScheduledInstallment `json:"installments"`
	CreatedAt           time.Time              `json:"created_at"`
	ClosedAt            *time.Time             `json:"closed_at,omitempty"`
}

// Outstanding returns the unpaid part of the loan, principal plus interest.
func (l Loan) Outstanding() float64 {
	var total float64
	for _, inst := range l.Installments {
		if inst.PaidAt == nil {
			total += inst.TotalAmount
		}
	}
	return total
}

type LoanApplication struct {
	MemberID       string  `json:"member_id"`
	Amount         float64 `json:"amount"`
	DurationMonths int     `json:"duration_months"`
}

type LoanDecision struct {
	Eligible bool            `json:"eligible"`
	Reason   string          `json:"reason,omitempty"`
	Rule     EligibilityRule `json:"rule,omitempty"`
	Loan     *Loan           `json:"loan,omitempty"`
}
