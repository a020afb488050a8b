package repository

import (
	"context"

	"coop-loans/domain"
)

type LoanRepository interface {
	// SaveLoan inserts the loan or updates its status and installments.
	SaveLoan(ctx context.Context, loan domain.Loan) error
	GetLoan(ctx context.Context, id string) (domain.Loan, error)
	ListLoansByMember(ctx context.Context, memberID string) ([]domain.Loan, error)
}

type MemberRepository interface {
	CreateMember(ctx context.Context, member domain.Member) error
	GetMember(ctx context.Context, id string) (domain.Member, error)
	// AddContribution records the contribution and returns the member with
	// the updated cumulative total.
	AddContribution(ctx context.Context, c domain.Contribution) (domain.Member, error)
	ListContributions(ctx context.Context, memberID string) ([]domain.Contribution, error)
	SetActiveLoan(ctx context.Context, memberID string, active bool) error
}
