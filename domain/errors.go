package domain

import "errors"

var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInstallmentPaid     = errors.New("installment already paid")
	ErrLoanClosed          = errors.New("loan is already repaid")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidName     = errors.New("invalid member name")
	ErrUnknownTier     = errors.New("unknown tier")

	ErrInvalidPreference = errors.New("invalid duration preference")
	ErrNoDurationFits    = errors.New("no duration fits the maximum monthly payment")
)
