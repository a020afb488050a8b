package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/metrics"
	"coop-loans/repository"
)

type LoanService struct {
	members repository.MemberRepository
	loans   repository.LoanRepository
	cache   repository.CacheRepository
	logger  *zap.Logger
	now     func() time.Time

	// mu serializes the read-modify-write paths (apply, repay) so two
	// concurrent applications cannot both see "no active loan".
	mu sync.Mutex
}

// NewLoanService creates a new LoanService with the given repositories.
func NewLoanService(
	members repository.MemberRepository,
	loans repository.LoanRepository,
	cache repository.CacheRepository,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		members: members,
		loans:   loans,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// Tiers returns the static tier table.
func (s *LoanService) Tiers() []domain.TierDefinition {
	return Tiers()
}

func validateDuration(tier domain.Tier, months int) error {
	maxMonths := TierMaxDuration(tier)
	if months < 1 || months > maxMonths {
		return fmt.Errorf("%w: %s tier allows 1 to %d months", domain.ErrInvalidDuration, tier, maxMonths)
	}
	return nil
}

func validatePrincipal(amount float64) error {
	if !(amount > 0) {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	if !(amount <= MaxLoanAmount) {
		return fmt.Errorf("%w: amount exceeds the maximum of %.2f", domain.ErrInvalidAmount, MaxLoanAmount)
	}
	return nil
}

// PreviewSchedule computes the repayment schedule a member of the given tier
// would get, without touching storage. Results are cached by input.
func (s *LoanService) PreviewSchedule(
	ctx context.Context,
	principal float64,
	tier domain.Tier,
	durationMonths int,
) (domain.SchedulePreview, error) {

	if !tier.Valid() {
		return domain.SchedulePreview{}, fmt.Errorf("%w: %d", domain.ErrUnknownTier, int(tier))
	}
	if err := validatePrincipal(principal); err != nil {
		return domain.SchedulePreview{}, err
	}
	if err := validateDuration(tier, durationMonths); err != nil {
		return domain.SchedulePreview{}, err
	}

	key := previewCacheKey(tier, principal, durationMonths)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var preview domain.SchedulePreview
		if err := json.Unmarshal([]byte(cached), &preview); err == nil {
			metrics.PreviewCache.WithLabelValues("hit").Inc()
			return preview, nil
		}
		s.logger.Warn("discarding unreadable cached schedule", zap.String("key", key))
	}
	metrics.PreviewCache.WithLabelValues("miss").Inc()

	rate := TierInterestRate(tier)
	schedule := CalculateRepaymentSchedule(principal, rate, durationMonths)
	preview := domain.SchedulePreview{
		Tier:                tier,
		Principal:           principal,
		MonthlyInterestRate: rate,
		DurationMonths:      durationMonths,
		TotalInterest:       roundTo2Decimals(TotalInterest(schedule)),
		TotalRepayment:      roundTo2Decimals(totalRepayment(schedule)),
		Installments:        schedule,
	}

	// Caching is best effort.
	if data, err := json.Marshal(preview); err == nil {
		if err := s.cache.Set(ctx, key, string(data), previewCacheTTL); err != nil {
			s.logger.Warn("failed to cache schedule preview", zap.String("key", key), zap.Error(err))
		}
	}
	return preview, nil
}

// previewCacheKey formats the principal exactly; principals that only
// differ below the cent must not share an entry.
func previewCacheKey(tier domain.Tier, principal float64, durationMonths int) string {
	return "schedule:" + tier.String() + ":" +
		strconv.FormatFloat(principal, 'g', -1, 64) + ":" + strconv.Itoa(durationMonths)
}

// Apply evaluates a loan application for a stored member. An ineligible
// application is a decision, not an error; errors are reserved for invalid
// input and storage failures.
func (s *LoanService) Apply(ctx context.Context, app domain.LoanApplication) (domain.LoanDecision, error) {
	if err := validatePrincipal(app.Amount); err != nil {
		return domain.LoanDecision{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.members.GetMember(ctx, app.MemberID)
	if err != nil {
		return domain.LoanDecision{}, fmt.Errorf("load member: %w", err)
	}

	tier := CalculateUserTier(member.CumulativeContribution)
	if err := validateDuration(tier, app.DurationMonths); err != nil {
		return domain.LoanDecision{}, err
	}

	result := IsEligibleForLoan(member.CumulativeContribution, app.Amount, member.HasActiveLoan)
	metrics.ObserveEligibility(result.Eligible, string(result.Rule))
	if !result.Eligible {
		s.logger.Info("loan application rejected",
			zap.String("member_id", member.ID),
			zap.Float64("amount", app.Amount),
			zap.String("rule", string(result.Rule)))
		return domain.LoanDecision{Reason: result.Reason, Rule: result.Rule}, nil
	}

	// Flag first: a stored active loan always belongs to a flagged member.
	loan := s.newLoan(member.ID, tier, app.Amount, app.DurationMonths)
	if err := s.members.SetActiveLoan(ctx, member.ID, true); err != nil {
		return domain.LoanDecision{}, fmt.Errorf("mark active loan: %w", err)
	}
	if err := s.loans.SaveLoan(ctx, loan); err != nil {
		if undoErr := s.members.SetActiveLoan(ctx, member.ID, false); undoErr != nil {
			s.logger.Error("failed to clear active loan after save failure",
				zap.String("member_id", member.ID), zap.Error(undoErr))
		}
		return domain.LoanDecision{}, fmt.Errorf("save loan: %w", err)
	}

	metrics.LoansIssued.WithLabelValues(tier.String()).Inc()
	metrics.LoanPrincipal.WithLabelValues(tier.String()).Observe(loan.Principal)
	s.logger.Info("loan issued",
		zap.String("loan_id", loan.ID),
		zap.String("member_id", member.ID),
		zap.Stringer("tier", tier),
		zap.Float64("principal", loan.Principal),
		zap.Int("duration_months", loan.DurationMonths))

	return domain.LoanDecision{Eligible: true, Loan: &loan}, nil
}

func (s *LoanService) newLoan(memberID string, tier domain.Tier, principal float64, months int) domain.Loan {
	now := s.now().UTC()
	rate := TierInterestRate(tier)

	schedule := CalculateRepaymentSchedule(principal, rate, months)
	installments := make([]domain.ScheduledInstallment, len(schedule))
	for i, inst := range schedule {
		installments[i] = domain.ScheduledInstallment{
			RepaymentInstallment: inst,
			DueDate:              now.AddDate(0, inst.InstallmentNumber, 0),
		}
	}

	return domain.Loan{
		ID:                  uuid.NewString(),
		MemberID:            memberID,
		Tier:                tier,
		Principal:           principal,
		MonthlyInterestRate: rate,
		DurationMonths:      months,
		Status:              domain.LoanActive,
		Installments:        installments,
		CreatedAt:           now,
	}
}

// RecordRepayment marks one installment as paid. Paying the last open
// installment closes the loan and frees the member to apply again.
func (s *LoanService) RecordRepayment(ctx context.Context, loanID string, installmentNumber int) (domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("load loan: %w", err)
	}
	if loan.Status != domain.LoanActive {
		return domain.Loan{}, domain.ErrLoanClosed
	}
	if installmentNumber < 1 || installmentNumber > len(loan.Installments) {
		return domain.Loan{}, fmt.Errorf("%w: loan has %d installments", domain.ErrInstallmentNotFound, len(loan.Installments))
	}

	inst := &loan.Installments[installmentNumber-1]
	if inst.PaidAt != nil {
		return domain.Loan{}, domain.ErrInstallmentPaid
	}
	now := s.now().UTC()
	inst.PaidAt = &now

	closed := true
	for _, other := range loan.Installments {
		if other.PaidAt == nil {
			closed = false
			break
		}
	}
	if closed {
		loan.Status = domain.LoanRepaid
		loan.ClosedAt = &now
	}

	if err := s.loans.SaveLoan(ctx, loan); err != nil {
		return domain.Loan{}, fmt.Errorf("save loan: %w", err)
	}
	metrics.RepaymentsRecorded.Inc()

	if closed {
		if err := s.members.SetActiveLoan(ctx, loan.MemberID, false); err != nil {
			return domain.Loan{}, fmt.Errorf("clear active loan: %w", err)
		}
		metrics.LoansRepaid.Inc()
		s.logger.Info("loan repaid", zap.String("loan_id", loan.ID), zap.String("member_id", loan.MemberID))
	}
	return loan, nil
}

func (s *LoanService) GetLoan(ctx context.Context, id string) (domain.Loan, error) {
	loan, err := s.loans.GetLoan(ctx, id)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func (s *LoanService) ListMemberLoans(ctx context.Context, memberID string) ([]domain.Loan, error) {
	if _, err := s.members.GetMember(ctx, memberID); err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	loans, err := s.loans.ListLoansByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}
