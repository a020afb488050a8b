package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/metrics"
	"coop-loans/repository"
)

type MemberService struct {
	repo   repository.MemberRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewMemberService creates a MemberService backed by the given repository.
func NewMemberService(repo repository.MemberRepository, logger *zap.Logger) *MemberService {
	return &MemberService{repo: repo, logger: logger, now: time.Now}
}

// RegisterMember creates a member with no contributions.
func (s *MemberService) RegisterMember(ctx context.Context, name string) (domain.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxMemberNameLength {
		return domain.Member{}, fmt.Errorf("%w: must be 1-%d characters", domain.ErrInvalidName, MaxMemberNameLength)
	}

	now := s.now().UTC()
	member := domain.Member{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		return domain.Member{}, fmt.Errorf("register member: %w", err)
	}

	s.logger.Info("member registered", zap.String("member_id", member.ID))
	return member, nil
}

// RecordContribution adds amount to the member's cumulative contribution.
func (s *MemberService) RecordContribution(
	ctx context.Context,
	memberID string,
	amount float64,
) (domain.MemberSummary, error) {

	if !(amount > 0) {
		return domain.MemberSummary{}, fmt.Errorf("%w: contribution must be positive", domain.ErrInvalidAmount)
	}
	if !(amount <= MaxContributionAmount) {
		return domain.MemberSummary{}, fmt.Errorf("%w: contribution exceeds %.2f", domain.ErrInvalidAmount, MaxContributionAmount)
	}

	contribution := domain.Contribution{
		ID:         uuid.NewString(),
		MemberID:   memberID,
		Amount:     amount,
		RecordedAt: s.now().UTC(),
	}
	member, err := s.repo.AddContribution(ctx, contribution)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("record contribution: %w", err)
	}
	metrics.ContributionsRecorded.Inc()

	summary := summarize(member)
	s.logger.Info("contribution recorded",
		zap.String("member_id", memberID),
		zap.Float64("amount", amount),
		zap.Float64("cumulative", member.CumulativeContribution),
		zap.Stringer("tier", summary.Tier))
	return summary, nil
}

func (s *MemberService) GetMember(ctx context.Context, id string) (domain.MemberSummary, error) {
	member, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("get member: %w", err)
	}
	return summarize(member), nil
}

func (s *MemberService) ListContributions(ctx context.Context, memberID string) ([]domain.Contribution, error) {
	contributions, err := s.repo.ListContributions(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}

func summarize(member domain.Member) domain.MemberSummary {
	return domain.MemberSummary{
		Member:        member,
		Tier:          CalculateUserTier(member.CumulativeContribution),
		MaxLoanAmount: roundTo2Decimals(MaxLoanFor(member.CumulativeContribution)),
	}
}
