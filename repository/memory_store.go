package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"coop-loans/domain"
)

// MemoryStore is an in-memory implementation of MemberRepository and
// LoanRepository. Values are copied in and out so callers never share
// installment slices with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	members       map[string]domain.Member
	contributions map[string][]domain.Contribution
	loans         map[string]domain.Loan
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:       make(map[string]domain.Member),
		contributions: make(map[string][]domain.Contribution),
		loans:         make(map[string]domain.Loan),
	}
}

func (s *MemoryStore) CreateMember(_ context.Context, member domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[member.ID]; exists {
		return fmt.Errorf("member %s already exists", member.ID)
	}
	s.members[member.ID] = member
	return nil
}

func (s *MemoryStore) GetMember(_ context.Context, id string) (domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	return m, nil
}

func (s *MemoryStore) AddContribution(_ context.Context, c domain.Contribution) (domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[c.MemberID]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	m.CumulativeContribution += c.Amount
	m.UpdatedAt = c.RecordedAt
	s.members[m.ID] = m
	s.contributions[m.ID] = append(s.contributions[m.ID], c)
	return m, nil
}

func (s *MemoryStore) ListContributions(_ context.Context, memberID string) ([]domain.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.members[memberID]; !ok {
		return nil, domain.ErrMemberNotFound
	}
	out := make([]domain.Contribution, len(s.contributions[memberID]))
	copy(out, s.contributions[memberID])
	return out, nil
}

func (s *MemoryStore) SetActiveLoan(_ context.Context, memberID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.HasActiveLoan = active
	s.members[memberID] = m
	return nil
}

func (s *MemoryStore) SaveLoan(_ context.Context, loan domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (s *MemoryStore) GetLoan(_ context.Context, id string) (domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return domain.Loan{}, domain.ErrLoanNotFound
	}
	return cloneLoan(loan), nil
}

func (s *MemoryStore) ListLoansByMember(_ context.Context, memberID string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Loan
	for _, loan := range s.loans {
		if loan.MemberID == memberID {
			out = append(out, cloneLoan(loan))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneLoan(loan domain.Loan) domain.Loan {
	installments := make([]domain.ScheduledInstallment, len(loan.Installments))
	for i, inst := range loan.Installments {
		if inst.PaidAt != nil {
			paid := *inst.PaidAt
			inst.PaidAt = &paid
		}
		installments[i] = inst
	}
	loan.Installments = installments
	if loan.ClosedAt != nil {
		closed := *loan.ClosedAt
		loan.ClosedAt = &closed
	}
	return loan
}
