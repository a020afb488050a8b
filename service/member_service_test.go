package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coop-loans/domain"
)

func TestRegisterMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.members.RegisterMember(ctx, "  Wanjiru  ")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Wanjiru", m.Name)
	assert.Zero(t, m.CumulativeContribution)
	assert.Equal(t, fixedNow, m.CreatedAt)

	_, err = f.members.RegisterMember(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.members.RegisterMember(ctx, strings.Repeat("x", MaxMemberNameLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestRecordContribution_PromotesTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.memberWith(t, 0)

	summary, err := f.members.RecordContribution(ctx, m.ID, 15_000)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic, summary.Tier)
	assert.Equal(t, 30_000.0, summary.MaxLoanAmount)

	summary, err = f.members.RecordContribution(ctx, m.ID, 5_000)
	require.NoError(t, err)
	assert.Equal(t, 20_000.0, summary.CumulativeContribution)
	assert.Equal(t, domain.TierPremium, summary.Tier)

	contributions, err := f.members.ListContributions(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, contributions, 2)

	got, err := f.members.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, got.Tier)
}

func TestRecordContribution_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.memberWith(t, 0)

	_, err := f.members.RecordContribution(ctx, m.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.members.RecordContribution(ctx, m.ID, -10)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.members.RecordContribution(ctx, m.ID, MaxContributionAmount+1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.members.RecordContribution(ctx, "ghost", 100)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestGetMember_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.members.GetMember(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}
