package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{
		"Basic":     TierBasic,
		"basic":     TierBasic,
		" PREMIUM ": TierPremium,
	} {
		got, err := ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTier("Gold")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "Basic", TierBasic.String())
	assert.Equal(t, "Premium", TierPremium.String())
	assert.Equal(t, "Tier(5)", Tier(5).String())
	assert.False(t, Tier(5).Valid())
}

func TestTierJSON(t *testing.T) {
	data, err := json.Marshal(TierDefinition{Tier: TierPremium})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tier":"Premium"`)

	var def TierDefinition
	require.NoError(t, json.Unmarshal(data, &def))
	assert.Equal(t, TierPremium, def.Tier)

	_, err = json.Marshal(TierDefinition{Tier: Tier(9)})
	assert.Error(t, err)
}

func TestLoanOutstanding(t *testing.T) {
	loan := Loan{Installments: []ScheduledInstallment{
		{RepaymentInstallment: RepaymentInstallment{InstallmentNumber: 1, TotalAmount: 100}},
		{RepaymentInstallment: RepaymentInstallment{InstallmentNumber: 2, TotalAmount: 100}},
	}}
	assert.Equal(t, 200.0, loan.Outstanding())

	loan.Installments[0].PaidAt = &loan.CreatedAt
	assert.Equal(t, 100.0, loan.Outstanding())
}
