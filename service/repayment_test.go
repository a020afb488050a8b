package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func TestCalculateRepaymentSchedule_LengthAndNumbering(t *testing.T) {
	for _, n := range []int{1, 3, 6, 12, 24} {
		schedule := CalculateRepaymentSchedule(12_345.67, 2.5, n)
		require.Len(t, schedule, n)
		for i, inst := range schedule {
			assert.Equal(t, i+1, inst.InstallmentNumber)
		}
	}
}

func TestCalculateRepaymentSchedule_PrincipalConserved(t *testing.T) {
	schedule := CalculateRepaymentSchedule(12_000, 2.5, 12)

	var sum float64
	for _, inst := range schedule {
		assert.InDelta(t, 1_000, inst.PrincipalAmount, tolerance)
		sum += inst.PrincipalAmount
	}
	assert.InDelta(t, 12_000, sum, tolerance)

	odd := CalculateRepaymentSchedule(10_000, 2.0, 7)
	sum = 0
	for _, inst := range odd {
		sum += inst.PrincipalAmount
	}
	assert.InDelta(t, 10_000, sum, 0.01)
}

func TestCalculateRepaymentSchedule_FlatPayment(t *testing.T) {
	schedule := CalculateRepaymentSchedule(7_777, 2.0, 9)
	first := schedule[0]
	for _, inst := range schedule[1:] {
		assert.Equal(t, first.TotalAmount, inst.TotalAmount)
		assert.Equal(t, first.InterestAmount, inst.InterestAmount)
	}
}

func TestCalculateRepaymentSchedule_LongerLoansCostMore(t *testing.T) {
	short := TotalInterest(CalculateRepaymentSchedule(10_000, 2.5, 3))
	long := TotalInterest(CalculateRepaymentSchedule(10_000, 2.5, 12))
	assert.Greater(t, long, short)
	assert.InDelta(t, 3_000, long, tolerance)
	assert.InDelta(t, 750, short, tolerance)
}

func TestCalculateRepaymentSchedule_SingleInstallment(t *testing.T) {
	schedule := CalculateRepaymentSchedule(10_000, 2.5, 1)
	require.Len(t, schedule, 1)
	assert.InDelta(t, 10_000, schedule[0].PrincipalAmount, tolerance)
	assert.InDelta(t, 250, schedule[0].InterestAmount, tolerance)
}

func TestCalculateRepaymentSchedule_ConcreteScenario(t *testing.T) {
	schedule := CalculateRepaymentSchedule(30_000, 2.5, 3)
	require.Len(t, schedule, 3)
	for _, inst := range schedule {
		assert.InDelta(t, 10_000, inst.PrincipalAmount, tolerance)
		assert.InDelta(t, 750, inst.InterestAmount, tolerance)
		assert.InDelta(t, 10_750, inst.TotalAmount, tolerance)
	}
}

func TestCalculateRepaymentSchedule_ZeroRate(t *testing.T) {
	schedule := CalculateRepaymentSchedule(1_200, 0, 12)
	for _, inst := range schedule {
		assert.Equal(t, 100.0, inst.TotalAmount)
		assert.Zero(t, inst.InterestAmount)
	}
}

func TestCalculateRepaymentSchedule_NonPositiveDurationIsEmpty(t *testing.T) {
	assert.Empty(t, CalculateRepaymentSchedule(1_000, 2.5, 0))
	assert.Empty(t, CalculateRepaymentSchedule(1_000, 2.5, -3))
}
