package service

import "coop-loans/domain"

// CalculateRepaymentSchedule splits a simple-interest loan into equal
// monthly installments. Interest is charged on the original principal every
// month, so each installment carries the same principal, interest and total.
// durationMonths must be positive; otherwise the schedule is empty.
func CalculateRepaymentSchedule(
	principal float64,
	monthlyRatePercent float64,
	durationMonths int,
) []domain.RepaymentInstallment {

	if durationMonths <= 0 {
		return nil
	}

	n := float64(durationMonths)
	totalInterest := principal * (monthlyRatePercent / 100) * n
	perPrincipal := principal / n
	perInterest := totalInterest / n

	schedule := make([]domain.RepaymentInstallment, 0, durationMonths)
	for i := 1; i <= durationMonths; i++ {
		schedule = append(schedule, domain.RepaymentInstallment{
			InstallmentNumber: i,
			PrincipalAmount:   perPrincipal,
			InterestAmount:    perInterest,
			TotalAmount:       perPrincipal + perInterest,
		})
	}
	return schedule
}

// TotalInterest sums the interest column of a schedule.
func TotalInterest(schedule []domain.RepaymentInstallment) float64 {
	var total float64
	for _, inst := range schedule {
		total += inst.InterestAmount
	}
	return total
}

func totalRepayment(schedule []domain.RepaymentInstallment) float64 {
	var total float64
	for _, inst := range schedule {
		total += inst.TotalAmount
	}
	return total
}
