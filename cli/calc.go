package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"coop-loans/domain"
	"coop-loans/service"
)

func init() {
	rootCmd.AddCommand(tierCmd)
	rootCmd.AddCommand(eligibilityCmd)
	rootCmd.AddCommand(scheduleCmd)

	for _, c := range []*cobra.Command{tierCmd, eligibilityCmd, scheduleCmd} {
		c.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
	}

	eligibilityCmd.Flags().Float64("contribution", 0, "Cumulative contribution of the member")
	eligibilityCmd.Flags().Float64("amount", 0, "Requested loan amount")
	eligibilityCmd.Flags().Bool("active-loan", false, "Member already has an active loan")
	_ = eligibilityCmd.MarkFlagRequired("contribution")
	_ = eligibilityCmd.MarkFlagRequired("amount")

	scheduleCmd.Flags().Float64("principal", 0, "Loan principal")
	scheduleCmd.Flags().Float64("rate", 0, "Monthly interest rate in percent (defaults to the tier rate)")
	scheduleCmd.Flags().String("tier", "", "Tier whose rate and duration cap apply")
	scheduleCmd.Flags().Int("months", 0, "Number of monthly installments")
	_ = scheduleCmd.MarkFlagRequired("principal")
	_ = scheduleCmd.MarkFlagRequired("months")
}

// ─── tier ───────────────────────────────────────────────────────────────────

var tierCmd = &cobra.Command{
	Use:   "tier [CONTRIBUTION]",
	Short: "Show the tier table, or classify a contribution",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTier,
}

type tierClassification struct {
	Contribution  float64               `json:"contribution" yaml:"contribution"`
	Tier          domain.Tier           `json:"tier" yaml:"tier"`
	MaxLoanAmount float64               `json:"max_loan_amount" yaml:"max_loan_amount"`
	Definition    domain.TierDefinition `json:"definition" yaml:"definition"`
}

func runTier(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		tiers := service.Tiers()
		return render(out, format, tiers, func(w io.Writer) {
			fmt.Fprintln(w, "TIER\tMIN CONTRIBUTION\tMULTIPLIER\tMONTHLY RATE\tMAX MONTHS")
			for _, t := range tiers {
				fmt.Fprintf(w, "%s\t%.2f\t%dx\t%.2f%%\t%d\n",
					t.Tier, t.MinContribution, t.MaxLoanMultiplier, t.MonthlyInterestRate, t.MaxDurationMonths)
			}
		})
	}

	contribution, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("contribution %q is not a number", args[0])
	}
	if err := service.RequireFinite("contribution", contribution); err != nil {
		return err
	}
	tier := service.CalculateUserTier(contribution)
	result := tierClassification{
		Contribution:  contribution,
		Tier:          tier,
		MaxLoanAmount: service.MaxLoanFor(contribution),
		Definition:    service.TierDefinition(tier),
	}
	return render(out, format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Contribution:\t%.2f\n", result.Contribution)
		fmt.Fprintf(w, "Tier:\t%s\n", result.Tier)
		fmt.Fprintf(w, "Monthly rate:\t%.2f%%\n", result.Definition.MonthlyInterestRate)
		fmt.Fprintf(w, "Max duration:\t%d months\n", result.Definition.MaxDurationMonths)
		fmt.Fprintf(w, "Max loan:\t%.2f\n", result.MaxLoanAmount)
	})
}

// ─── eligibility ────────────────────────────────────────────────────────────

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Check whether a loan request passes the cooperative rules",
	Args:  cobra.NoArgs,
	RunE:  runEligibility,
}

func runEligibility(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	contribution, _ := cmd.Flags().GetFloat64("contribution")
	amount, _ := cmd.Flags().GetFloat64("amount")
	active, _ := cmd.Flags().GetBool("active-loan")
	if err := service.RequireFinite("--contribution", contribution); err != nil {
		return err
	}
	if err := service.RequireFinite("--amount", amount); err != nil {
		return err
	}

	result := service.IsEligibleForLoan(contribution, amount, active)
	return render(cmd.OutOrStdout(), format, result, func(w io.Writer) {
		if result.Eligible {
			fmt.Fprintln(w, "Eligible:\tyes")
			return
		}
		fmt.Fprintln(w, "Eligible:\tno")
		fmt.Fprintf(w, "Reason:\t%s\n", result.Reason)
	})
}

// ─── schedule ───────────────────────────────────────────────────────────────

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print a flat simple-interest repayment schedule",
	Long: `Print a repayment schedule. With --tier the tier's monthly rate is used
unless --rate is given, and --months is checked against the tier's cap.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	principal, _ := cmd.Flags().GetFloat64("principal")
	rate, _ := cmd.Flags().GetFloat64("rate")
	tierName, _ := cmd.Flags().GetString("tier")
	months, _ := cmd.Flags().GetInt("months")

	if !(principal > 0) || math.IsInf(principal, 1) {
		return fmt.Errorf("%w: --principal must be positive", domain.ErrInvalidAmount)
	}
	if months < 1 {
		return fmt.Errorf("%w: --months must be at least 1", domain.ErrInvalidDuration)
	}

	if tierName != "" {
		tier, err := domain.ParseTier(tierName)
		if err != nil {
			return err
		}
		if maxMonths := service.TierMaxDuration(tier); months > maxMonths {
			return fmt.Errorf("%w: %s tier allows at most %d months", domain.ErrInvalidDuration, tier, maxMonths)
		}
		if !cmd.Flags().Changed("rate") {
			rate = service.TierInterestRate(tier)
		}
	} else if !cmd.Flags().Changed("rate") {
		return fmt.Errorf("either --rate or --tier is required")
	}

	if err := service.RequireFinite("--rate", rate); err != nil {
		return err
	}

	schedule := service.CalculateRepaymentSchedule(principal, rate, months)
	return render(cmd.OutOrStdout(), format, schedule, func(w io.Writer) {
		fmt.Fprintln(w, "#\tPRINCIPAL\tINTEREST\tTOTAL")
		var total float64
		for _, inst := range schedule {
			fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\n",
				inst.InstallmentNumber, inst.PrincipalAmount, inst.InterestAmount, inst.TotalAmount)
			total += inst.TotalAmount
		}
		fmt.Fprintf(w, "\t\tTOTAL INTEREST %.2f\tREPAY %.2f\n", service.TotalInterest(schedule), total)
	})
}
