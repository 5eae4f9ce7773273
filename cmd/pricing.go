package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/pricing"
	"github.com/acolyte-hq/pipeline-cli/internal/report"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Price contracts and analyze ROI",
}

var pricingQuoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a tiered multi-year contract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		students, _ := f.GetInt("students")
		category, _ := f.GetString("category")
		cycle, _ := f.GetString("cycle")
		years, _ := f.GetInt("years")
		custom, _ := f.GetFloat64("discount")

		q, err := pricing.Compute(pricing.QuoteInput{
			StudentCount:      students,
			Category:          model.CapacityCategory(category),
			Cycle:             model.PaymentCycle(cycle),
			CommitmentYears:   years,
			CustomDiscountPct: custom,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Base price:      %s/student/month\n", report.INR(q.BasePricePerStudent))
		fmt.Printf("Cycle discount:  %s\n", report.Percent(q.CycleDiscountPct))
		fmt.Printf("Commitment:      %s\n", report.Percent(q.CommitmentDiscountPct))
		fmt.Printf("Total discount:  %s (capped at 40%%)\n", report.Percent(q.TotalDiscountPct))
		if q.CustomDiscountPct > 0 {
			fmt.Printf("Custom discount: %s\n", report.Percent(q.CustomDiscountPct))
		}
		fmt.Printf("Final price:     %s/student/month", report.INR(q.FinalPricePerStudent))
		fmt.Printf("  [approval: %s]\n", pricing.Approval(q.FinalPricePerStudent, q.BasePricePerStudent))
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "YEAR\tANNUAL VALUE\tPER PAYMENT\tMONTHLY EQUIV")
		for _, y := range q.YearlyValues {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				y.Year, report.INR(y.AnnualValue), report.INR(y.PaymentAmount), report.INR(y.MonthlyEquivalent))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nTotal contract value: %s\n", report.INR(q.TotalContractValue))
		return nil
	},
}

var pricingROICmd = &cobra.Command{
	Use:   "roi",
	Short: "Estimate customer ROI for a contract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		students, _ := f.GetInt("students")
		hours, _ := f.GetInt("hours-saved")
		hourly, _ := f.GetFloat64("hourly-value")
		investment, _ := f.GetFloat64("investment")

		r := pricing.ROI(students, hours, hourly, investment)

		fmt.Printf("Monthly savings: %s\n", report.INR(r.MonthlySavings))
		fmt.Printf("Annual savings:  %s\n", report.INR(r.AnnualSavings))
		fmt.Printf("ROI:             %s\n", report.Percent(r.ROIPct))
		fmt.Printf("Payback:         %.1f months\n", r.PaybackMonths)
		return nil
	},
}

func init() {
	q := pricingQuoteCmd.Flags()
	q.Int("students", 0, "student count (required)")
	q.String("category", string(model.HigherCapacity), "capacity category: Higher Capacity, Limited Capacity")
	q.String("cycle", string(model.CycleAnnual), "payment cycle: Monthly, Quarterly, Annual")
	q.Int("years", 1, "commitment years (1-5)")
	q.Float64("discount", 0, "custom discount percent (0-20)")
	_ = pricingQuoteCmd.MarkFlagRequired("students")

	r := pricingROICmd.Flags()
	r.Int("students", 0, "student count (required)")
	r.Int("hours-saved", 2, "admin hours saved per student per month")
	r.Float64("hourly-value", 500, "value of one admin hour")
	r.Float64("investment", 0, "total contract investment (required)")
	_ = pricingROICmd.MarkFlagRequired("students")
	_ = pricingROICmd.MarkFlagRequired("investment")

	pricingCmd.AddCommand(pricingQuoteCmd, pricingROICmd)
	rootCmd.AddCommand(pricingCmd)
}
