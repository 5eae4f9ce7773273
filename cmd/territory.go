package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var territoryCmd = &cobra.Command{
	Use:   "territory",
	Short: "Territory analytics for the expansion plan",
}

var territoryOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Pipeline metrics and performance score per territory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		leads, err := s.List(ctx, store.ListFilter{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TERRITORY\tLEADS\tPIPELINE\tAVG DEAL\tAVG PROB\tSCORE")
		for _, m := range report.TerritoryOverview(leads) {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%.1f\n",
				m.Territory, m.LeadCount, report.INR(m.TotalPipeline),
				report.INR(m.AvgDealSize), report.Percent(m.AvgProbability), m.PerformanceScore)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TERRITORY\tCONVERSION\tWIN RATE\tAVG CYCLE\tACTIVE")
		for _, k := range report.TerritoryPerformance(leads) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f days\t%d\n",
				k.Territory, report.Percent(k.ConversionRate), report.Percent(k.WinRate),
				k.AvgSalesCycleDays, k.ActiveOpportunities)
		}
		return w.Flush()
	},
}

var territoryExpansionCmd = &cobra.Command{
	Use:   "expansion",
	Short: "Progress against territory expansion targets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		leads, err := s.List(ctx, store.ListFilter{})
		if err != nil {
			return err
		}

		targets, err := config.LoadExpansionTargets(cfg.Territory)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TERRITORY\tINSTITUTIONS\tSTUDENTS\tINST COVERAGE\tSTUDENT COVERAGE\tPRIORITY")
		for _, st := range report.ExpansionTracking(leads, targets) {
			fmt.Fprintf(w, "%s\t%d/%d\t%d/%d\t%s\t%s\t%s\n",
				st.Territory,
				st.CurrentInstitutions, st.TargetInstitutions,
				st.CurrentStudents, st.TargetStudents,
				report.Percent(st.InstitutionCoverage), report.Percent(st.StudentCoverage),
				st.Priority)
		}
		return w.Flush()
	},
}

func init() {
	territoryCmd.AddCommand(territoryOverviewCmd, territoryExpansionCmd)
	rootCmd.AddCommand(territoryCmd)
}
