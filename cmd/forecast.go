package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Revenue forecast over a close-date horizon",
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

		horizon := forecastHorizon(cmd)
		now := time.Now().UTC()
		f, err := report.ComputeForecast(leads, horizon, now, forecastFactors(cfg.Forecast))
		if err != nil {
			return err
		}

		fmt.Printf("Horizon:        %d days (%d leads)\n", f.HorizonDays, f.LeadCount)
		fmt.Printf("Total pipeline: %s\n", report.INR(f.TotalPipeline))
		fmt.Printf("Conservative:   %s\n", report.INR(f.Conservative))
		fmt.Printf("Base:           %s\n", report.INR(f.Base))
		fmt.Printf("Optimistic:     %s\n", report.INR(f.Optimistic))

		months, err := report.ForecastByMonth(leads, horizon, now)
		if err != nil {
			return err
		}
		if len(months) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MONTH\tPOTENTIAL\tWEIGHTED")
		for _, m := range months {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Month, report.INR(m.TotalValue), report.INR(m.WeightedValue))
		}
		return w.Flush()
	},
}

var forecastScenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Compare forecast scenarios under adjusted assumptions",
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

		convAdj, _ := cmd.Flags().GetFloat64("conversion-adj")
		sizeAdj, _ := cmd.Flags().GetFloat64("deal-size-adj")

		rows := report.Scenario(leads, convAdj, sizeAdj)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCENARIO\tCONVERSION\tDEAL SIZE\tFORECAST")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				row.Name, report.Percent(row.ConversionRate*100),
				report.INR(row.DealSize), report.INR(row.ForecastValue))
		}
		return w.Flush()
	},
}

var forecastTerritoryCmd = &cobra.Command{
	Use:   "territory",
	Short: "Project next-period growth per territory",
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

		out, err := report.TerritoryProjection(leads, forecastHorizon(cmd), time.Now().UTC())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TERRITORY\tWEIGHTED\tPROJECTED")
		for _, tf := range out {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				tf.Territory, report.INR(tf.WeightedValue), report.INR(tf.GrowthProjection))
		}
		return w.Flush()
	},
}

func forecastHorizon(cmd *cobra.Command) int {
	if cmd.Flags().Changed("horizon") {
		h, _ := cmd.Flags().GetInt("horizon")
		return h
	}
	return cfg.Forecast.HorizonDays
}

func forecastFactors(fc config.ForecastConfig) report.Factors {
	f := report.DefaultFactors()
	if fc.ConservativeFactor > 0 {
		f.Conservative = fc.ConservativeFactor
	}
	if fc.OptimisticFactor > 0 {
		f.Optimistic = fc.OptimisticFactor
	}
	return f
}

func init() {
	forecastCmd.PersistentFlags().Int("horizon", 0, "forecast horizon in days (default from config)")
	forecastScenarioCmd.Flags().Float64("conversion-adj", 0, "conversion rate adjustment percent (-50 to 50)")
	forecastScenarioCmd.Flags().Float64("deal-size-adj", 0, "deal size adjustment percent (-50 to 50)")
	forecastCmd.AddCommand(forecastScenarioCmd, forecastTerritoryCmd)
	rootCmd.AddCommand(forecastCmd)
}
