package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the pipeline to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")

		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		leads, err := s.List(ctx, store.ListFilter{})
		if err != nil {
			return err
		}

		fc, err := report.ComputeForecast(leads, forecastHorizon(cmd), time.Now(), forecastFactors(cfg.Forecast))
		if err != nil {
			return err
		}

		if err := report.WriteWorkbook(out, leads, fc); err != nil {
			return err
		}
		zap.L().Info("exported pipeline workbook", zap.String("path", out), zap.Int("leads", len(leads)))
		fmt.Printf("Wrote %d leads to %s\n", len(leads), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "pipeline.xlsx", "output workbook path")
	exportCmd.Flags().Int("horizon", 0, "forecast horizon in days for the forecast sheet")
	rootCmd.AddCommand(exportCmd)
}
