package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acolyte-hq/pipeline-cli/internal/report"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Pipeline summary and grouped breakdown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		leads, err := s.List(ctx, filter)
		if err != nil {
			return err
		}

		groupBy, _ := cmd.Flags().GetString("by")
		dim, err := report.ParseGroupBy(groupBy)
		if err != nil {
			return err
		}

		summary := report.Summarize(leads)
		fmt.Printf("Leads:             %d\n", summary.LeadCount)
		fmt.Printf("Total pipeline:    %s\n", report.INR(summary.TotalPipeline))
		fmt.Printf("Weighted pipeline: %s\n", report.INR(summary.WeightedPipeline))
		fmt.Printf("Avg deal size:     %s\n", report.INR(summary.AvgDealSize))
		fmt.Printf("Conversion rate:   %s\n", report.Percent(summary.ConversionRate))
		fmt.Println()

		buckets, err := report.Aggregate(leads, dim)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\tCOUNT\tTOTAL\tMEAN\tWEIGHTED\tDAYS IN STAGE\n", headerFor(dim))
		for _, b := range buckets {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%.1f\n",
				b.Key, b.Count, report.INR(b.TotalValue), report.INR(b.MeanValue),
				report.INR(b.WeightedValue), b.MeanDaysInStage)
		}
		return w.Flush()
	},
}

func headerFor(dim report.GroupBy) string {
	switch dim {
	case report.GroupByTerritory:
		return "TERRITORY"
	case report.GroupBySource:
		return "SOURCE"
	case report.GroupByMonth:
		return "MONTH"
	default:
		return "STAGE"
	}
}

func init() {
	f := pipelineCmd.Flags()
	f.String("by", "stage", "grouping: stage, territory, source, month")
	f.String("territory", "", "filter by territory")
	f.String("stage", "", "filter by stage")
	f.String("category", "", "filter by category")
	f.String("from", "", "first contact on or after (YYYY-MM-DD)")
	f.String("to", "", "first contact on or before (YYYY-MM-DD)")
	f.Int("limit", 0, "maximum leads to include")
	f.Int("offset", 0, "leads to skip")
	rootCmd.AddCommand(pipelineCmd)
}
