package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "List leads that need attention",
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

		th := report.RiskThresholds{
			StaleDays:         cfg.Risk.StaleDays,
			LowProbability:    cfg.Risk.LowProbability,
			LargeDealMultiple: cfg.Risk.LargeDealMultiple,
		}
		if v, _ := cmd.Flags().GetInt("stale-days"); cmd.Flags().Changed("stale-days") {
			th.StaleDays = v
		}

		flagged := report.EvaluateRisk(leads, th, time.Now().UTC())
		if len(flagged) == 0 {
			fmt.Println("No at-risk leads.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINSTITUTION\tSTAGE\tPROB\tVALUE\tREASONS")
		for _, ar := range flagged {
			reasons := make([]string, len(ar.Reasons))
			for i, r := range ar.Reasons {
				reasons[i] = string(r)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				ar.Lead.ID, ar.Lead.InstitutionName, ar.Lead.Stage, ar.Lead.Probability,
				report.INR(ar.Lead.Value()), strings.Join(reasons, ", "))
		}
		return w.Flush()
	},
}

func init() {
	riskCmd.Flags().Int("stale-days", 0, "aging threshold in days (default from config)")
	rootCmd.AddCommand(riskCmd)
}
