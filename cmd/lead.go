package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/report"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Manage sales leads",
}

var leadAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Capture a new lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		l, err := leadFromFlags(cmd)
		if err != nil {
			return err
		}

		created, err := s.Create(ctx, l)
		if err != nil {
			return err
		}

		zap.L().Info("lead created",
			zap.String("id", created.ID),
			zap.String("institution", created.InstitutionName),
		)
		return printJSON(created)
	},
}

var leadGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		l, err := s.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(l)
	},
}

var leadListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
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

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINSTITUTION\tTERRITORY\tSTAGE\tPROB\tVALUE")
		for i := range leads {
			l := &leads[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
				l.ID, l.InstitutionName, l.Territory, l.Stage, l.Probability, report.INR(l.Value()))
		}
		return w.Flush()
	},
}

var leadUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Apply a partial update to a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		upd, err := updateFromFlags(cmd)
		if err != nil {
			return err
		}

		l, err := s.Update(ctx, args[0], upd)
		if err != nil {
			return err
		}

		zap.L().Info("lead updated", zap.String("id", l.ID), zap.String("stage", string(l.Stage)))
		return printJSON(l)
	},
}

var leadActivityCmd = &cobra.Command{
	Use:   "activity <id>",
	Short: "Log an activity against a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		entry, err := activityFromFlags(cmd)
		if err != nil {
			return err
		}

		l, err := s.AppendActivity(ctx, args[0], entry)
		if err != nil {
			return err
		}

		zap.L().Info("activity logged",
			zap.String("id", l.ID),
			zap.String("type", string(entry.Type)),
		)
		return printJSON(l)
	},
}

func init() {
	addLeadFieldFlags(leadAddCmd)
	_ = leadAddCmd.MarkFlagRequired("name")

	f := leadListCmd.Flags()
	f.String("territory", "", "filter by territory")
	f.String("stage", "", "filter by stage")
	f.String("category", "", "filter by category")
	f.String("from", "", "first contact on or after (YYYY-MM-DD)")
	f.String("to", "", "first contact on or before (YYYY-MM-DD)")
	f.Int("limit", 0, "maximum leads to return")
	f.Int("offset", 0, "leads to skip")

	addLeadFieldFlags(leadUpdateCmd)

	a := leadActivityCmd.Flags()
	a.String("type", "", "activity type: Call, Email, Meeting, Demo, Proposal, Update, Other (required)")
	a.String("notes", "", "free-form notes")
	a.String("stage", "", "move the lead to this stage")
	a.Int("probability", -1, "set the close probability")
	a.String("at", "", "activity timestamp (RFC3339, default now)")
	_ = leadActivityCmd.MarkFlagRequired("type")

	leadCmd.AddCommand(leadAddCmd, leadGetCmd, leadListCmd, leadUpdateCmd, leadActivityCmd)
	rootCmd.AddCommand(leadCmd)
}

// addLeadFieldFlags registers the lead field flags shared by add and update.
func addLeadFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "institution name")
	f.String("type", "", "institution type: Medical College, Dental College, Other")
	f.String("ownership", "", "ownership: Private, Government, Society")
	f.String("category", "", "category: Premium Private, Mid-tier Private, Budget Private, Government")
	f.String("territory", "", "sales territory")
	f.String("source", "", "lead source")
	f.String("owner", "", "lead owner")
	f.String("city", "", "city")
	f.Int("students", -1, "current student count")
	f.Int("capacity", -1, "maximum student capacity")
	f.String("cycle", "", "payment preference: Monthly, Quarterly, Annual")
	f.String("stage", "", "funnel stage")
	f.Int("probability", -1, "close probability (0-100)")
	f.String("contact-name", "", "primary contact name")
	f.String("contact-role", "", "primary contact role")
	f.String("contact-email", "", "primary contact email")
	f.String("contact-phone", "", "primary contact phone")
	f.String("expected-close", "", "expected close date (YYYY-MM-DD)")
	f.String("notes", "", "notes")
}

func leadFromFlags(cmd *cobra.Command) (*model.Lead, error) {
	f := cmd.Flags()
	l := &model.Lead{}

	l.InstitutionName, _ = f.GetString("name")
	typ, _ := f.GetString("type")
	l.InstitutionType = model.InstitutionType(typ)
	own, _ := f.GetString("ownership")
	l.Ownership = model.Ownership(own)
	cat, _ := f.GetString("category")
	l.Category = model.Category(cat)
	terr, _ := f.GetString("territory")
	l.Territory = model.Territory(terr)
	src, _ := f.GetString("source")
	l.LeadSource = model.LeadSource(src)
	l.LeadOwner, _ = f.GetString("owner")
	l.City, _ = f.GetString("city")
	if n, _ := f.GetInt("students"); n >= 0 {
		l.CurrentStudentCount = n
	}
	if n, _ := f.GetInt("capacity"); n >= 0 {
		l.MaxStudentCapacity = n
	}
	cycle, _ := f.GetString("cycle")
	l.PaymentPreference = model.PaymentCycle(cycle)
	stage, _ := f.GetString("stage")
	l.Stage = model.Stage(stage)
	if p, _ := f.GetInt("probability"); p >= 0 {
		l.Probability = p
	}
	l.PrimaryContact.Name, _ = f.GetString("contact-name")
	l.PrimaryContact.Role, _ = f.GetString("contact-role")
	l.PrimaryContact.Email, _ = f.GetString("contact-email")
	l.PrimaryContact.Phone, _ = f.GetString("contact-phone")
	l.Notes, _ = f.GetString("notes")

	if raw, _ := f.GetString("expected-close"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, eris.Wrap(err, "lead: parse --expected-close")
		}
		l.ExpectedClose = &t
	}
	return l, nil
}

func updateFromFlags(cmd *cobra.Command) (model.LeadUpdate, error) {
	f := cmd.Flags()
	var upd model.LeadUpdate

	if f.Changed("name") {
		v, _ := f.GetString("name")
		upd.InstitutionName = &v
	}
	if f.Changed("type") {
		v, _ := f.GetString("type")
		t := model.InstitutionType(v)
		upd.InstitutionType = &t
	}
	if f.Changed("ownership") {
		v, _ := f.GetString("ownership")
		o := model.Ownership(v)
		upd.Ownership = &o
	}
	if f.Changed("category") {
		v, _ := f.GetString("category")
		c := model.Category(v)
		upd.Category = &c
	}
	if f.Changed("territory") {
		v, _ := f.GetString("territory")
		t := model.Territory(v)
		upd.Territory = &t
	}
	if f.Changed("source") {
		v, _ := f.GetString("source")
		s := model.LeadSource(v)
		upd.LeadSource = &s
	}
	if f.Changed("owner") {
		v, _ := f.GetString("owner")
		upd.LeadOwner = &v
	}
	if f.Changed("city") {
		v, _ := f.GetString("city")
		upd.City = &v
	}
	if f.Changed("students") {
		v, _ := f.GetInt("students")
		upd.CurrentStudentCount = &v
	}
	if f.Changed("capacity") {
		v, _ := f.GetInt("capacity")
		upd.MaxStudentCapacity = &v
	}
	if f.Changed("cycle") {
		v, _ := f.GetString("cycle")
		c := model.PaymentCycle(v)
		upd.PaymentPreference = &c
	}
	if f.Changed("stage") {
		v, _ := f.GetString("stage")
		s := model.Stage(v)
		upd.Stage = &s
	}
	if f.Changed("probability") {
		v, _ := f.GetInt("probability")
		upd.Probability = &v
	}
	if f.Changed("notes") {
		v, _ := f.GetString("notes")
		upd.Notes = &v
	}
	if f.Changed("expected-close") {
		raw, _ := f.GetString("expected-close")
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return upd, eris.Wrap(err, "lead: parse --expected-close")
		}
		upd.ExpectedClose = &t
	}
	return upd, nil
}

func activityFromFlags(cmd *cobra.Command) (model.ActivityEntry, error) {
	f := cmd.Flags()
	var entry model.ActivityEntry

	typ, _ := f.GetString("type")
	entry.Type = model.ActivityType(typ)
	entry.Notes, _ = f.GetString("notes")
	if stage, _ := f.GetString("stage"); stage != "" {
		entry.StageAfter = model.Stage(stage)
	}
	entry.ProbabilityAfter, _ = f.GetInt("probability")
	if raw, _ := f.GetString("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entry, eris.Wrap(err, "lead: parse --at")
		}
		entry.Timestamp = t
	}
	return entry, nil
}

func filterFromFlags(cmd *cobra.Command) (store.ListFilter, error) {
	f := cmd.Flags()
	var filter store.ListFilter

	terr, _ := f.GetString("territory")
	filter.Territory = model.Territory(terr)
	stage, _ := f.GetString("stage")
	filter.Stage = model.Stage(stage)
	cat, _ := f.GetString("category")
	filter.Category = model.Category(cat)
	filter.Limit, _ = f.GetInt("limit")
	filter.Offset, _ = f.GetInt("offset")

	if raw, _ := f.GetString("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, eris.Wrap(err, "lead: parse --from")
		}
		filter.From = &t
	}
	if raw, _ := f.GetString("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, eris.Wrap(err, "lead: parse --to")
		}
		filter.To = &t
	}
	return filter, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
