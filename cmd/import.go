package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

var (
	importCSVPath     string
	importConcurrency int
)

var leadImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import leads from CSV",
	Long: `Imports leads from a CSV file with a header row. Recognized columns:
institution_name, institution_type, ownership, category, territory,
lead_source, lead_owner, city, current_student_count, max_student_capacity,
payment_preference, stage, probability, contact_name, contact_email,
contact_phone, first_contact_date, expected_close_date (dates YYYY-MM-DD).

Rows are validated and created concurrently; a bad row is reported and
skipped without aborting the import.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		created, failed, err := importLeadsCSV(ctx, s, importCSVPath, importConcurrency)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("csv", importCSVPath),
			zap.Int64("created", created),
			zap.Int64("failed", failed),
		)
		return nil
	},
}

func init() {
	leadImportCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	leadImportCmd.Flags().IntVar(&importConcurrency, "concurrency", 4, "concurrent row imports")
	_ = leadImportCmd.MarkFlagRequired("csv")
	leadCmd.AddCommand(leadImportCmd)
}

// importLeadsCSV streams rows from the CSV at path into the store. Row
// failures are counted, logged, and skipped.
func importLeadsCSV(ctx context.Context, s store.Store, path string, concurrency int) (created, failed int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "import: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, 0, eris.Wrap(err, "import: read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := cols["institution_name"]; !ok {
		return 0, 0, eris.New("import: missing institution_name column")
	}

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var createdN, failedN atomic.Int64
	line := 1
	for {
		record, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return createdN.Load(), failedN.Load(), eris.Wrap(readErr, "import: read row")
		}
		line++
		row := line

		g.Go(func() error {
			log := zap.L().With(zap.Int("row", row))

			l, parseErr := leadFromRecord(cols, record)
			if parseErr != nil {
				failedN.Add(1)
				log.Error("row rejected", zap.Error(parseErr))
				return nil
			}
			if _, createErr := s.Create(gctx, l); createErr != nil {
				failedN.Add(1)
				log.Error("row rejected", zap.Error(createErr))
				return nil
			}
			createdN.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return createdN.Load(), failedN.Load(), eris.Wrap(err, "import: process rows")
	}
	return createdN.Load(), failedN.Load(), nil
}

func leadFromRecord(cols map[string]int, record []string) (*model.Lead, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	l := &model.Lead{
		InstitutionName:   get("institution_name"),
		InstitutionType:   model.InstitutionType(get("institution_type")),
		Ownership:         model.Ownership(get("ownership")),
		Category:          model.Category(get("category")),
		Territory:         model.Territory(get("territory")),
		LeadSource:        model.LeadSource(get("lead_source")),
		LeadOwner:         get("lead_owner"),
		City:              get("city"),
		PaymentPreference: model.PaymentCycle(get("payment_preference")),
		Stage:             model.Stage(get("stage")),
	}
	l.PrimaryContact.Name = get("contact_name")
	l.PrimaryContact.Email = get("contact_email")
	l.PrimaryContact.Phone = get("contact_phone")

	if raw := get("current_student_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: parse current_student_count")
		}
		l.CurrentStudentCount = n
	}
	if raw := get("max_student_capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: parse max_student_capacity")
		}
		l.MaxStudentCapacity = n
	}
	if raw := get("probability"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: parse probability")
		}
		l.Probability = n
	}
	if raw := get("first_contact_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: parse first_contact_date")
		}
		l.FirstContact = t
	}
	if raw := get("expected_close_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: parse expected_close_date")
		}
		l.ExpectedClose = &t
	}
	return l, nil
}
