package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	s := &PostgresStore{
		pool: mock,
		now:  func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return s, mock
}

func pgTestLead() *model.Lead {
	return &model.Lead{
		InstitutionName:     "Vidya Mandir School",
		PrimaryContact:      model.Contact{Name: "R. Iyer", Phone: "9876543210"},
		Territory:           model.TerritoryBangaloreUrban,
		Category:            model.CategoryPremiumPrivate,
		CurrentStudentCount: 800,
		PaymentPreference:   model.CycleAnnual,
		Probability:         50,
		FirstContact:        time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestPostgresCreate(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), "Bangalore Urban", "New", "Premium Private",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := s.Create(context.Background(), pgTestLead())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StageNew, created.Stage)
	assert.Greater(t, created.TotalDealValueAnnual, 0.0)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	lead := pgTestLead()
	lead.ID = "lead-1"
	doc, err := json.Marshal(lead)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.Get(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Vidya Mandir School", got.InstitutionName)
	assert.Equal(t, 800, got.CurrentStudentCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	lead := pgTestLead()
	lead.ID = "lead-1"
	lead.Stage = model.StageNew
	lead.StageChangeDate = lead.FirstContact
	doc, err := json.Marshal(lead)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs("Bangalore Urban", "Qualified", "Premium Private",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stage := model.StageQualified
	prob := 60
	updated, err := s.Update(context.Background(), "lead-1", model.LeadUpdate{Stage: &stage, Probability: &prob})
	require.NoError(t, err)
	assert.Equal(t, model.StageQualified, updated.Stage)
	assert.Equal(t, 60, updated.Probability)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSaveMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	lead := pgTestLead()
	lead.ID = "lead-1"
	doc, err := json.Marshal(lead)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	prob := 70
	_, err = s.Update(context.Background(), "lead-1", model.LeadUpdate{Probability: &prob})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestPostgresConcurrentAppendActivitySerialized(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	// The clock runs between each mutation's read and write; the sleep
	// widens that window. Expectations are matched in order, so interleaved
	// get/get/save/save sequences from unserialized calls fail the mock.
	s.now = func() time.Time {
		time.Sleep(10 * time.Millisecond)
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	lead := pgTestLead()
	lead.ID = "lead-1"
	lead.Stage = model.StageNew
	lead.StageChangeDate = lead.FirstContact
	doc, err := json.Marshal(lead)
	require.NoError(t, err)

	after := *lead
	after.ActivityLog = []model.ActivityEntry{{Type: model.ActivityCall, ProbabilityAfter: lead.Probability}}
	docAfter, err := json.Marshal(&after)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT doc FROM leads WHERE id`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(docAfter))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	type result struct {
		entries int
		err     error
	}
	var wg sync.WaitGroup
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.AppendActivity(context.Background(), "lead-1", model.ActivityEntry{
				Type:             model.ActivityCall,
				ProbabilityAfter: -1,
			})
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{entries: len(got.ActivityLog)}
		}()
	}
	wg.Wait()
	close(results)

	var lens []int
	for r := range results {
		require.NoError(t, r.err)
		lens = append(lens, r.entries)
	}
	// The second call must observe the first call's appended entry.
	assert.ElementsMatch(t, []int{1, 2}, lens)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	s, mock := newMockStore(t)
	defer mock.Close()

	a := pgTestLead()
	a.ID = "lead-a"
	b := pgTestLead()
	b.ID = "lead-b"
	b.InstitutionName = "National Public School"
	docA, _ := json.Marshal(a)
	docB, _ := json.Marshal(b)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE 1=1 AND territory = \$1 AND stage = \$2 ORDER BY`).
		WithArgs("Bangalore Urban", "New").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(docA).AddRow(docB))

	leads, err := s.List(context.Background(), ListFilter{
		Territory: model.TerritoryBangaloreUrban,
		Stage:     model.StageNew,
	})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "lead-a", leads[0].ID)
	assert.Equal(t, "National Public School", leads[1].InstitutionName)
	require.NoError(t, mock.ExpectationsWereMet())
}
