package store

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

func memTestLead(name string) *model.Lead {
	return &model.Lead{
		InstitutionName:     name,
		PrimaryContact:      model.Contact{Name: "S. Rao", Phone: "9000000001"},
		Territory:           model.TerritoryBangaloreUrban,
		Category:            model.CategoryMidTierPrivate,
		CurrentStudentCount: 600,
		PaymentPreference:   model.CycleAnnual,
		Probability:         40,
		FirstContact:        time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryCreateDerivesFields(t *testing.T) {
	s := NewMemory()
	s.SetClock(func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) })

	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StageNew, created.Stage)
	// 600 students, Annual: 450/month with 20% cycle discount.
	assert.InDelta(t, 360.0, created.StudentPriceMonthly, 1e-9)
	assert.InDelta(t, 360.0*12*600, created.TotalDealValueAnnual, 1e-6)
	require.Len(t, created.ActivityLog, 1)
	assert.Equal(t, "Lead created", created.ActivityLog[0].Notes)
}

func TestMemoryCreateRejectsInvalid(t *testing.T) {
	s := NewMemory()
	bad := memTestLead("")
	_, err := s.Create(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestMemoryGetNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestMemoryUpdateStageTransition(t *testing.T) {
	s := NewMemory()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	stage := model.StageDemo
	prob := 65
	updated, err := s.Update(context.Background(), created.ID, model.LeadUpdate{Stage: &stage, Probability: &prob})
	require.NoError(t, err)

	assert.Equal(t, model.StageDemo, updated.Stage)
	assert.Equal(t, now, updated.StageChangeDate)
	assert.Equal(t, now, updated.LastContact)
	require.Len(t, updated.ActivityLog, 2)
	assert.Contains(t, updated.ActivityLog[0].Notes, "New -> Demo")
}

func TestMemoryUpdateInvalidLeavesStoredIntact(t *testing.T) {
	s := NewMemory()
	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	prob := 150
	_, err = s.Update(context.Background(), created.ID, model.LeadUpdate{Probability: &prob})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Probability)
}

func TestMemoryUpdateRecomputesDealValue(t *testing.T) {
	s := NewMemory()
	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	count := 1200
	updated, err := s.Update(context.Background(), created.ID, model.LeadUpdate{CurrentStudentCount: &count})
	require.NoError(t, err)

	// 1200 students, Annual: 300/month with 20% cycle discount.
	assert.InDelta(t, 240.0, updated.StudentPriceMonthly, 1e-9)
	assert.InDelta(t, 240.0*12*1200, updated.TotalDealValueAnnual, 1e-6)
}

func TestMemoryAppendActivity(t *testing.T) {
	s := NewMemory()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	when := now.Add(72 * time.Hour)
	updated, err := s.AppendActivity(context.Background(), created.ID, model.ActivityEntry{
		Timestamp:        when,
		Type:             model.ActivityDemo,
		Notes:            "Product demo for principal",
		StageAfter:       model.StageDemo,
		ProbabilityAfter: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StageDemo, updated.Stage)
	assert.Equal(t, 60, updated.Probability)
	assert.Equal(t, when, updated.LastContact)
	require.Len(t, updated.ActivityLog, 2)
	assert.Equal(t, model.ActivityDemo, updated.ActivityLog[0].Type)
	assert.Equal(t, model.StageNew, updated.ActivityLog[0].StageBefore)
}

func TestMemoryAppendActivityRequiresType(t *testing.T) {
	s := NewMemory()
	created, err := s.Create(context.Background(), memTestLead("Sunrise Academy"))
	require.NoError(t, err)

	_, err = s.AppendActivity(context.Background(), created.ID, model.ActivityEntry{Notes: "no type"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestMemoryListFilters(t *testing.T) {
	s := NewMemory()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})

	a := memTestLead("Alpha School")
	b := memTestLead("Beta College")
	b.Territory = model.TerritoryMangalore
	c := memTestLead("Gamma Institute")
	c.FirstContact = time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	for _, l := range []*model.Lead{a, b, c} {
		_, err := s.Create(context.Background(), l)
		require.NoError(t, err)
	}

	all, err := s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "Gamma Institute", all[0].InstitutionName)

	urban, err := s.List(context.Background(), ListFilter{Territory: model.TerritoryBangaloreUrban})
	require.NoError(t, err)
	assert.Len(t, urban, 2)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	recent, err := s.List(context.Background(), ListFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := s.List(context.Background(), ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Beta College", page[0].InstitutionName)
}
