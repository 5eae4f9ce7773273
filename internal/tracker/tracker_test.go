package tracker

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

func newLead() *model.Lead {
	return &model.Lead{
		InstitutionName:     "St. Joseph College",
		Territory:           model.TerritoryBangaloreUrban,
		Category:            model.CategoryPremiumPrivate,
		CurrentStudentCount: 1200,
		PaymentPreference:   model.CycleAnnual,
		Probability:         30,
	}
}

func TestInitializeDefaults(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	l := newLead()

	require.NoError(t, Initialize(l, now))

	assert.Equal(t, model.StageNew, l.Stage)
	assert.Equal(t, now, l.FirstContact)
	assert.Equal(t, now, l.LastContact)
	assert.Equal(t, now, l.StageChangeDate)
	// 1200 students, Annual: 300 * 0.8 = 240/month.
	assert.InDelta(t, 240.0, l.StudentPriceMonthly, 1e-9)
	assert.InDelta(t, 240.0*12*1200, l.TotalDealValueAnnual, 1e-6)
	require.Len(t, l.ActivityLog, 1)
	assert.Equal(t, "Lead created", l.ActivityLog[0].Notes)
	assert.Nil(t, l.ActualClose)
}

func TestInitializeClosedLeadGetsCloseDate(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	l.Stage = model.StageClosedWon
	l.Probability = 100

	require.NoError(t, Initialize(l, now))
	require.NotNil(t, l.ActualClose)
	assert.Equal(t, now, *l.ActualClose)
}

func TestInitializeRejectsInvalid(t *testing.T) {
	l := newLead()
	l.Probability = 120
	err := Initialize(l, time.Now())
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestApplyUpdateEmptyIsNoop(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	before := *l
	require.NoError(t, ApplyUpdate(l, model.LeadUpdate{}, now.Add(time.Hour)))
	assert.Equal(t, before.UpdatedAt, l.UpdatedAt)
	assert.Len(t, l.ActivityLog, 1)
}

func TestApplyUpdateStageChange(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	updated := created.AddDate(0, 0, 7)
	l := newLead()
	require.NoError(t, Initialize(l, created))

	stage := model.StageQualified
	prob := 55
	require.NoError(t, ApplyUpdate(l, model.LeadUpdate{Stage: &stage, Probability: &prob}, updated))

	assert.Equal(t, model.StageQualified, l.Stage)
	assert.Equal(t, updated, l.StageChangeDate)
	assert.Equal(t, updated, l.LastContact)
	require.Len(t, l.ActivityLog, 2)
	entry := l.ActivityLog[0]
	assert.Equal(t, model.StageNew, entry.StageBefore)
	assert.Equal(t, model.StageQualified, entry.StageAfter)
	assert.Equal(t, 30, entry.ProbabilityBefore)
	assert.Equal(t, 55, entry.ProbabilityAfter)
	assert.Equal(t, "Lead updated: stage New -> Qualified, probability 30% -> 55%", entry.Notes)
}

func TestApplyUpdateClosingSetsActualClose(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	closed := created.AddDate(0, 1, 0)
	l := newLead()
	require.NoError(t, Initialize(l, created))

	stage := model.StageClosedWon
	prob := 100
	require.NoError(t, ApplyUpdate(l, model.LeadUpdate{Stage: &stage, Probability: &prob}, closed))

	require.NotNil(t, l.ActualClose)
	assert.Equal(t, closed, *l.ActualClose)
}

func TestApplyUpdateRepricesOnCountChange(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	count := 400
	require.NoError(t, ApplyUpdate(l, model.LeadUpdate{CurrentStudentCount: &count}, now.Add(time.Hour)))

	// 400 students, Annual: 750 * 0.8 = 600/month.
	assert.InDelta(t, 600.0, l.StudentPriceMonthly, 1e-9)
	assert.InDelta(t, 600.0*12*400, l.TotalDealValueAnnual, 1e-6)
	// No stage or probability delta: no synthetic entry.
	assert.Len(t, l.ActivityLog, 1)
}

func TestApplyUpdateNoRepriceWithoutPricingFields(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	monthlyBefore := l.StudentPriceMonthly
	notes := "updated notes"
	require.NoError(t, ApplyUpdate(l, model.LeadUpdate{Notes: &notes}, now.Add(time.Hour)))
	assert.Equal(t, monthlyBefore, l.StudentPriceMonthly)
}

func TestApplyUpdateRejectsInvalid(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	count := -10
	err := ApplyUpdate(l, model.LeadUpdate{CurrentStudentCount: &count}, now)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestApplyActivityProgressesLead(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, created))

	when := created.AddDate(0, 0, 3)
	entry := model.ActivityEntry{
		Timestamp:        when,
		Type:             model.ActivityMeeting,
		Notes:            "On-site meeting with trustees",
		StageAfter:       model.StageContacted,
		ProbabilityAfter: 40,
	}
	require.NoError(t, ApplyActivity(l, entry, when))

	assert.Equal(t, model.StageContacted, l.Stage)
	assert.Equal(t, 40, l.Probability)
	assert.Equal(t, when, l.LastContact)
	assert.Equal(t, when, l.StageChangeDate)
	require.Len(t, l.ActivityLog, 2)
	assert.Equal(t, model.ActivityMeeting, l.ActivityLog[0].Type)
}

func TestApplyActivityDefaultsTimestamp(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	later := now.Add(4 * time.Hour)
	require.NoError(t, ApplyActivity(l, model.ActivityEntry{Type: model.ActivityCall, ProbabilityAfter: 30}, later))
	assert.Equal(t, later, l.ActivityLog[0].Timestamp)
	assert.Equal(t, later, l.LastContact)
}

func TestApplyActivityNegativeProbabilityLeavesUnchanged(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	require.NoError(t, ApplyActivity(l, model.ActivityEntry{Type: model.ActivityEmail, ProbabilityAfter: -1}, now))
	assert.Equal(t, 30, l.Probability)
	assert.Equal(t, 30, l.ActivityLog[0].ProbabilityAfter)
}

func TestApplyActivityRejectsBadProbability(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	err := ApplyActivity(l, model.ActivityEntry{Type: model.ActivityCall, ProbabilityAfter: 130}, now)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestApplyActivityBackdatedKeepsLastContact(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	l := newLead()
	require.NoError(t, Initialize(l, now))

	// Recording an older call must not rewind the most recent contact.
	entry := model.ActivityEntry{
		Type:             model.ActivityCall,
		Notes:            "Intro call logged after the fact",
		Timestamp:        now.AddDate(0, 0, -10),
		ProbabilityAfter: -1,
	}
	require.NoError(t, ApplyActivity(l, entry, now))

	assert.Equal(t, now, l.LastContact)
	require.Len(t, l.ActivityLog, 2)
	assert.Equal(t, now.AddDate(0, 0, -10), l.ActivityLog[0].Timestamp)
	assert.GreaterOrEqual(t, DaysInStage(l), 0.0)
}

func TestDaysInStage(t *testing.T) {
	l := newLead()
	l.StageChangeDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l.LastContact = l.StageChangeDate.AddDate(0, 0, 12)
	assert.InDelta(t, 12.0, DaysInStage(l), 1e-9)
}

func TestDaysInStageFloorsAtZero(t *testing.T) {
	l := newLead()
	l.StageChangeDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l.LastContact = l.StageChangeDate.AddDate(0, 0, -3)
	assert.Equal(t, 0.0, DaysInStage(l))
}

func TestDaysSinceContact(t *testing.T) {
	l := newLead()
	l.LastContact = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	asOf := l.LastContact.AddDate(0, 0, 31)
	assert.Equal(t, 31, DaysSinceContact(l, asOf))
}
