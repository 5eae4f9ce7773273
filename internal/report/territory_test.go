package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

func TestTerritoryOverviewScores(t *testing.T) {
	a := reportLead(1000, 80, model.StageDemo)
	b := reportLead(1000, 80, model.StageDemo)
	c := reportLead(500, 40, model.StageNew)
	c.Territory = model.TerritoryNorthKarnataka

	out := TerritoryOverview([]model.Lead{a, b, c})
	require.Len(t, out, 2)

	urban := out[0]
	require.Equal(t, model.TerritoryBangaloreUrban, urban.Territory)
	assert.Equal(t, 2, urban.LeadCount)
	assert.InDelta(t, 2000.0, urban.TotalPipeline, 1e-9)
	assert.InDelta(t, 1000.0, urban.AvgDealSize, 1e-9)
	assert.InDelta(t, 80.0, urban.AvgProbability, 1e-9)
	// Best on every axis: 0.4 + 0.3 + 0.8*0.3 = 0.94.
	assert.InDelta(t, 94.0, urban.PerformanceScore, 1e-9)

	north := out[1]
	// 500/2000*0.4 + 1/2*0.3 + 0.4*0.3 = 0.37.
	assert.InDelta(t, 37.0, north.PerformanceScore, 1e-9)
}

func TestTerritoryOverviewEmpty(t *testing.T) {
	assert.Empty(t, TerritoryOverview(nil))
}

func TestTerritoryPerformanceKPIs(t *testing.T) {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := first.AddDate(0, 0, 60)

	won := reportLead(1000, 100, model.StageClosedWon)
	won.FirstContact = first
	won.ActualClose = &closed
	lost := reportLead(500, 0, model.StageClosedLost)
	active := reportLead(800, 60, model.StageProposal)
	early := reportLead(300, 20, model.StageNew)

	out := TerritoryPerformance([]model.Lead{won, lost, active, early})
	require.Len(t, out, 1)

	kpi := out[0]
	assert.InDelta(t, 25.0, kpi.ConversionRate, 1e-9)
	assert.InDelta(t, 50.0, kpi.WinRate, 1e-9)
	assert.InDelta(t, 60.0, kpi.AvgSalesCycleDays, 1e-9)
	assert.Equal(t, 1, kpi.ActiveOpportunities)
}

func TestExpansionTracking(t *testing.T) {
	targets := config.DefaultExpansionTargets()

	leads := make([]model.Lead, 0, 5)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		l := reportLead(100, 50, model.StageDemo)
		l.InstitutionName = name
		l.CurrentStudentCount = 600
		leads = append(leads, l)
	}

	out := ExpansionTracking(leads, targets)
	require.Len(t, out, 4)

	var urban ExpansionStatus
	for _, st := range out {
		if st.Territory == model.TerritoryBangaloreUrban {
			urban = st
		} else {
			// Untouched territories report zero coverage at high priority.
			assert.Zero(t, st.InstitutionCoverage)
			assert.Equal(t, PriorityHigh, st.Priority)
		}
	}

	assert.Equal(t, 5, urban.CurrentInstitutions)
	assert.Equal(t, 3000, urban.CurrentStudents)
	// 5/15 institutions = 33.3%: medium priority.
	assert.InDelta(t, 100.0/3, urban.InstitutionCoverage, 1e-6)
	assert.InDelta(t, 3000.0/4500*100, urban.StudentCoverage, 1e-6)
	assert.Equal(t, PriorityMedium, urban.Priority)
}

func TestExpansionTrackingDuplicateInstitutionsCountOnce(t *testing.T) {
	a := reportLead(100, 50, model.StageDemo)
	a.InstitutionName = "Same School"
	b := reportLead(100, 50, model.StageProposal)
	b.InstitutionName = "Same School"

	out := ExpansionTracking([]model.Lead{a, b}, config.DefaultExpansionTargets())
	for _, st := range out {
		if st.Territory == model.TerritoryBangaloreUrban {
			assert.Equal(t, 1, st.CurrentInstitutions)
		}
	}
}
