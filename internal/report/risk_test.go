package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

func TestEvaluateRiskAgingStrictThreshold(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	at31 := reportLead(100, 80, model.StageDemo)
	at31.LastContact = asOf.AddDate(0, 0, -31)
	at30 := reportLead(100, 80, model.StageDemo)
	at30.LastContact = asOf.AddDate(0, 0, -30)

	flagged := EvaluateRisk([]model.Lead{at31, at30}, DefaultRiskThresholds(), asOf)
	require.Len(t, flagged, 1)
	assert.Equal(t, []model.RiskReason{model.RiskAging}, flagged[0].Reasons)
}

func TestEvaluateRiskMultipleReasons(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	big := reportLead(1000, 20, model.StageQualified)
	big.LastContact = asOf.AddDate(0, 0, -45)
	small := reportLead(100, 90, model.StageDemo)
	small.LastContact = asOf.AddDate(0, 0, -2)

	// avg = 550; large-deal bar = 825.
	flagged := EvaluateRisk([]model.Lead{big, small}, DefaultRiskThresholds(), asOf)
	require.Len(t, flagged, 1)
	assert.ElementsMatch(t,
		[]model.RiskReason{model.RiskAging, model.RiskLowProbability, model.RiskLargeDeal},
		flagged[0].Reasons)
}

func TestEvaluateRiskHealthyLeadExcluded(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	healthy := reportLead(100, 80, model.StageDemo)
	healthy.LastContact = asOf.AddDate(0, 0, -5)

	flagged := EvaluateRisk([]model.Lead{healthy}, DefaultRiskThresholds(), asOf)
	assert.Empty(t, flagged)
}

func TestEvaluateRiskEmptySet(t *testing.T) {
	assert.Empty(t, EvaluateRisk(nil, DefaultRiskThresholds(), time.Now()))
}
