package report

import (
	"time"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/tracker"
)

// RiskThresholds tunes the at-risk heuristics.
type RiskThresholds struct {
	StaleDays         int
	LowProbability    int
	LargeDealMultiple float64
}

// DefaultRiskThresholds returns the standard thresholds.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{StaleDays: 30, LowProbability: 40, LargeDealMultiple: 1.5}
}

// AtRiskLead pairs a lead with the reasons it was flagged.
type AtRiskLead struct {
	Lead    model.Lead         `json:"lead"`
	Reasons []model.RiskReason `json:"reasons"`
}

// EvaluateRisk flags leads that need attention. A lead may carry multiple
// reasons; leads with none are excluded. Aging uses strict > on days since
// last contact. The large-deal baseline is the average deal size over the
// same lead set.
func EvaluateRisk(leads []model.Lead, th RiskThresholds, asOf time.Time) []AtRiskLead {
	if len(leads) == 0 {
		return nil
	}

	var total float64
	for i := range leads {
		total += leads[i].Value()
	}
	avg := total / float64(len(leads))

	var flagged []AtRiskLead
	for i := range leads {
		l := &leads[i]
		var reasons []model.RiskReason
		if tracker.DaysSinceContact(l, asOf) > th.StaleDays {
			reasons = append(reasons, model.RiskAging)
		}
		if l.Probability < th.LowProbability {
			reasons = append(reasons, model.RiskLowProbability)
		}
		if l.Value() > th.LargeDealMultiple*avg {
			reasons = append(reasons, model.RiskLargeDeal)
		}
		if len(reasons) > 0 {
			flagged = append(flagged, AtRiskLead{Lead: *l, Reasons: reasons})
		}
	}
	return flagged
}
