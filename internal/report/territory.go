package report

import (
	"sort"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

// TerritoryMetrics summarizes one territory's pipeline.
type TerritoryMetrics struct {
	Territory        model.Territory `json:"territory"`
	LeadCount        int             `json:"lead_count"`
	TotalPipeline    float64         `json:"total_pipeline"`
	AvgDealSize      float64         `json:"avg_deal_size"`
	AvgProbability   float64         `json:"avg_probability"`
	AvgMonthlyPrice  float64         `json:"avg_monthly_price"`
	PerformanceScore float64         `json:"performance_score"`
}

// TerritoryKPIs holds per-territory sales effectiveness indicators.
type TerritoryKPIs struct {
	Territory           model.Territory `json:"territory"`
	TotalPipeline       float64         `json:"total_pipeline"`
	ConversionRate      float64         `json:"conversion_rate"`
	WinRate             float64         `json:"win_rate"`
	AvgSalesCycleDays   float64         `json:"avg_sales_cycle_days"`
	ActiveOpportunities int             `json:"active_opportunities"`
}

// ExpansionStatus tracks one territory's progress against its expansion
// targets.
type ExpansionStatus struct {
	Territory           model.Territory `json:"territory"`
	CurrentInstitutions int             `json:"current_institutions"`
	TargetInstitutions  int             `json:"target_institutions"`
	CurrentStudents     int             `json:"current_students"`
	TargetStudents      int             `json:"target_students"`
	InstitutionCoverage float64         `json:"institution_coverage"`
	StudentCoverage     float64         `json:"student_coverage"`
	Priority            string          `json:"priority"`
}

// Expansion priorities by institution coverage.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// TerritoryOverview computes pipeline metrics per territory. The performance
// score blends pipeline size (40%), lead count (30%), and average close
// probability (30%), normalizing the first two against the best territory,
// on a 0-100 scale.
func TerritoryOverview(leads []model.Lead) []TerritoryMetrics {
	byTerritory := make(map[model.Territory]*TerritoryMetrics)
	probSum := make(map[model.Territory]float64)
	priceSum := make(map[model.Territory]float64)
	for i := range leads {
		l := &leads[i]
		m, ok := byTerritory[l.Territory]
		if !ok {
			m = &TerritoryMetrics{Territory: l.Territory}
			byTerritory[l.Territory] = m
		}
		m.LeadCount++
		m.TotalPipeline += l.Value()
		probSum[l.Territory] += float64(l.Probability)
		priceSum[l.Territory] += l.StudentPriceMonthly
	}

	var maxPipeline float64
	var maxLeads int
	for _, m := range byTerritory {
		if m.TotalPipeline > maxPipeline {
			maxPipeline = m.TotalPipeline
		}
		if m.LeadCount > maxLeads {
			maxLeads = m.LeadCount
		}
	}

	out := make([]TerritoryMetrics, 0, len(byTerritory))
	for territory, m := range byTerritory {
		n := float64(m.LeadCount)
		m.AvgDealSize = m.TotalPipeline / n
		m.AvgProbability = probSum[territory] / n
		m.AvgMonthlyPrice = priceSum[territory] / n

		var score float64
		if maxPipeline > 0 {
			score += m.TotalPipeline / maxPipeline * 0.4
		}
		if maxLeads > 0 {
			score += float64(m.LeadCount) / float64(maxLeads) * 0.3
		}
		score += m.AvgProbability / 100 * 0.3
		m.PerformanceScore = score * 100

		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Territory < out[j].Territory })
	return out
}

// TerritoryPerformance computes conversion, win rate, sales cycle length
// over won deals, and active opportunity counts per territory.
func TerritoryPerformance(leads []model.Lead) []TerritoryKPIs {
	type acc struct {
		kpi       TerritoryKPIs
		total     int
		won, lost int
		cycleDays float64
	}
	byTerritory := make(map[model.Territory]*acc)
	for i := range leads {
		l := &leads[i]
		a, ok := byTerritory[l.Territory]
		if !ok {
			a = &acc{kpi: TerritoryKPIs{Territory: l.Territory}}
			byTerritory[l.Territory] = a
		}
		a.total++
		a.kpi.TotalPipeline += l.Value()
		switch l.Stage {
		case model.StageClosedWon:
			a.won++
			if l.ActualClose != nil {
				a.cycleDays += l.ActualClose.Sub(l.FirstContact).Hours() / 24
			}
		case model.StageClosedLost:
			a.lost++
		case model.StageQualified, model.StageDemo, model.StageProposal, model.StageNegotiation:
			a.kpi.ActiveOpportunities++
		}
	}

	out := make([]TerritoryKPIs, 0, len(byTerritory))
	for _, a := range byTerritory {
		if a.total > 0 {
			a.kpi.ConversionRate = float64(a.won) / float64(a.total) * 100
		}
		if closed := a.won + a.lost; closed > 0 {
			a.kpi.WinRate = float64(a.won) / float64(closed) * 100
		}
		if a.won > 0 {
			a.kpi.AvgSalesCycleDays = a.cycleDays / float64(a.won)
		}
		out = append(out, a.kpi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Territory < out[j].Territory })
	return out
}

// ExpansionTracking measures territory penetration against the expansion
// plan. Every targeted territory gets a row even with no leads yet.
func ExpansionTracking(leads []model.Lead, targets map[string]config.ExpansionTarget) []ExpansionStatus {
	institutions := make(map[model.Territory]map[string]bool)
	students := make(map[model.Territory]int)
	for i := range leads {
		l := &leads[i]
		if institutions[l.Territory] == nil {
			institutions[l.Territory] = make(map[string]bool)
		}
		institutions[l.Territory][l.InstitutionName] = true
		students[l.Territory] += l.CurrentStudentCount
	}

	out := make([]ExpansionStatus, 0, len(targets))
	for name, target := range targets {
		territory := model.Territory(name)
		st := ExpansionStatus{
			Territory:           territory,
			CurrentInstitutions: len(institutions[territory]),
			TargetInstitutions:  target.Institutions,
			CurrentStudents:     students[territory],
			TargetStudents:      target.Students,
		}
		if target.Institutions > 0 {
			st.InstitutionCoverage = float64(st.CurrentInstitutions) / float64(target.Institutions) * 100
		}
		if target.Students > 0 {
			st.StudentCoverage = float64(st.CurrentStudents) / float64(target.Students) * 100
		}
		switch {
		case st.InstitutionCoverage < 30:
			st.Priority = PriorityHigh
		case st.InstitutionCoverage < 60:
			st.Priority = PriorityMedium
		default:
			st.Priority = PriorityLow
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Territory < out[j].Territory })
	return out
}
