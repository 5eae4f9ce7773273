package pricing

// ApprovalLevel indicates who must sign off a custom price.
type ApprovalLevel string

const (
	ApprovalStandard     ApprovalLevel = "Standard"
	ApprovalSalesManager ApprovalLevel = "Sales Manager"
	ApprovalDirector     ApprovalLevel = "Director"
)

// Approval returns the sign-off level required for a custom per-student price
// relative to the standard list price. Prices more than 10% below standard
// need Director approval, 5-10% below need Sales Manager approval.
func Approval(customPrice, standardPrice float64) ApprovalLevel {
	if standardPrice <= 0 {
		return ApprovalStandard
	}
	deviation := (customPrice - standardPrice) / standardPrice * 100
	switch {
	case deviation <= -10:
		return ApprovalDirector
	case deviation <= -5:
		return ApprovalSalesManager
	default:
		return ApprovalStandard
	}
}

// ROIResult summarizes the return-on-investment analysis for a contract.
type ROIResult struct {
	MonthlySavings  float64 `json:"monthly_savings"`
	AnnualSavings   float64 `json:"annual_savings"`
	ROIPct          float64 `json:"roi_pct"`
	PaybackMonths   float64 `json:"payback_months"`
	TotalInvestment float64 `json:"total_investment"`
}

// ROI computes time-savings ROI for a contract. Zero denominators (no
// investment, no savings) yield zero results rather than errors so reports
// render on incomplete inputs.
func ROI(studentCount, hoursSavedPerMonth int, hourlyValue, totalInvestment float64) ROIResult {
	monthly := float64(studentCount) * float64(hoursSavedPerMonth) * hourlyValue
	annual := monthly * 12

	r := ROIResult{
		MonthlySavings:  monthly,
		AnnualSavings:   annual,
		TotalInvestment: totalInvestment,
	}
	if totalInvestment > 0 {
		r.ROIPct = (annual - totalInvestment) / totalInvestment * 100
	}
	if monthly > 0 {
		r.PaybackMonths = totalInvestment / monthly
	}
	return r
}
