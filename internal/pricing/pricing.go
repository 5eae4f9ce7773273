// Package pricing implements the tiered contract pricing model: per-student
// tier tables, discount stacking with a hard cap, and an inflation-adjusted
// multi-year value schedule.
package pricing

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

// Business constants of the pricing model.
const (
	InflationRate      = 0.05 // compounded annually from year 2
	MaxTotalDiscount   = 0.40 // cap on cycle + commitment discount
	CommitmentStep     = 0.05 // per additional committed year, annual cycle only
	AnnualDiscount     = 0.20
	QuarterlyDiscount  = 0.10
	MaxCommitmentYears = 5
	MaxCustomDiscount  = 20 // percent
)

// QuoteInput are the parameters of a pricing quote.
type QuoteInput struct {
	StudentCount      int                    `json:"student_count"`
	Category          model.CapacityCategory `json:"category"`
	Cycle             model.PaymentCycle     `json:"payment_cycle"`
	CommitmentYears   int                    `json:"commitment_years"`
	CustomDiscountPct float64                `json:"custom_discount_pct"`
}

// YearValue is one year of the contract value schedule.
type YearValue struct {
	Year              int     `json:"year"` // 1-based
	AnnualValue       float64 `json:"annual_value"`
	PaymentAmount     float64 `json:"payment_amount"` // per billing period
	MonthlyEquivalent float64 `json:"monthly_equivalent"`
}

// Quote is the result of a pricing computation.
type Quote struct {
	BasePricePerStudent   float64     `json:"base_price_per_student"`
	CycleDiscountPct      float64     `json:"cycle_discount_pct"`
	CommitmentDiscountPct float64     `json:"commitment_discount_pct"`
	TotalDiscountPct      float64     `json:"total_discount_pct"`
	CustomDiscountPct     float64     `json:"custom_discount_pct"`
	FinalPricePerStudent  float64     `json:"final_price_per_student"`
	YearlyValues          []YearValue `json:"yearly_values"`
	TotalContractValue    float64     `json:"total_contract_value"`
}

// BaseMonthlyPrice returns the per-student monthly list price for the
// category-aware tier table.
func BaseMonthlyPrice(studentCount int, category model.CapacityCategory) float64 {
	if category == model.LimitedCapacity {
		switch {
		case studentCount >= 501:
			return 350
		case studentCount >= 301:
			return 450
		default:
			return 750
		}
	}
	switch {
	case studentCount >= 1000:
		return 300
	case studentCount >= 500:
		return 450
	default:
		return 750
	}
}

// StandardMonthlyPrice returns the per-student monthly list price for the
// simplified tier table used where no capacity category is tracked.
func StandardMonthlyPrice(studentCount int) float64 {
	switch {
	case studentCount >= 1000:
		return 300
	case studentCount >= 500:
		return 450
	default:
		return 750
	}
}

// cycleDiscount returns the billing-cadence discount as a fraction.
func cycleDiscount(cycle model.PaymentCycle) float64 {
	switch cycle {
	case model.CycleAnnual:
		return AnnualDiscount
	case model.CycleQuarterly:
		return QuarterlyDiscount
	default:
		return 0
	}
}

// commitmentDiscount returns the multi-year commitment discount as a
// fraction. It applies only to annual-cycle contracts longer than one year.
func commitmentDiscount(cycle model.PaymentCycle, years int) float64 {
	if cycle != model.CycleAnnual || years <= 1 {
		return 0
	}
	return float64(years-1) * CommitmentStep
}

func (in *QuoteInput) validate() error {
	var errs []string

	if in.StudentCount < 1 {
		errs = append(errs, "student count must be >= 1")
	}
	if in.Category != model.HigherCapacity && in.Category != model.LimitedCapacity {
		errs = append(errs, "unknown capacity category "+string(in.Category))
	}
	if _, err := model.ParsePaymentCycle(string(in.Cycle)); err != nil {
		errs = append(errs, "unknown payment cycle "+string(in.Cycle))
	}
	if in.CommitmentYears < 1 || in.CommitmentYears > MaxCommitmentYears {
		errs = append(errs, "commitment years must be between 1 and 5")
	}
	if in.CustomDiscountPct < 0 || in.CustomDiscountPct > MaxCustomDiscount {
		errs = append(errs, "custom discount must be between 0 and 20 percent")
	}

	if len(errs) > 0 {
		return eris.Wrapf(model.ErrValidation, "pricing: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Compute produces the full pricing quote for the given input. Discount
// stacking caps the cycle + commitment discount at 40%; the optional custom
// discount is applied multiplicatively on top of the capped price.
func Compute(in QuoteInput) (*Quote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	base := BaseMonthlyPrice(in.StudentCount, in.Category)
	cycle := cycleDiscount(in.Cycle)
	commit := commitmentDiscount(in.Cycle, in.CommitmentYears)
	total := math.Min(cycle+commit, MaxTotalDiscount)

	final := base * (1 - total)
	final *= 1 - in.CustomDiscountPct/100

	q := &Quote{
		BasePricePerStudent:   base,
		CycleDiscountPct:      cycle * 100,
		CommitmentDiscountPct: commit * 100,
		TotalDiscountPct:      total * 100,
		CustomDiscountPct:     in.CustomDiscountPct,
		FinalPricePerStudent:  final,
	}

	baseAnnual := final * 12 * float64(in.StudentCount)
	periods := in.Cycle.PeriodsPerYear()
	for year := 0; year < in.CommitmentYears; year++ {
		annual := baseAnnual * math.Pow(1+InflationRate, float64(year))
		q.YearlyValues = append(q.YearlyValues, YearValue{
			Year:              year + 1,
			AnnualValue:       annual,
			PaymentAmount:     annual / float64(periods),
			MonthlyEquivalent: annual / 12,
		})
		q.TotalContractValue += annual
	}

	return q, nil
}

// DealValue returns the derived monthly per-student price and annual deal
// value for a lead record. It uses the simplified tier table (no capacity
// category is tracked on leads) with the billing-cycle discount applied.
func DealValue(studentCount int, cycle model.PaymentCycle) (monthly, annual float64, err error) {
	if studentCount < 0 {
		return 0, 0, eris.Wrap(model.ErrValidation, "pricing: student count must be >= 0")
	}
	if _, err := model.ParsePaymentCycle(string(cycle)); err != nil {
		return 0, 0, err
	}

	monthly = StandardMonthlyPrice(studentCount) * (1 - cycleDiscount(cycle))
	annual = monthly * 12 * float64(studentCount)
	return monthly, annual, nil
}
