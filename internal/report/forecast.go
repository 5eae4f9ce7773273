package report

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

// Forecast holds revenue projections over a close-date horizon.
type Forecast struct {
	HorizonDays   int     `json:"horizon_days"`
	LeadCount     int     `json:"lead_count"`
	TotalPipeline float64 `json:"total_pipeline"`
	Conservative  float64 `json:"conservative"`
	Base          float64 `json:"base"`
	Optimistic    float64 `json:"optimistic"`
}

// MonthForecast is the expected-close-month breakdown of a forecast.
type MonthForecast struct {
	Month         string  `json:"month"`
	TotalValue    float64 `json:"total_value"`
	WeightedValue float64 `json:"weighted_value"`
}

// TerritoryForecast projects next-period growth for one territory.
type TerritoryForecast struct {
	Territory        model.Territory `json:"territory"`
	WeightedValue    float64         `json:"weighted_value"`
	GrowthProjection float64         `json:"growth_projection"`
}

// ScenarioRow is one line of a scenario comparison.
type ScenarioRow struct {
	Name           string  `json:"name"`
	ConversionRate float64 `json:"conversion_rate"` // fraction, 0..1
	DealSize       float64 `json:"deal_size"`
	ForecastValue  float64 `json:"forecast_value"`
}

// Factors scales the base forecast into conservative and optimistic cases.
type Factors struct {
	Conservative float64
	Optimistic   float64
}

// DefaultFactors returns the standard 0.8 / 1.2 scenario factors.
func DefaultFactors() Factors {
	return Factors{Conservative: 0.8, Optimistic: 1.2}
}

// ComputeForecast projects revenue from leads expected to close within
// horizonDays of asOf. Leads without an expected close date are excluded.
// The base figure is the weighted pipeline; conservative and optimistic
// scale it by the given factors.
func ComputeForecast(leads []model.Lead, horizonDays int, asOf time.Time, factors Factors) (Forecast, error) {
	if horizonDays <= 0 {
		return Forecast{}, eris.Wrap(model.ErrValidation, "report: horizon days must be positive")
	}

	f := Forecast{HorizonDays: horizonDays}
	window := forecastWindow(leads, horizonDays, asOf)
	f.LeadCount = len(window)
	for i := range window {
		f.TotalPipeline += window[i].Value()
		f.Base += window[i].WeightedValue()
	}
	f.Conservative = f.Base * factors.Conservative
	f.Optimistic = f.Base * factors.Optimistic
	return f, nil
}

// ForecastByMonth breaks the horizon forecast down by expected close month.
func ForecastByMonth(leads []model.Lead, horizonDays int, asOf time.Time) ([]MonthForecast, error) {
	if horizonDays <= 0 {
		return nil, eris.Wrap(model.ErrValidation, "report: horizon days must be positive")
	}

	byMonth := make(map[string]*MonthForecast)
	for _, l := range forecastWindow(leads, horizonDays, asOf) {
		month := l.ExpectedClose.Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &MonthForecast{Month: month}
			byMonth[month] = m
		}
		m.TotalValue += l.Value()
		m.WeightedValue += l.WeightedValue()
	}

	months := make([]MonthForecast, 0, len(byMonth))
	for _, m := range byMonth {
		months = append(months, *m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months, nil
}

// TerritoryProjection projects 10% growth on each territory's weighted
// pipeline within the horizon.
func TerritoryProjection(leads []model.Lead, horizonDays int, asOf time.Time) ([]TerritoryForecast, error) {
	if horizonDays <= 0 {
		return nil, eris.Wrap(model.ErrValidation, "report: horizon days must be positive")
	}

	weighted := make(map[model.Territory]float64)
	for _, l := range forecastWindow(leads, horizonDays, asOf) {
		weighted[l.Territory] += l.WeightedValue()
	}

	out := make([]TerritoryForecast, 0, len(weighted))
	for territory, w := range weighted {
		out = append(out, TerritoryForecast{
			Territory:        territory,
			WeightedValue:    w,
			GrowthProjection: w * 1.1,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Territory < out[j].Territory })
	return out, nil
}

// Scenario compares conservative/base/optimistic outcomes after adjusting
// the observed conversion rate and average deal size by the given percent
// deltas. Adjusted figures clamp at zero, never negative. Empty input
// produces three zero rows.
func Scenario(leads []model.Lead, conversionAdj, dealSizeAdj float64) []ScenarioRow {
	var conversion, dealSize float64
	if n := len(leads); n > 0 {
		var won int
		var total float64
		for i := range leads {
			if leads[i].Stage == model.StageClosedWon {
				won++
			}
			total += leads[i].Value()
		}
		conversion = float64(won) / float64(n)
		dealSize = total / float64(n)
	}

	conversion = clampNonNegative(conversion * (1 + conversionAdj/100))
	dealSize = clampNonNegative(dealSize * (1 + dealSizeAdj/100))

	count := float64(len(leads))
	rows := make([]ScenarioRow, 0, 3)
	for _, s := range []struct {
		name   string
		factor float64
	}{
		{"Conservative", 0.8},
		{"Base", 1.0},
		{"Optimistic", 1.2},
	} {
		conv := conversion * s.factor
		size := dealSize * s.factor
		rows = append(rows, ScenarioRow{
			Name:           s.name,
			ConversionRate: conv,
			DealSize:       size,
			ForecastValue:  conv * size * count,
		})
	}
	return rows
}

// forecastWindow returns leads whose expected close date falls on or before
// asOf + horizonDays.
func forecastWindow(leads []model.Lead, horizonDays int, asOf time.Time) []model.Lead {
	end := asOf.AddDate(0, 0, horizonDays)
	var window []model.Lead
	for i := range leads {
		l := leads[i]
		if l.ExpectedClose == nil || l.ExpectedClose.After(end) {
			continue
		}
		window = append(window, l)
	}
	return window
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
