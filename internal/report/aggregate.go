// Package report computes pipeline analytics over lead snapshots: grouped
// aggregation, summary metrics, risk evaluation, forecasting, and territory
// performance. Every function returns zero-valued results on empty input.
package report

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/tracker"
)

// GroupBy selects the aggregation dimension.
type GroupBy string

const (
	GroupByStage     GroupBy = "stage"
	GroupByTerritory GroupBy = "territory"
	GroupBySource    GroupBy = "source"
	GroupByMonth     GroupBy = "month"
)

// ParseGroupBy validates a grouping dimension.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByStage, GroupByTerritory, GroupBySource, GroupByMonth:
		return GroupBy(s), nil
	}
	return "", eris.Wrapf(model.ErrValidation, "report: unknown grouping %q", s)
}

// Bucket is one row of an aggregation.
type Bucket struct {
	Key             string  `json:"key"`
	Count           int     `json:"count"`
	TotalValue      float64 `json:"total_value"`
	MeanValue       float64 `json:"mean_value"`
	WeightedValue   float64 `json:"weighted_value"`
	MeanDaysInStage float64 `json:"mean_days_in_stage"`
}

// Summary holds the top-level pipeline metrics.
type Summary struct {
	LeadCount        int     `json:"lead_count"`
	TotalPipeline    float64 `json:"total_pipeline"`
	WeightedPipeline float64 `json:"weighted_pipeline"`
	AvgDealSize      float64 `json:"avg_deal_size"`
	ConversionRate   float64 `json:"conversion_rate"`
}

// Aggregate groups leads by the given dimension. Month grouping buckets by
// the calendar month of the first contact date. Stage buckets come back in
// funnel order; other dimensions sort by key.
func Aggregate(leads []model.Lead, groupBy GroupBy) ([]Bucket, error) {
	if _, err := ParseGroupBy(string(groupBy)); err != nil {
		return nil, err
	}

	byKey := make(map[string]*Bucket)
	days := make(map[string]float64)
	for i := range leads {
		l := &leads[i]
		key := bucketKey(l, groupBy)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key}
			byKey[key] = b
		}
		b.Count++
		b.TotalValue += l.Value()
		b.WeightedValue += l.WeightedValue()
		days[key] += tracker.DaysInStage(l)
	}

	buckets := make([]Bucket, 0, len(byKey))
	for key, b := range byKey {
		b.MeanValue = b.TotalValue / float64(b.Count)
		b.MeanDaysInStage = days[key] / float64(b.Count)
		buckets = append(buckets, *b)
	}

	if groupBy == GroupByStage {
		sort.Slice(buckets, func(i, j int) bool {
			return model.Stage(buckets[i].Key).Order() < model.Stage(buckets[j].Key).Order()
		})
	} else {
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	}
	return buckets, nil
}

// Summarize computes the top-level pipeline metrics. Empty input yields all
// zeros rather than an error so reports render with no data.
func Summarize(leads []model.Lead) Summary {
	s := Summary{LeadCount: len(leads)}
	if len(leads) == 0 {
		return s
	}

	var won int
	for i := range leads {
		l := &leads[i]
		s.TotalPipeline += l.Value()
		s.WeightedPipeline += l.WeightedValue()
		if l.Stage == model.StageClosedWon {
			won++
		}
	}
	s.AvgDealSize = s.TotalPipeline / float64(len(leads))
	s.ConversionRate = float64(won) / float64(len(leads)) * 100
	return s
}

func bucketKey(l *model.Lead, groupBy GroupBy) string {
	switch groupBy {
	case GroupByStage:
		return string(l.Stage)
	case GroupByTerritory:
		return string(l.Territory)
	case GroupBySource:
		return string(l.LeadSource)
	default:
		return l.FirstContact.Format("2006-01")
	}
}
