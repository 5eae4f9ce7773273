package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
)

// WriteWorkbook writes the full pipeline report to an XLSX workbook at path.
// It contains four sheets: raw leads, per-stage pipeline, territory metrics,
// and the revenue forecast.
func WriteWorkbook(path string, leads []model.Lead, fc Forecast) error {
	f := xlsx.NewFile()

	if err := writeLeadsSheet(f, leads); err != nil {
		return err
	}
	if err := writePipelineSheet(f, leads); err != nil {
		return err
	}
	if err := writeTerritorySheet(f, leads); err != nil {
		return err
	}
	if err := writeForecastSheet(f, fc); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func writeLeadsSheet(f *xlsx.File, leads []model.Lead) error {
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add leads sheet")
	}

	addHeader(sheet,
		"ID", "Institution", "Territory", "Category", "Stage", "Probability",
		"Students", "Monthly Price", "Annual Value", "Weighted Value",
		"First Contact", "Last Contact", "Expected Close", "Owner")
	for i := range leads {
		l := &leads[i]
		row := sheet.AddRow()
		row.AddCell().SetString(l.ID)
		row.AddCell().SetString(l.InstitutionName)
		row.AddCell().SetString(string(l.Territory))
		row.AddCell().SetString(string(l.Category))
		row.AddCell().SetString(string(l.Stage))
		row.AddCell().SetInt(l.Probability)
		row.AddCell().SetInt(l.CurrentStudentCount)
		row.AddCell().SetFloat(l.StudentPriceMonthly)
		row.AddCell().SetFloat(l.Value())
		row.AddCell().SetFloat(l.WeightedValue())
		row.AddCell().SetString(l.FirstContact.Format("2006-01-02"))
		row.AddCell().SetString(l.LastContact.Format("2006-01-02"))
		if l.ExpectedClose != nil {
			row.AddCell().SetString(l.ExpectedClose.Format("2006-01-02"))
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(l.LeadOwner)
	}
	return nil
}

func writePipelineSheet(f *xlsx.File, leads []model.Lead) error {
	sheet, err := f.AddSheet("Pipeline")
	if err != nil {
		return eris.Wrap(err, "xlsx: add pipeline sheet")
	}

	sum := Summarize(leads)
	addHeader(sheet, "Leads", "Total Pipeline", "Weighted Pipeline", "Avg Deal Size", "Conversion Rate")
	row := sheet.AddRow()
	row.AddCell().SetInt(sum.LeadCount)
	row.AddCell().SetFloat(sum.TotalPipeline)
	row.AddCell().SetFloat(sum.WeightedPipeline)
	row.AddCell().SetFloat(sum.AvgDealSize)
	row.AddCell().SetFloat(sum.ConversionRate)

	sheet.AddRow()
	addHeader(sheet, "Stage", "Leads", "Total Value", "Weighted Value", "Avg Days In Stage")
	buckets, err := Aggregate(leads, GroupByStage)
	if err != nil {
		return err
	}
	for _, b := range buckets {
		row := sheet.AddRow()
		row.AddCell().SetString(b.Key)
		row.AddCell().SetInt(b.Count)
		row.AddCell().SetFloat(b.TotalValue)
		row.AddCell().SetFloat(b.WeightedValue)
		row.AddCell().SetFloat(b.MeanDaysInStage)
	}
	return nil
}

func writeTerritorySheet(f *xlsx.File, leads []model.Lead) error {
	sheet, err := f.AddSheet("Territories")
	if err != nil {
		return eris.Wrap(err, "xlsx: add territory sheet")
	}

	addHeader(sheet, "Territory", "Leads", "Total Pipeline", "Avg Deal Size", "Avg Probability", "Performance Score")
	for _, m := range TerritoryOverview(leads) {
		row := sheet.AddRow()
		row.AddCell().SetString(string(m.Territory))
		row.AddCell().SetInt(m.LeadCount)
		row.AddCell().SetFloat(m.TotalPipeline)
		row.AddCell().SetFloat(m.AvgDealSize)
		row.AddCell().SetFloat(m.AvgProbability)
		row.AddCell().SetFloat(m.PerformanceScore)
	}
	return nil
}

func writeForecastSheet(f *xlsx.File, fc Forecast) error {
	sheet, err := f.AddSheet("Forecast")
	if err != nil {
		return eris.Wrap(err, "xlsx: add forecast sheet")
	}

	addHeader(sheet, "Horizon Days", "Leads", "Total Pipeline", "Conservative", "Base", "Optimistic")
	row := sheet.AddRow()
	row.AddCell().SetInt(fc.HorizonDays)
	row.AddCell().SetInt(fc.LeadCount)
	row.AddCell().SetFloat(fc.TotalPipeline)
	row.AddCell().SetFloat(fc.Conservative)
	row.AddCell().SetFloat(fc.Base)
	row.AddCell().SetFloat(fc.Optimistic)
	return nil
}

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}
