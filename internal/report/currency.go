package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// INR renders a rupee amount with Indian digit grouping, no paise.
func INR(v float64) string {
	return inrPrinter.Sprintf("₹%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Percent renders a ratio already expressed in percent, one decimal place.
func Percent(v float64) string {
	return inrPrinter.Sprintf("%v%%", number.Decimal(v, number.MaxFractionDigits(1), number.MinFractionDigits(1)))
}
