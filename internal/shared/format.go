package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount with grouping separators and the
// currency code, e.g. "USD 1,250,000.00". Used for audit notes and job
// summaries; it is a display helper, not an accounting rounding rule.
func FormatAmount(currency string, amount float64) string {
	if currency == "" {
		currency = "USD"
	}
	return moneyPrinter.Sprintf("%s %.2f", currency, amount)
}
