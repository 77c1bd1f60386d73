package export

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// Money formats an amount as dollars with thousands grouping, e.g. -$1,234.50.
func Money(amount decimal.Decimal) string {
	value, _ := amount.Abs().Round(2).Float64()
	formatted := moneyPrinter.Sprintf("$%.2f", value)
	if amount.Round(2).IsNegative() {
		return "-" + formatted
	}
	return formatted
}
