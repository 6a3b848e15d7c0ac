package holdings

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Unknown is shown in place of a value that cannot be derived
const Unknown = "unknown"

// FormatValue renders value in currency, or Unknown when ok is false.
// Amounts are rounded to the currency's minor unit.
func FormatValue(value decimal.Decimal, ok bool, currency string) string {
	if !ok {
		return Unknown
	}

	code := strings.ToUpper(currency)
	cur := money.GetCurrency(code)
	if cur == nil {
		return value.StringFixed(2) + " " + code
	}

	minor := value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatQuantity renders a quantity without trailing zeros
func FormatQuantity(qty decimal.Decimal) string {
	return qty.String()
}
