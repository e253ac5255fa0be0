// Package format renders amounts and rates for display and export.
package format

import (
	"strings"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/shopspring/decimal"
)

// Money rounds amount half away from zero to whole cents. The engine works in
// float64; this is the single place values become currency.
func Money(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(constants.CurrencyDecimalPlaces)
}

// Amount returns amount rounded to cents without separators, e.g. "-1234.56".
func Amount(amount float64) string {
	return Money(amount).StringFixed(constants.CurrencyDecimalPlaces)
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	money := Money(amount)
	formatted := formatPositiveCurrency(money.Abs())
	if money.IsNegative() {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	money := Money(amount)
	sign := ""
	if money.IsNegative() {
		sign = "-"
	}
	return sign + formatPositiveCurrency(money.Abs())
}

// Percent returns a percentage rounded to the given number of decimal places,
// e.g. "2.5378%".
func Percent(ratePercent float64, places int32) string {
	return decimal.NewFromFloat(ratePercent).Round(places).StringFixed(places) + "%"
}

func formatPositiveCurrency(value decimal.Decimal) string {
	formatted := value.StringFixed(constants.CurrencyDecimalPlaces)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
