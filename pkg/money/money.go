// Package money holds whole-pound arithmetic shared by pricing and invoicing.
package money

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discounted returns round(unit × qty × (1 − discountPercent/100)), halves
// rounded away from zero.
func Discounted(unit int64, qty int, discountPercent float64) int64 {
	factor := hundred.Sub(decimal.NewFromFloat(discountPercent)).Div(hundred)
	return decimal.NewFromInt(unit).
		Mul(decimal.NewFromInt(int64(qty))).
		Mul(factor).
		Round(0).
		IntPart()
}

// Percent returns round(amount × percent/100).
func Percent(amount int64, percent float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(0).
		IntPart()
}

// DivRound returns round(amount / n). n must be non-zero.
func DivRound(amount, n int64) int64 {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(n)).Round(0).IntPart()
}

// Format renders whole units with a currency symbol, e.g. £4,047.
func Format(amount int64, currency string) string {
	symbol := strings.ToUpper(currency) + " "
	switch strings.ToUpper(currency) {
	case "GBP":
		symbol = "£"
	case "EUR":
		symbol = "€"
	case "USD":
		symbol = "$"
	}
	if amount < 0 {
		return "-" + symbol + humanize.Comma(-amount)
	}
	return symbol + humanize.Comma(amount)
}
