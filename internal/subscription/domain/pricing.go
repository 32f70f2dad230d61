package domain

import "github.com/schoolgle/schoolgle/pkg/money"

// FinalPrice is round(base × schoolCount × (1 − discountPercent/100)).
func FinalPrice(basePriceAnnual int64, schoolCount int, discountPercent float64) int64 {
	return money.Discounted(basePriceAnnual, schoolCount, discountPercent)
}

// MonthlyRecurring is round(annual / 12).
func MonthlyRecurring(annual int64) int64 {
	return money.DivRound(annual, 12)
}
