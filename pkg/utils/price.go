package utils

import "github.com/shopspring/decimal"

// PricePrecision is the number of decimal places kept for stop, target and peak prices.
const PricePrecision = 8

// RoundPrice rounds a price to PricePrecision places so repeated float math stays comparable.
func RoundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(PricePrecision).InexactFloat64()
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// PercentChange returns (to-from)/from*100 using decimal arithmetic.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	f := decimal.NewFromFloat(from)
	return decimal.NewFromFloat(to).Sub(f).Div(f).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// ScalePrice returns price*(1+pct/100), rounded to PricePrecision.
func ScalePrice(price, pct float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(price).Mul(factor).Round(PricePrecision).InexactFloat64()
}
