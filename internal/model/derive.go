package model

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// Grams converts a remote weight in kilograms to the stored gram value.
func Grams(kilograms float64) float64 {
	return decimal.NewFromFloat(kilograms).Mul(thousand).InexactFloat64()
}

// Percentage is cost as a whole percentage of price, 0 when price is 0.
// Halves round to even.
func Percentage(cost, price float64) int64 {
	if price == 0 {
		return 0
	}
	p := decimal.NewFromFloat(cost).
		Div(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(0)
	return p.IntPart()
}

// Units converts a remote on-hand quantity to the integer stored locally,
// truncating fractions toward zero.
func Units(qty float64) int64 {
	return decimal.NewFromFloat(qty).IntPart()
}
