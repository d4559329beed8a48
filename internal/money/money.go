// Package money provides the fixed-point arithmetic used wherever the
// engine derives monetary values. All derivation goes through decimals so
// price bands and percent changes are exact, not float-approximate.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Band returns the inclusive [low, high] dollar range around price for the
// given percentage tolerance. Band(500000, 15) == (425000, 575000).
func Band(price int, tolerancePct float64) (low, high int) {
	p := decimal.NewFromInt(int64(price))
	margin := p.Mul(decimal.NewFromFloat(tolerancePct)).Div(hundred)
	low = int(p.Sub(margin).Round(0).IntPart())
	high = int(p.Add(margin).Round(0).IntPart())
	return low, high
}

// PercentChange returns the percent change from old to new, rounded to one
// decimal place. A zero old value yields 0 rather than dividing by zero.
func PercentChange(old, new int) float64 {
	if old == 0 {
		return 0
	}
	o := decimal.NewFromInt(int64(old))
	n := decimal.NewFromInt(int64(new))
	pct, _ := n.Sub(o).Div(o).Mul(hundred).Round(1).Float64()
	return pct
}

// PercentDelta returns the absolute percent difference of value from base.
func PercentDelta(base, value int) float64 {
	if base == 0 {
		return 0
	}
	b := decimal.NewFromInt(int64(base))
	v := decimal.NewFromInt(int64(value))
	pct, _ := v.Sub(b).Abs().Div(b).Mul(hundred).Float64()
	return pct
}

// PerSqft divides price by living area, guarding the zero-area case.
func PerSqft(price, sqft int) float64 {
	if sqft <= 0 {
		return 0
	}
	out, _ := decimal.NewFromInt(int64(price)).
		Div(decimal.NewFromInt(int64(sqft))).
		Round(2).Float64()
	return out
}

// ApplyPct returns value scaled by (1 + pct/100), rounded to whole dollars.
func ApplyPct(value int, pct float64) int {
	v := decimal.NewFromInt(int64(value))
	factor := decimal.NewFromFloat(1).Add(decimal.NewFromFloat(pct).Div(hundred))
	return int(v.Mul(factor).Round(0).IntPart())
}

// RoundDollars rounds a fractional dollar amount to the nearest whole dollar.
func RoundDollars(v float64) int {
	return int(decimal.NewFromFloat(v).Round(0).IntPart())
}

// MonthlyPayment computes the standard amortized monthly payment for a loan
// of principal dollars at annualRatePct over termYears. A zero rate falls
// back to straight division.
func MonthlyPayment(principal int, annualRatePct float64, termYears int) float64 {
	if principal <= 0 || termYears <= 0 {
		return 0
	}
	months := float64(termYears * 12)
	if annualRatePct == 0 {
		out, _ := decimal.NewFromInt(int64(principal)).
			Div(decimal.NewFromFloat(months)).
			Round(2).Float64()
		return out
	}
	r := annualRatePct / 100 / 12
	factor := math.Pow(1+r, months)
	raw := float64(principal) * r * factor / (factor - 1)
	out, _ := decimal.NewFromFloat(raw).Round(2).Float64()
	return out
}
