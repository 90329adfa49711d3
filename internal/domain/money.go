package domain

import "github.com/shopspring/decimal"

// LineTotal is quantity × unitPrice computed in decimal arithmetic.
func LineTotal(quantity int, unitPrice float64) float64 {
	return lineTotal(quantity, unitPrice).InexactFloat64()
}

func lineTotal(quantity int, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// MismatchedLines returns the indexes of items whose Total is not
// Quantity × UnitPrice.
func (o Order) MismatchedLines() []int {
	var out []int
	for i, it := range o.Items {
		if !decimal.NewFromFloat(it.Total).Equal(lineTotal(it.Quantity, it.UnitPrice)) {
			out = append(out, i)
		}
	}
	return out
}

// ExpectedTotal is the sum of item totals plus shipping.
func (o Order) ExpectedTotal() float64 {
	return o.expectedTotal().InexactFloat64()
}

// TotalConsistent reports whether TotalValue equals ExpectedTotal exactly in
// decimal terms. Orders are accepted either way; the engine only warns.
func (o Order) TotalConsistent() bool {
	return decimal.NewFromFloat(o.TotalValue).Equal(o.expectedTotal())
}

func (o Order) expectedTotal() decimal.Decimal {
	sum := decimal.NewFromFloat(o.ShippingCost)
	for _, it := range o.Items {
		sum = sum.Add(decimal.NewFromFloat(it.Total))
	}
	return sum
}
