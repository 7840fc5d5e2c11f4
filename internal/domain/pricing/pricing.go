// Package pricing computes deterministic line and order totals with fixed
// half-up rounding to two decimal places.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line holds the priced amounts for a single order line. All fields are
// rounded to two decimal places and never negative.
type Line struct {
	// UnitPrice is the discounted per-unit price actually charged.
	UnitPrice decimal.Decimal
	// Gross is the undiscounted extended price (original unit * quantity).
	Gross decimal.Decimal
	// DiscountAmount is Gross minus the discounted line total.
	DiscountAmount decimal.Decimal
	// TaxAmount is tax computed on the discounted line total.
	TaxAmount decimal.Decimal
	// LineTotal is the discounted extended price, excluding tax.
	LineTotal decimal.Decimal
}

// Totals is the order-level aggregation snapshot persisted on the order row.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// PriceLine prices one line. The discount is applied per unit and rounded
// before extension so the same line always produces the same cents regardless
// of quantity (no penny drift across the extended total). Tax is computed on
// the discounted amount. Negative results clamp to zero.
func PriceLine(unitPrice decimal.Decimal, quantity int, discountPct, taxPct decimal.Decimal) Line {
	qty := decimal.NewFromInt(int64(quantity))

	discountedUnit := unitPrice.Mul(hundred.Sub(discountPct)).Div(hundred).Round(2)
	discountedUnit = floorAtZero(discountedUnit)

	lineTotal := floorAtZero(discountedUnit.Mul(qty).Round(2))
	gross := floorAtZero(unitPrice.Round(2).Mul(qty).Round(2))
	taxAmount := floorAtZero(lineTotal.Mul(taxPct).Div(hundred).Round(2))

	return Line{
		UnitPrice:      discountedUnit,
		Gross:          gross,
		DiscountAmount: floorAtZero(gross.Sub(lineTotal)),
		TaxAmount:      taxAmount,
		LineTotal:      lineTotal,
	}
}

// EffectivePercent implements the no-stacking rule: when a line is eligible
// for both a standing discount and a redeemed code, the higher percentage
// wins. Combining both additively is not permitted.
func EffectivePercent(standingPct, codePct decimal.Decimal) decimal.Decimal {
	if codePct.GreaterThan(standingPct) {
		return codePct
	}
	return standingPct
}

// Summarize aggregates priced lines into order totals.
// Total = Subtotal - Discount + Tax + Shipping, clamped at zero.
func Summarize(lines []Line, shipping decimal.Decimal) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: floorAtZero(shipping.Round(2)),
	}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Gross)
		t.Discount = t.Discount.Add(l.DiscountAmount)
		t.Tax = t.Tax.Add(l.TaxAmount)
	}
	t.Total = floorAtZero(t.Subtotal.Sub(t.Discount).Add(t.Tax).Add(t.Shipping).Round(2))
	return t
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
