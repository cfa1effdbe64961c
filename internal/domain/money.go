package domain

import "github.com/shopspring/decimal"

// TaxRate is the flat restaurant tax applied when a payment includes tax.
var TaxRate = decimal.NewFromFloat(0.10)

type Amounts struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeAmounts derives the financial breakdown of an order. The raw
// discount is preserved for display; the taxable base is clamped at zero so
// a discount larger than the subtotal never produces a negative total.
// Tax is rounded half-up to the smallest currency unit.
func ComputeAmounts(subtotal, discount decimal.Decimal, includeTax bool) Amounts {
	finalSubtotal := subtotal.Sub(discount)
	if finalSubtotal.IsNegative() {
		finalSubtotal = decimal.Zero
	}

	tax := decimal.Zero
	if includeTax {
		tax = finalSubtotal.Mul(TaxRate).Round(0)
	}

	return Amounts{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    finalSubtotal.Add(tax),
	}
}
