// Package gst computes invoice totals under India's split GST model.
// Intrastate supplies accrue CGST+SGST in equal halves; interstate supplies
// accrue IGST in full. All arithmetic is decimal at full precision;
// callers round to two places via Round only when storing or rendering.
package gst

import (
	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Line is one invoice line as entered: quantity, unit rate, absolute
// per-line discount, and the tax rate percentage for the item.
type Line struct {
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	Discount decimal.Decimal
	TaxRate  decimal.Decimal
}

// LineResult carries the derived per-line figures.
type LineResult struct {
	Amount    decimal.Decimal
	TaxAmount decimal.Decimal
}

// Totals aggregates an invoice. TotalAmount = Subtotal + TotalTax − Discount,
// where Discount is the invoice-level discount, not the sum of line discounts.
type Totals struct {
	Subtotal    decimal.Decimal
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	IGST        decimal.Decimal
	TotalTax    decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
}

// Calculator holds the seller's home state for interstate determination.
type Calculator struct {
	companyState string
}

func NewCalculator(companyState string) *Calculator {
	return &Calculator{companyState: companyState}
}

// IsInterstate compares the customer's state against the company's home
// state byte-for-byte. No trimming or case folding: two empty strings are
// equal, hence intrastate.
func (c *Calculator) IsInterstate(customerState string) bool {
	return customerState != c.companyState
}

// Calculate derives per-line amounts and the invoice aggregate.
//
// Per line: amount = quantity·rate − discount; tax = amount·taxRate/100.
// Interstate: all tax accrues to IGST. Intrastate: each of CGST and SGST
// receives half of every line's tax.
func (c *Calculator) Calculate(lines []Line, invoiceDiscount decimal.Decimal, interstate bool) ([]LineResult, Totals) {
	results := make([]LineResult, len(lines))
	totals := Totals{
		Subtotal: decimal.Zero,
		CGST:     decimal.Zero,
		SGST:     decimal.Zero,
		IGST:     decimal.Zero,
		TotalTax: decimal.Zero,
		Discount: invoiceDiscount,
	}

	for i, line := range lines {
		amount := line.Quantity.Mul(line.Rate).Sub(line.Discount)
		tax := amount.Mul(line.TaxRate).Div(hundred)

		results[i] = LineResult{Amount: amount, TaxAmount: tax}

		totals.Subtotal = totals.Subtotal.Add(amount)
		totals.TotalTax = totals.TotalTax.Add(tax)

		if interstate {
			totals.IGST = totals.IGST.Add(tax)
		} else {
			half := tax.Div(two)
			totals.CGST = totals.CGST.Add(half)
			totals.SGST = totals.SGST.Add(half)
		}
	}

	totals.TotalAmount = totals.Subtotal.Add(totals.TotalTax).Sub(invoiceDiscount)
	return results, totals
}

// Round applies the storage rounding policy: two decimal places, half up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundTotals rounds every aggregate for persistence.
func RoundTotals(t Totals) Totals {
	return Totals{
		Subtotal:    Round(t.Subtotal),
		CGST:        Round(t.CGST),
		SGST:        Round(t.SGST),
		IGST:        Round(t.IGST),
		TotalTax:    Round(t.TotalTax),
		Discount:    Round(t.Discount),
		TotalAmount: Round(t.TotalAmount),
	}
}
