package quotation

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// LineAmount is rate x quantity rounded to paise
func LineAmount(item entity.QuotationItem) decimal.Decimal {
	return item.Rate.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
}

// ComputeTotals derives the monetary breakdown. The discount is spread over
// lines in proportion to their amount before GST is applied. Intra-state
// supply splits GST evenly into CGST and SGST; inter-state supply charges IGST.
func ComputeTotals(items []entity.QuotationItem, discount decimal.Decimal, interState bool) entity.Totals {
	subtotal := decimal.Zero
	gross := decimal.Zero
	for _, item := range items {
		amount := LineAmount(item)
		subtotal = subtotal.Add(amount)
		gross = gross.Add(amount.Mul(item.GSTPercent).Div(hundred))
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	preGST := subtotal.Sub(discount)

	gst := decimal.Zero
	if subtotal.IsPositive() {
		gst = gross.Mul(preGST).Div(subtotal).Round(2)
	}

	t := entity.Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		PreGSTAmount: preGST,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
	}
	if interState {
		t.IGST = gst
	} else {
		t.CGST = gst.Div(decimal.NewFromInt(2)).Round(2)
		t.SGST = gst.Sub(t.CGST)
	}
	t.Total = preGST.Add(t.CGST).Add(t.SGST).Add(t.IGST)
	return t
}
