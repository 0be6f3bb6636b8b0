package ledger

// Recompute derives the full Totals for the order. It is pure: the order is not
// modified and every field of the result is a function of the current state.
//
// VAT is always computed on the post-discount amount. Gross and net profit are
// computed from pre-discount, pre-VAT line totals so that customer-facing
// pricing decisions never distort the internal margin view.
func Recompute(o Order) Totals {
	var subtotal, buyTotal Money
	for _, it := range o.Items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += it.LineTotal()
		buyTotal += it.BuyTotal()
	}

	var discount Money
	switch o.DiscountMode {
	case DiscountFlat:
		discount = o.DiscountFlat
	default:
		discount = (subtotal * Money(o.DiscountPercentBps)) / 10000
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	afterDiscount := subtotal - discount
	vat := (afterDiscount * Money(o.VATBps)) / 10000

	total := afterDiscount + vat
	if o.ApplyPreviousDue {
		total += o.PreviousDue
	}

	var received Money
	for _, p := range o.Payments {
		received += p.Amount
	}

	gross := subtotal - buyTotal
	return Totals{
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		AfterDiscount:    afterDiscount,
		VATAmount:        vat,
		Total:            total,
		TotalReceived:    received,
		RemainingBalance: total - received,
		TotalBuyPrice:    buyTotal,
		TotalSellPrice:   subtotal,
		GrossProfit:      gross,
		NetProfit:        gross - o.Incentive.Amount,
	}
}
