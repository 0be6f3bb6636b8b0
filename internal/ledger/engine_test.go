package ledger

import (
	"testing"

	"github.com/google/uuid"
)

// Scenario: one item qty=2 sell=50.00 buy=30.00, then 10% discount, 5% VAT,
// payments cash 50.00 + bkash 44.50, incentive 10.00, previous due 20.00.
func buildSampleOrder(t *testing.T) *Order {
	t.Helper()
	o := New()
	if _, err := o.AddItem(ItemInput{
		ProductID:     uuid.New(),
		Qty:           2,
		UnitSellPrice: 5000,
		UnitBuyPrice:  3000,
	}, 10); err != nil {
		t.Fatalf("add item: %v", err)
	}
	return o
}

func TestRecomputeSubtotalAndProfit(t *testing.T) {
	o := buildSampleOrder(t)
	if o.Totals.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", o.Totals.Subtotal)
	}
	if o.Totals.TotalBuyPrice != 6000 {
		t.Fatalf("expected buy total 6000, got %d", o.Totals.TotalBuyPrice)
	}
	if o.Totals.GrossProfit != 4000 {
		t.Fatalf("expected gross profit 4000, got %d", o.Totals.GrossProfit)
	}
}

func TestRecomputeDiscountThenVAT(t *testing.T) {
	o := buildSampleOrder(t)
	o.SetDiscountPercentBps(1000)
	if o.Totals.DiscountAmount != 1000 {
		t.Fatalf("expected discount 1000, got %d", o.Totals.DiscountAmount)
	}
	if o.Totals.AfterDiscount != 9000 {
		t.Fatalf("expected after-discount 9000, got %d", o.Totals.AfterDiscount)
	}
	o.SetVATBps(500)
	if o.Totals.VATAmount != 450 {
		t.Fatalf("expected vat 450, got %d", o.Totals.VATAmount)
	}
	if o.Totals.Total != 9450 {
		t.Fatalf("expected total 9450, got %d", o.Totals.Total)
	}
	// profit is decoupled from customer-facing pricing
	if o.Totals.GrossProfit != 4000 {
		t.Fatalf("gross profit changed under discount/vat: %d", o.Totals.GrossProfit)
	}
}

func TestVATComputedOnPostDiscountAmount(t *testing.T) {
	o := New()
	if _, err := o.AddItem(ItemInput{ProductID: uuid.New(), Qty: 1, UnitSellPrice: 10000}, 5); err != nil {
		t.Fatalf("add item: %v", err)
	}
	o.SetDiscountMode(DiscountFlat)
	o.SetDiscountFlat(2000)
	o.SetVATBps(1000)
	if o.Totals.VATAmount != 800 {
		t.Fatalf("vat must be 10%% of 8000, got %d", o.Totals.VATAmount)
	}
}

func TestPaymentsAndRemainingBalance(t *testing.T) {
	o := buildSampleOrder(t)
	o.SetDiscountPercentBps(1000)
	o.SetVATBps(500)
	if _, err := o.AddPayment(PaymentCash, 5000); err != nil {
		t.Fatalf("add cash payment: %v", err)
	}
	if _, err := o.AddPayment(PaymentBkash, 4450); err != nil {
		t.Fatalf("add bkash payment: %v", err)
	}
	if o.Totals.TotalReceived != 9450 {
		t.Fatalf("expected received 9450, got %d", o.Totals.TotalReceived)
	}
	if o.Totals.RemainingBalance != 0 {
		t.Fatalf("expected remaining 0, got %d", o.Totals.RemainingBalance)
	}
}

func TestOverpaymentIsNegativeRemaining(t *testing.T) {
	o := buildSampleOrder(t)
	if _, err := o.AddPayment(PaymentBank, 12000); err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if o.Totals.RemainingBalance != -2000 {
		t.Fatalf("expected advance of 2000, got remaining %d", o.Totals.RemainingBalance)
	}
}

func TestIncentiveReducesNetProfit(t *testing.T) {
	o := buildSampleOrder(t)
	emp := uuid.New()
	if err := o.AssignIncentive(&emp, 1000); err != nil {
		t.Fatalf("assign incentive: %v", err)
	}
	if o.Totals.NetProfit != 3000 {
		t.Fatalf("expected net profit 3000, got %d", o.Totals.NetProfit)
	}
}

func TestNegativeNetProfitIsValid(t *testing.T) {
	o := buildSampleOrder(t)
	emp := uuid.New()
	if err := o.AssignIncentive(&emp, 5000); err != nil {
		t.Fatalf("assign incentive: %v", err)
	}
	if o.Totals.NetProfit != -1000 {
		t.Fatalf("expected net profit -1000, got %d", o.Totals.NetProfit)
	}
}

func TestPreviousDueToggle(t *testing.T) {
	o := buildSampleOrder(t)
	o.SetDiscountPercentBps(1000)
	o.SetVATBps(500)
	o.SetPreviousDue(2000)
	o.SetApplyPreviousDue(true)
	if o.Totals.Total != 11450 {
		t.Fatalf("expected total 11450 with previous due applied, got %d", o.Totals.Total)
	}
	before := o.Totals
	o.SetApplyPreviousDue(false)
	if o.Totals.Total != 9450 {
		t.Fatalf("expected total 9450 after toggle off, got %d", o.Totals.Total)
	}
	// only the previous-due dependent fields may move
	if o.Totals.Subtotal != before.Subtotal ||
		o.Totals.DiscountAmount != before.DiscountAmount ||
		o.Totals.VATAmount != before.VATAmount ||
		o.Totals.GrossProfit != before.GrossProfit ||
		o.Totals.NetProfit != before.NetProfit ||
		o.Totals.TotalReceived != before.TotalReceived {
		t.Fatalf("toggle off disturbed unrelated fields: %+v vs %+v", o.Totals, before)
	}
}

func TestFlatDiscountClampedAtSubtotal(t *testing.T) {
	o := buildSampleOrder(t)
	o.SetDiscountMode(DiscountFlat)
	o.SetDiscountFlat(999999)
	if o.DiscountFlat != o.Totals.Subtotal {
		t.Fatalf("flat discount not clamped: %d vs subtotal %d", o.DiscountFlat, o.Totals.Subtotal)
	}
	if o.Totals.AfterDiscount != 0 {
		t.Fatalf("expected free order, got after-discount %d", o.Totals.AfterDiscount)
	}
}

func TestFlatDiscountReclampedWhenSubtotalShrinks(t *testing.T) {
	o := New()
	item, err := o.AddItem(ItemInput{ProductID: uuid.New(), Qty: 2, UnitSellPrice: 5000}, 10)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	other, err := o.AddItem(ItemInput{ProductID: uuid.New(), Qty: 1, UnitSellPrice: 4000}, 10)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	o.SetDiscountMode(DiscountFlat)
	o.SetDiscountFlat(12000)
	o.RemoveItem(other.ID)
	if o.Totals.DiscountAmount != o.Totals.Subtotal {
		t.Fatalf("derivation must re-clamp flat discount, got %d vs %d", o.Totals.DiscountAmount, o.Totals.Subtotal)
	}
	o.RemoveItem(item.ID)
	if o.Totals.DiscountAmount != 0 {
		t.Fatalf("empty order must have zero discount, got %d", o.Totals.DiscountAmount)
	}
}

func TestRecomputeIsPure(t *testing.T) {
	o := buildSampleOrder(t)
	o.SetDiscountPercentBps(1000)
	snapshot := *o
	got := Recompute(*o)
	if got != o.Totals {
		t.Fatalf("Recompute diverged from stored totals: %+v vs %+v", got, o.Totals)
	}
	if snapshot.DiscountPercentBps != o.DiscountPercentBps || len(snapshot.Items) != len(o.Items) {
		t.Fatal("Recompute mutated the order")
	}
}
