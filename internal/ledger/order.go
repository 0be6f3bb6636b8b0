package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Order is the mutable draft an operator edits during a sale. Every mutating
// operation recomputes Totals synchronously before returning, so the derived
// figures can never lag behind the state they were derived from. Rejected
// operations leave the order exactly as it was.
//
// An order is owned by a single editor for its whole session; the type is not
// safe for concurrent use.
type Order struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`

	Items []LineItem `json:"items"`

	DiscountMode       DiscountMode `json:"discountMode"`
	DiscountPercentBps int64        `json:"discountPercentBps"`
	DiscountFlat       Money        `json:"discountFlat"`
	VATBps             int64        `json:"vatBps"`

	// DueAmount is entered manually by the operator and is deliberately never
	// reconciled with the derived RemainingBalance. Rounding agreements and
	// partial write-offs make the two diverge on purpose.
	DueAmount Money `json:"dueAmount"`

	PreviousDue      Money `json:"previousDue"`
	ApplyPreviousDue bool  `json:"applyPreviousDue"`

	Payments  []PaymentEntry `json:"payments"`
	Incentive Incentive      `json:"incentive"`

	Totals Totals `json:"totals"`
}

// New returns an empty draft with a fresh identifier and zeroed totals.
func New() *Order {
	o := &Order{ID: uuid.New(), DiscountMode: DiscountPercent}
	o.recompute()
	return o
}

func (o *Order) recompute() {
	o.Totals = Recompute(*o)
}

// ItemInput carries the catalog-sourced values for a new line item.
type ItemInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Qty           int
	UnitSellPrice Money
	UnitBuyPrice  Money
}

// VariantPrice carries a variant's current catalog prices and stock.
type VariantPrice struct {
	VariantID uuid.UUID
	SellPrice Money
	BuyPrice  Money
	Stock     int
}

// AddItem appends a line item. The quantity must be positive and must not
// exceed the available stock reported for the exact (product, variant) pair.
func (o *Order) AddItem(in ItemInput, available int) (LineItem, error) {
	if in.Qty <= 0 {
		return LineItem{}, fmt.Errorf("qty %d: %w", in.Qty, ErrInvalidQuantity)
	}
	if in.Qty > available {
		return LineItem{}, fmt.Errorf("qty %d exceeds stock %d: %w", in.Qty, available, ErrInsufficientStock)
	}
	if in.UnitSellPrice < 0 || in.UnitBuyPrice < 0 {
		return LineItem{}, ErrInvalidPrice
	}
	item := LineItem{
		ID:            uuid.New(),
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		Qty:           in.Qty,
		UnitSellPrice: in.UnitSellPrice,
		UnitBuyPrice:  in.UnitBuyPrice,
		PriceSource:   PriceSourceVariant,
	}
	o.Items = append(o.Items, item)
	o.recompute()
	return item, nil
}

// RemoveItem deletes a line item. Removing an unknown id is a no-op, not an
// error.
func (o *Order) RemoveItem(id uuid.UUID) {
	for i, it := range o.Items {
		if it.ID == id {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.recompute()
			return
		}
	}
}

// UpdateQuantity sets a new quantity for an existing line item. Zero is
// rejected rather than treated as removal: deleting a row must be an explicit
// action, never a side effect of typing 0.
func (o *Order) UpdateQuantity(id uuid.UUID, qty, available int) error {
	idx := o.itemIndex(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		return fmt.Errorf("qty %d: %w", qty, ErrInvalidQuantity)
	}
	if qty > available {
		return fmt.Errorf("qty %d exceeds stock %d: %w", qty, available, ErrInsufficientStock)
	}
	o.Items[idx].Qty = qty
	o.recompute()
	return nil
}

// UpdateUnitPrice overrides the sell price of a line item. Selling below cost
// is allowed; the order simply reports negative profit, which is a valid and
// auditable state.
func (o *Order) UpdateUnitPrice(id uuid.UUID, price Money) error {
	idx := o.itemIndex(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	if price < 0 {
		return fmt.Errorf("price %d: %w", price, ErrInvalidPrice)
	}
	o.Items[idx].UnitSellPrice = price
	o.Items[idx].PriceSource = PriceSourceManual
	o.recompute()
	return nil
}

// SelectVariant switches a line item to another variant, re-deriving both unit
// prices from the variant's current catalog prices. A prior manual price edit
// is overwritten: variant selection always wins.
func (o *Order) SelectVariant(id uuid.UUID, v VariantPrice) error {
	idx := o.itemIndex(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	if o.Items[idx].Qty > v.Stock {
		return fmt.Errorf("qty %d exceeds stock %d: %w", o.Items[idx].Qty, v.Stock, ErrInsufficientStock)
	}
	variantID := v.VariantID
	o.Items[idx].VariantID = &variantID
	o.Items[idx].UnitSellPrice = v.SellPrice
	o.Items[idx].UnitBuyPrice = v.BuyPrice
	o.Items[idx].PriceSource = PriceSourceVariant
	o.recompute()
	return nil
}

// SetDiscountMode switches the active discount mode. The inactive mode's
// stored value is zeroed so a stale figure can never silently reapply after a
// later switch back.
func (o *Order) SetDiscountMode(mode DiscountMode) {
	if mode != DiscountPercent && mode != DiscountFlat {
		return
	}
	if o.DiscountMode == mode {
		return
	}
	o.DiscountMode = mode
	switch mode {
	case DiscountPercent:
		o.DiscountFlat = 0
	case DiscountFlat:
		o.DiscountPercentBps = 0
	}
	o.recompute()
}

// SetDiscountPercentBps stores the percentage discount in basis points,
// clamped into 0..10000. Out-of-range input degrades gracefully instead of
// erroring.
func (o *Order) SetDiscountPercentBps(bps int64) {
	if bps < 0 {
		bps = 0
	}
	if bps > 10000 {
		bps = 10000
	}
	o.DiscountPercentBps = bps
	o.recompute()
}

// SetDiscountFlat stores a flat discount amount clamped into 0..subtotal.
// Over-discounting caps the order at free rather than rejecting; the derivation
// re-clamps whenever the subtotal later shrinks.
func (o *Order) SetDiscountFlat(amount Money) {
	if amount < 0 {
		amount = 0
	}
	if subtotal := o.Totals.Subtotal; amount > subtotal {
		amount = subtotal
	}
	o.DiscountFlat = amount
	o.recompute()
}

// SetVATBps sets the VAT rate in basis points, clamped to be non-negative.
// There is no upper bound: tax rates are jurisdiction-defined.
func (o *Order) SetVATBps(bps int64) {
	if bps < 0 {
		bps = 0
	}
	o.VATBps = bps
	o.recompute()
}

// SetDueAmount records the operator-entered due figure.
func (o *Order) SetDueAmount(amount Money) {
	o.DueAmount = amount
	o.recompute()
}

// SetPreviousDue seeds the customer's carried-over balance.
func (o *Order) SetPreviousDue(amount Money) {
	o.PreviousDue = amount
	o.recompute()
}

// SetApplyPreviousDue toggles whether the carried balance is folded into the
// total. The recompute is immediate so the displayed total is never stale
// relative to the toggle.
func (o *Order) SetApplyPreviousDue(apply bool) {
	o.ApplyPreviousDue = apply
	o.recompute()
}

// AddPayment records a payment entry. Zero amounts are permitted and represent
// a recorded-but-pending payment.
func (o *Order) AddPayment(method PaymentMethod, amount Money) (PaymentEntry, error) {
	if !method.Valid() {
		return PaymentEntry{}, fmt.Errorf("%q: %w", method, ErrInvalidMethod)
	}
	if amount < 0 {
		return PaymentEntry{}, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}
	entry := PaymentEntry{ID: uuid.New(), Method: method, Amount: amount}
	o.Payments = append(o.Payments, entry)
	o.recompute()
	return entry, nil
}

// RemovePayment deletes a payment entry. There is no minimum-one-payment
// constraint; removing an unknown id is a no-op.
func (o *Order) RemovePayment(id uuid.UUID) {
	for i, p := range o.Payments {
		if p.ID == id {
			o.Payments = append(o.Payments[:i], o.Payments[i+1:]...)
			o.recompute()
			return
		}
	}
}

// UpdatePaymentAmount changes the amount of an existing payment entry.
func (o *Order) UpdatePaymentAmount(id uuid.UUID, amount Money) error {
	if amount < 0 {
		return fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}
	for i, p := range o.Payments {
		if p.ID == id {
			o.Payments[i].Amount = amount
			o.recompute()
			return nil
		}
	}
	return ErrItemNotFound
}

// AssignIncentive attaches a sales incentive payout.
func (o *Order) AssignIncentive(employeeID *uuid.UUID, amount Money) error {
	if amount < 0 {
		return fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}
	o.Incentive = Incentive{EmployeeID: employeeID, Amount: amount}
	o.recompute()
	return nil
}

// ClearIncentive removes any incentive assignment.
func (o *Order) ClearIncentive() {
	o.Incentive = Incentive{}
	o.recompute()
}

// Warnings reports operator-visible inconsistencies that do not block saving.
func (o *Order) Warnings() []string {
	var out []string
	if o.Incentive.Amount > 0 && o.Incentive.EmployeeID == nil {
		out = append(out, "incentive amount set without an assigned employee")
	}
	if o.Incentive.EmployeeID != nil && o.Incentive.Amount == 0 {
		out = append(out, "employee assigned without an incentive amount")
	}
	return out
}

func (o *Order) itemIndex(id uuid.UUID) int {
	for i, it := range o.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
