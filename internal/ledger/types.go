package ledger

import (
	"errors"

	"github.com/google/uuid"
)

// Money represents a monetary value stored in minor units.
type Money = int64

var (
	// ErrInsufficientStock is returned when a quantity exceeds the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned when a quantity update is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPrice is returned when a negative unit price is supplied.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrInvalidAmount is returned when a negative payment amount is supplied.
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInvalidMethod is returned for an unknown payment method.
	ErrInvalidMethod = errors.New("unknown payment method")
	// ErrItemNotFound indicates the referenced line item does not exist on the order.
	ErrItemNotFound = errors.New("line item not found")
)

// DiscountMode selects how the order discount is expressed.
type DiscountMode string

const (
	// DiscountPercent applies a percentage of the subtotal, carried in basis points.
	DiscountPercent DiscountMode = "percent"
	// DiscountFlat applies a fixed amount capped at the subtotal.
	DiscountFlat DiscountMode = "flat"
)

// PriceSource records whether a line item's prices came from the catalog variant
// or from a manual operator edit. Selecting a variant always wins over a prior
// manual edit.
type PriceSource string

const (
	PriceSourceVariant PriceSource = "variant"
	PriceSourceManual  PriceSource = "manual"
)

// PaymentMethod enumerates the accepted tender types.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCheque PaymentMethod = "cheque"
	PaymentBkash  PaymentMethod = "bkash"
	PaymentNagad  PaymentMethod = "nagad"
	PaymentBank   PaymentMethod = "bank"
)

// Valid reports whether the method is one of the accepted tender types.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheque, PaymentBkash, PaymentNagad, PaymentBank:
		return true
	}
	return false
}

// LineItem is a single sellable row on an order. LineTotal is always derived
// from Qty and UnitSellPrice, never stored.
type LineItem struct {
	ID            uuid.UUID   `json:"id"`
	ProductID     uuid.UUID   `json:"productId"`
	VariantID     *uuid.UUID  `json:"variantId,omitempty"`
	Qty           int         `json:"qty"`
	UnitSellPrice Money       `json:"unitSellPrice"`
	UnitBuyPrice  Money       `json:"unitBuyPrice"`
	PriceSource   PriceSource `json:"priceSource"`
}

// LineTotal returns the sell-side total for the row.
func (it LineItem) LineTotal() Money {
	return Money(it.Qty) * it.UnitSellPrice
}

// BuyTotal returns the cost-side total for the row.
func (it LineItem) BuyTotal() Money {
	return Money(it.Qty) * it.UnitBuyPrice
}

// PaymentEntry records one received (or pending, when zero) payment.
type PaymentEntry struct {
	ID     uuid.UUID     `json:"id"`
	Method PaymentMethod `json:"method"`
	Amount Money         `json:"amount"`
}

// Incentive assigns a sales incentive payout to an employee for the order.
// An amount without an employee is a warning state, not a validation failure.
type Incentive struct {
	EmployeeID *uuid.UUID `json:"employeeId,omitempty"`
	Amount     Money      `json:"amount"`
}

// Totals aggregates every derived figure for an order. All fields are functions
// of the current order state; none can be set directly.
type Totals struct {
	Subtotal         Money `json:"subtotal"`
	DiscountAmount   Money `json:"discountAmount"`
	AfterDiscount    Money `json:"afterDiscount"`
	VATAmount        Money `json:"vatAmount"`
	Total            Money `json:"total"`
	TotalReceived    Money `json:"totalReceived"`
	RemainingBalance Money `json:"remainingBalance"`
	TotalBuyPrice    Money `json:"totalBuyPrice"`
	TotalSellPrice   Money `json:"totalSellPrice"`
	GrossProfit      Money `json:"grossProfit"`
	NetProfit        Money `json:"netProfit"`
}
