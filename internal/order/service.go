package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/employee"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/ledger"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/tasks"
)

// TaskEnqueuer submits background tasks. Satisfied by tasks.Enqueuer.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Service orchestrates order draft sessions. Each mutation loads the draft,
// applies exactly one ledger operation, and writes the draft back with its
// freshly derived totals. The ledger itself never touches I/O; this layer
// supplies the stock/price/balance answers it needs.
type Service struct {
	Drafts    *DraftStore
	Store     Store
	Catalog   *catalog.Service
	Customers customer.Store
	Employees employee.Store
	Events    *events.Bus
	Tasks     TaskEnqueuer

	DefaultVATBps int64
	Currency      string
	Logger        zerolog.Logger
}

func (s *Service) ready() error {
	if s == nil || s.Drafts == nil || s.Store == nil || s.Catalog == nil {
		return common.NewAppError("INTERNAL", "order service not configured", http.StatusInternalServerError, nil)
	}
	return nil
}

// NewDraft opens an empty draft, optionally attached to a customer whose
// carried balance seeds the previous-due field.
func (s *Service) NewDraft(ctx context.Context, customerID *uuid.UUID) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	o := ledger.New()
	o.SetVATBps(s.DefaultVATBps)
	if customerID != nil {
		if err := s.attachCustomer(ctx, o, *customerID); err != nil {
			return nil, err
		}
	}
	if err := s.Drafts.Put(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// EditDraft opens a draft seeded from a persisted order. Totals come from a
// fresh derivation, never from the stored snapshot; a mismatch is logged and
// counted because it means the stored row was tampered with or written by an
// older derivation.
func (s *Service) EditDraft(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	o, snapshot, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snapshot != o.Totals {
		if obs.StaleTotalsTotal != nil {
			obs.StaleTotalsTotal.Inc()
		}
		s.Logger.Warn().
			Str("order_id", orderID.String()).
			Interface("persisted", snapshot).
			Interface("derived", o.Totals).
			Msg("persisted totals diverged from derivation")
	}
	if err := s.Drafts.Put(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Draft returns the current draft state.
func (s *Service) Draft(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Drafts.Get(ctx, id)
}

// Discard drops a draft without persisting it.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Drafts.Delete(ctx, id)
}

// SetCustomer attaches a customer and seeds the previous-due balance from the
// profile. Passing nil detaches and zeroes the carried balance.
func (s *Service) SetCustomer(ctx context.Context, draftID uuid.UUID, customerID *uuid.UUID) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_customer", func(o *ledger.Order) error {
		if customerID == nil {
			o.CustomerID = nil
			o.SetPreviousDue(0)
			o.SetApplyPreviousDue(false)
			return nil
		}
		return s.attachCustomer(ctx, o, *customerID)
	})
}

func (s *Service) attachCustomer(ctx context.Context, o *ledger.Order, id uuid.UUID) error {
	if s.Customers == nil {
		return errors.New("customer store not configured")
	}
	profile, err := s.Customers.Get(ctx, id)
	if err != nil {
		return err
	}
	customerID := profile.ID
	o.CustomerID = &customerID
	o.SetPreviousDue(profile.PreviousDue)
	return nil
}

// ItemRequest carries an add-item call. Prices always come from the catalog;
// the request only decides product, variant and quantity.
type ItemRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// AddItem resolves catalog prices and stock for the (product, variant) pair
// and appends the line item.
func (s *Service) AddItem(ctx context.Context, draftID uuid.UUID, req ItemRequest) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "add_item", func(o *ledger.Order) error {
		product, err := s.Catalog.Product(ctx, req.ProductID)
		if err != nil {
			return err
		}
		sell, buy := product.SellPrice, product.BuyPrice
		if req.VariantID != nil {
			variant, err := s.Catalog.Variant(ctx, req.ProductID, *req.VariantID)
			if err != nil {
				return err
			}
			sell, buy = variant.SellPrice, variant.BuyPrice
		}
		// Prices may come from the cache; the stock ceiling never does.
		stock, err := s.Catalog.AvailableStock(ctx, req.ProductID, req.VariantID)
		if err != nil {
			return err
		}
		_, err = o.AddItem(ledger.ItemInput{
			ProductID:     req.ProductID,
			VariantID:     req.VariantID,
			Qty:           req.Qty,
			UnitSellPrice: sell,
			UnitBuyPrice:  buy,
		}, stock)
		return err
	})
}

// RemoveItem deletes a line item from the draft.
func (s *Service) RemoveItem(ctx context.Context, draftID, itemID uuid.UUID) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "remove_item", func(o *ledger.Order) error {
		o.RemoveItem(itemID)
		return nil
	})
}

// UpdateItemQty changes a line item quantity against the current stock ceiling.
func (s *Service) UpdateItemQty(ctx context.Context, draftID, itemID uuid.UUID, qty int) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "update_qty", func(o *ledger.Order) error {
		item, ok := findItem(o, itemID)
		if !ok {
			return ledger.ErrItemNotFound
		}
		stock, err := s.Catalog.AvailableStock(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return err
		}
		return o.UpdateQuantity(itemID, qty, stock)
	})
}

// UpdateItemPrice overrides a line item's sell price manually.
func (s *Service) UpdateItemPrice(ctx context.Context, draftID, itemID uuid.UUID, price int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "update_price", func(o *ledger.Order) error {
		return o.UpdateUnitPrice(itemID, price)
	})
}

// SelectVariant switches a line item to another variant of its product,
// re-deriving both unit prices from the catalog.
func (s *Service) SelectVariant(ctx context.Context, draftID, itemID, variantID uuid.UUID) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "select_variant", func(o *ledger.Order) error {
		item, ok := findItem(o, itemID)
		if !ok {
			return ledger.ErrItemNotFound
		}
		variant, err := s.Catalog.Variant(ctx, item.ProductID, variantID)
		if err != nil {
			return err
		}
		return o.SelectVariant(itemID, ledger.VariantPrice{
			VariantID: variant.ID,
			SellPrice: variant.SellPrice,
			BuyPrice:  variant.BuyPrice,
			Stock:     variant.Stock,
		})
	})
}

// SetDiscountMode switches between percentage and flat discount.
func (s *Service) SetDiscountMode(ctx context.Context, draftID uuid.UUID, mode ledger.DiscountMode) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_discount_mode", func(o *ledger.Order) error {
		o.SetDiscountMode(mode)
		return nil
	})
}

// SetDiscountPercent stores the percentage discount in basis points.
func (s *Service) SetDiscountPercent(ctx context.Context, draftID uuid.UUID, bps int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_discount_percent", func(o *ledger.Order) error {
		o.SetDiscountPercentBps(bps)
		return nil
	})
}

// SetDiscountFlat stores a flat discount amount.
func (s *Service) SetDiscountFlat(ctx context.Context, draftID uuid.UUID, amount int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_discount_flat", func(o *ledger.Order) error {
		o.SetDiscountFlat(amount)
		return nil
	})
}

// SetVAT stores the VAT rate in basis points.
func (s *Service) SetVAT(ctx context.Context, draftID uuid.UUID, bps int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_vat", func(o *ledger.Order) error {
		o.SetVATBps(bps)
		return nil
	})
}

// SetDueAmount records the operator-entered due figure.
func (s *Service) SetDueAmount(ctx context.Context, draftID uuid.UUID, amount int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_due", func(o *ledger.Order) error {
		o.SetDueAmount(amount)
		return nil
	})
}

// SetApplyPreviousDue toggles folding the carried balance into the total.
func (s *Service) SetApplyPreviousDue(ctx context.Context, draftID uuid.UUID, apply bool) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "toggle_previous_due", func(o *ledger.Order) error {
		o.SetApplyPreviousDue(apply)
		return nil
	})
}

// AddPayment records a payment entry on the draft.
func (s *Service) AddPayment(ctx context.Context, draftID uuid.UUID, method ledger.PaymentMethod, amount int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "add_payment", func(o *ledger.Order) error {
		_, err := o.AddPayment(method, amount)
		return err
	})
}

// UpdatePaymentAmount changes the amount of an existing payment entry.
func (s *Service) UpdatePaymentAmount(ctx context.Context, draftID, paymentID uuid.UUID, amount int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "update_payment", func(o *ledger.Order) error {
		return o.UpdatePaymentAmount(paymentID, amount)
	})
}

// RemovePayment deletes a payment entry.
func (s *Service) RemovePayment(ctx context.Context, draftID, paymentID uuid.UUID) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "remove_payment", func(o *ledger.Order) error {
		o.RemovePayment(paymentID)
		return nil
	})
}

// SetIncentive assigns (or clears, when employeeID is nil and amount is zero)
// the sales incentive. The employee is verified against the directory; an
// amount without an employee is allowed and surfaces as a warning.
func (s *Service) SetIncentive(ctx context.Context, draftID uuid.UUID, employeeID *uuid.UUID, amount int64) (*ledger.Order, error) {
	return s.mutate(ctx, draftID, "set_incentive", func(o *ledger.Order) error {
		if employeeID != nil {
			if s.Employees == nil {
				return errors.New("employee store not configured")
			}
			if _, err := s.Employees.Get(ctx, *employeeID); err != nil {
				return err
			}
		}
		if employeeID == nil && amount == 0 {
			o.ClearIncentive()
			return nil
		}
		return o.AssignIncentive(employeeID, amount)
	})
}

// Save persists the draft with its last-derived totals, emits the saved event,
// schedules the previous-due settlement and discards the draft session.
func (s *Service) Save(ctx context.Context, draftID uuid.UUID) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	o, err := s.Drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.validateStock(ctx, o); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, o, s.Currency); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	if obs.OrdersSavedTotal != nil {
		obs.OrdersSavedTotal.Inc()
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderSaved, o.ID, map[string]any{
			"orderId":          o.ID,
			"customerId":       o.CustomerID,
			"total":            o.Totals.Total,
			"remainingBalance": o.Totals.RemainingBalance,
			"warnings":         o.Warnings(),
		})
	}
	s.scheduleSettlement(ctx, o)

	if err := s.Drafts.Delete(ctx, draftID); err != nil {
		s.Logger.Warn().Err(err).Str("draft_id", draftID.String()).Msg("discard draft after save")
	}
	return o, nil
}

// validateStock re-checks every line against the store of record right before
// the order is persisted. Draft-time checks may have raced other sales, and
// several lines can share one stock pool, so quantities are summed per
// (product, variant) pair.
func (s *Service) validateStock(ctx context.Context, o *ledger.Order) error {
	type stockKey struct {
		product uuid.UUID
		variant uuid.UUID
	}
	wanted := map[stockKey]int{}
	for _, item := range o.Items {
		k := stockKey{product: item.ProductID}
		if item.VariantID != nil {
			k.variant = *item.VariantID
		}
		wanted[k] += item.Qty
	}
	for k, qty := range wanted {
		var variantID *uuid.UUID
		if k.variant != uuid.Nil {
			v := k.variant
			variantID = &v
		}
		available, err := s.Catalog.AvailableStock(ctx, k.product, variantID)
		if err != nil {
			return err
		}
		if qty > available {
			return fmt.Errorf("product %s: requested %d, available %d: %w", k.product, qty, available, ledger.ErrInsufficientStock)
		}
	}
	return nil
}

// scheduleSettlement derives the carried-balance delta for the customer. When
// the previous due was folded into this order's total the old balance is
// replaced by the unpaid remainder; otherwise the remainder simply accrues on
// top of it.
func (s *Service) scheduleSettlement(ctx context.Context, o *ledger.Order) {
	if s.Tasks == nil || o.CustomerID == nil {
		return
	}
	delta := o.Totals.RemainingBalance
	if o.ApplyPreviousDue {
		delta = o.Totals.RemainingBalance - o.PreviousDue
	}
	if delta == 0 {
		return
	}
	task, err := tasks.NewPreviousDueSettleTask(tasks.PreviousDueSettlePayload{
		OrderID:    o.ID,
		CustomerID: *o.CustomerID,
		Delta:      delta,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("build settlement task")
		return
	}
	if err := s.Tasks.Enqueue(ctx, task); err != nil {
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("enqueue settlement task")
	}
}

// Get returns a persisted order with re-derived totals.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	o, snapshot, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot != o.Totals {
		if obs.StaleTotalsTotal != nil {
			obs.StaleTotalsTotal.Inc()
		}
		s.Logger.Warn().Str("order_id", id.String()).Msg("persisted totals diverged from derivation")
	}
	return o, nil
}

// List returns persisted order summaries with the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Summary, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	summaries, err := s.Store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// mutate runs one ledger operation against a loaded draft and stores the
// result. The draft write happens only after the operation succeeded, so a
// rejected mutation leaves the stored draft untouched too.
func (s *Service) mutate(ctx context.Context, draftID uuid.UUID, op string, fn func(*ledger.Order) error) (*ledger.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	o, err := s.Drafts.Get(ctx, draftID)
	if err != nil {
		countMutation(op, "load_error")
		return nil, err
	}
	if err := fn(o); err != nil {
		countMutation(op, "rejected")
		return nil, err
	}
	if err := s.Drafts.Put(ctx, o); err != nil {
		countMutation(op, "store_error")
		return nil, err
	}
	countMutation(op, "ok")
	return o, nil
}

func countMutation(op, result string) {
	if obs.DraftMutationsTotal != nil {
		obs.DraftMutationsTotal.WithLabelValues(op, result).Inc()
	}
}

func findItem(o *ledger.Order, id uuid.UUID) (ledger.LineItem, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ledger.LineItem{}, false
}
