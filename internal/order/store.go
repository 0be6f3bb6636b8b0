package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/ledger"
)

// ErrNotFound indicates the requested persisted order does not exist.
var ErrNotFound = errors.New("order: not found")

// ErrStoreUnavailable indicates the order store dependency is not configured.
var ErrStoreUnavailable = errors.New("order: store unavailable")

// Summary is a list-view row for persisted orders.
type Summary struct {
	ID               uuid.UUID  `json:"id"`
	CustomerID       *uuid.UUID `json:"customerId,omitempty"`
	Currency         string     `json:"currency"`
	Total            int64      `json:"total"`
	TotalReceived    int64      `json:"totalReceived"`
	RemainingBalance int64      `json:"remainingBalance"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Store persists orders together with their last-derived totals snapshot.
// The snapshot is written for reporting queries only; loads always re-derive.
type Store interface {
	Save(ctx context.Context, o *ledger.Order, currency string) error
	Get(ctx context.Context, id uuid.UUID) (*ledger.Order, ledger.Totals, error)
	List(ctx context.Context, limit, offset int) ([]Summary, error)
	Count(ctx context.Context) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Save upserts the order header and replaces its items and payments in a
// single transaction, so a re-saved edit can never leave mixed rows behind.
func (s *pgStore) Save(ctx context.Context, o *ledger.Order, currency string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	t := o.Totals
	_, err = tx.Exec(ctx, `INSERT INTO orders (
	id, customer_id, currency,
	discount_mode, discount_percent_bps, discount_flat, vat_bps,
	due_amount, previous_due, apply_previous_due,
	incentive_employee_id, incentive_amount,
	subtotal, discount_amount, vat_amount, total,
	total_received, remaining_balance,
	total_buy_price, gross_profit, net_profit
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (id) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	currency = EXCLUDED.currency,
	discount_mode = EXCLUDED.discount_mode,
	discount_percent_bps = EXCLUDED.discount_percent_bps,
	discount_flat = EXCLUDED.discount_flat,
	vat_bps = EXCLUDED.vat_bps,
	due_amount = EXCLUDED.due_amount,
	previous_due = EXCLUDED.previous_due,
	apply_previous_due = EXCLUDED.apply_previous_due,
	incentive_employee_id = EXCLUDED.incentive_employee_id,
	incentive_amount = EXCLUDED.incentive_amount,
	subtotal = EXCLUDED.subtotal,
	discount_amount = EXCLUDED.discount_amount,
	vat_amount = EXCLUDED.vat_amount,
	total = EXCLUDED.total,
	total_received = EXCLUDED.total_received,
	remaining_balance = EXCLUDED.remaining_balance,
	total_buy_price = EXCLUDED.total_buy_price,
	gross_profit = EXCLUDED.gross_profit,
	net_profit = EXCLUDED.net_profit,
	updated_at = now()`,
		o.ID, o.CustomerID, currency,
		string(o.DiscountMode), o.DiscountPercentBps, o.DiscountFlat, o.VATBps,
		o.DueAmount, o.PreviousDue, o.ApplyPreviousDue,
		o.Incentive.EmployeeID, o.Incentive.Amount,
		t.Subtotal, t.DiscountAmount, t.VATAmount, t.Total,
		t.TotalReceived, t.RemainingBalance,
		t.TotalBuyPrice, t.GrossProfit, t.NetProfit)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO order_items (id, order_id, product_id, variant_id, qty, unit_sell_price, unit_buy_price, price_source)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, o.ID, it.ProductID, it.VariantID, it.Qty, it.UnitSellPrice, it.UnitBuyPrice, string(it.PriceSource)); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_payments WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	for _, p := range o.Payments {
		if _, err := tx.Exec(ctx, `INSERT INTO order_payments (id, order_id, method, amount) VALUES ($1,$2,$3,$4)`,
			p.ID, o.ID, string(p.Method), p.Amount); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get loads a persisted order. The returned Totals are the persisted snapshot;
// the order itself carries freshly re-derived totals so callers never trust
// storage.
func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, ledger.Totals, error) {
	if s == nil || s.pool == nil {
		return nil, ledger.Totals{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, customer_id,
	discount_mode, discount_percent_bps, discount_flat, vat_bps,
	due_amount, previous_due, apply_previous_due,
	incentive_employee_id, incentive_amount,
	subtotal, discount_amount, vat_amount, total,
	total_received, remaining_balance,
	total_buy_price, gross_profit, net_profit
FROM orders WHERE id = $1`, id)

	var (
		o        ledger.Order
		mode     string
		snapshot ledger.Totals
	)
	err := row.Scan(&o.ID, &o.CustomerID,
		&mode, &o.DiscountPercentBps, &o.DiscountFlat, &o.VATBps,
		&o.DueAmount, &o.PreviousDue, &o.ApplyPreviousDue,
		&o.Incentive.EmployeeID, &o.Incentive.Amount,
		&snapshot.Subtotal, &snapshot.DiscountAmount, &snapshot.VATAmount, &snapshot.Total,
		&snapshot.TotalReceived, &snapshot.RemainingBalance,
		&snapshot.TotalBuyPrice, &snapshot.GrossProfit, &snapshot.NetProfit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.Totals{}, ErrNotFound
		}
		return nil, ledger.Totals{}, err
	}
	o.DiscountMode = ledger.DiscountMode(mode)

	itemRows, err := s.pool.Query(ctx, `SELECT id, product_id, variant_id, qty, unit_sell_price, unit_buy_price, price_source
FROM order_items WHERE order_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, ledger.Totals{}, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			it     ledger.LineItem
			source string
		)
		if err := itemRows.Scan(&it.ID, &it.ProductID, &it.VariantID, &it.Qty, &it.UnitSellPrice, &it.UnitBuyPrice, &source); err != nil {
			return nil, ledger.Totals{}, err
		}
		it.PriceSource = ledger.PriceSource(source)
		o.Items = append(o.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, ledger.Totals{}, err
	}

	payRows, err := s.pool.Query(ctx, `SELECT id, method, amount FROM order_payments WHERE order_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, ledger.Totals{}, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var (
			p      ledger.PaymentEntry
			method string
		)
		if err := payRows.Scan(&p.ID, &method, &p.Amount); err != nil {
			return nil, ledger.Totals{}, err
		}
		p.Method = ledger.PaymentMethod(method)
		o.Payments = append(o.Payments, p)
	}
	if err := payRows.Err(); err != nil {
		return nil, ledger.Totals{}, err
	}

	o.Totals = ledger.Recompute(o)
	return &o, snapshot, nil
}

func (s *pgStore) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `SELECT id, customer_id, currency, total, total_received, remaining_balance, created_at
FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0, limit)
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.CustomerID, &sm.Currency, &sm.Total, &sm.TotalReceived, &sm.RemainingBalance, &sm.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

func (s *pgStore) Count(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
