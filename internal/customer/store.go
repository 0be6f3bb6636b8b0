package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested customer does not exist.
var ErrNotFound = errors.New("customer: not found")

// ErrStoreUnavailable indicates the customer store dependency is not configured.
var ErrStoreUnavailable = errors.New("customer: store unavailable")

// Customer is a buyer profile. PreviousDue is the carried-over balance from
// earlier orders, in minor units; it seeds the order draft when the customer
// is selected.
type Customer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	PreviousDue int64     `json:"previousDue"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store provides database accessors for customer profiles.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Customer, error)
	Search(ctx context.Context, query string, limit int) ([]Customer, error)
	AdjustPreviousDue(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	if s == nil || s.pool == nil {
		return Customer{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, name, email, phone, address, previous_due, created_at FROM customers WHERE id = $1`, id)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.PreviousDue, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (s *pgStore) Search(ctx context.Context, query string, limit int) ([]Customer, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, phone, address, previous_due, created_at FROM customers
WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1 ORDER BY name LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]Customer, 0, limit)
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.PreviousDue, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// AdjustPreviousDue applies a signed delta to the carried balance and returns
// the new value. The settlement worker is the only writer.
func (s *pgStore) AdjustPreviousDue(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var balance int64
	err := s.pool.QueryRow(ctx, `UPDATE customers SET previous_due = previous_due + $2 WHERE id = $1 RETURNING previous_due`, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}
