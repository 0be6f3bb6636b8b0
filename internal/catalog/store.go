package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product or variant does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrStoreUnavailable indicates the catalog store dependency is not configured.
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

// Product is a sellable catalog entry. Prices are minor units; Stock is the
// base-product stock used when no variant is selected.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	SellPrice int64     `json:"sellPrice"`
	BuyPrice  int64     `json:"buyPrice"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
}

// Variant is a concrete variation of a product with its own prices and stock.
type Variant struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	SellPrice int64     `json:"sellPrice"`
	BuyPrice  int64     `json:"buyPrice"`
	Stock     int       `json:"stock"`
}

// Store provides database accessors for catalog reads.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetVariant(ctx context.Context, id uuid.UUID) (Variant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, name, sku, sell_price, buy_price, stock, created_at FROM products WHERE id = $1`, id)
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.SellPrice, &p.BuyPrice, &p.Stock, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (s *pgStore) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	limit = clampPositive(limit, 1, 500)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, sku, sell_price, buy_price, stock, created_at FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.SellPrice, &p.BuyPrice, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *pgStore) CountProducts(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *pgStore) GetVariant(ctx context.Context, id uuid.UUID) (Variant, error) {
	if s == nil || s.pool == nil {
		return Variant{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, product_id, name, sell_price, buy_price, stock FROM product_variants WHERE id = $1`, id)
	var v Variant
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.SellPrice, &v.BuyPrice, &v.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, ErrNotFound
		}
		return Variant{}, err
	}
	return v, nil
}

func (s *pgStore) ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, product_id, name, sell_price, buy_price, stock FROM product_variants WHERE product_id = $1 ORDER BY name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SellPrice, &v.BuyPrice, &v.Stock); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func clampPositive(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
