package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/obs"
)

// Service serves catalog reads through a Redis cache and answers the stock
// questions the order ledger asks before accepting a quantity.
type Service struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

func productKey(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}

// Product returns a single product, cache first.
func (s *Service) Product(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, productKey(id), &cached); err == nil && ok {
		countCacheLookup("hit")
		return cached, nil
	}
	countCacheLookup("miss")
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.SetJSON(ctx, productKey(id), product)
	return product, nil
}

// Products returns a page of products plus the total count.
func (s *Service) Products(ctx context.Context, page, perPage int) ([]Product, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	if perPage <= 0 {
		perPage = s.DefaultLimit
	}
	if s.MaxLimit > 0 && perPage > s.MaxLimit {
		perPage = s.MaxLimit
	}
	if page <= 0 {
		page = 1
	}
	products, err := s.Store.ListProducts(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountProducts(ctx)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Variant returns a variant by id, verifying it belongs to the given product.
func (s *Service) Variant(ctx context.Context, productID, variantID uuid.UUID) (Variant, error) {
	if s == nil || s.Store == nil {
		return Variant{}, errors.New("catalog service not configured")
	}
	variant, err := s.Store.GetVariant(ctx, variantID)
	if err != nil {
		return Variant{}, err
	}
	if variant.ProductID != productID {
		return Variant{}, fmt.Errorf("variant %s does not belong to product %s: %w", variantID, productID, ErrNotFound)
	}
	return variant, nil
}

// Variants lists all variants of a product.
func (s *Service) Variants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.Store.ListVariants(ctx, productID)
}

// AvailableStock reports the current stock for the exact (product, variant)
// pair. When a variant is given its stock governs; otherwise the base product
// stock does. Stock reads always go to the store of record, never the cache,
// so quantity validation cannot accept stock that is already gone.
func (s *Service) AvailableStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	if s == nil || s.Store == nil {
		return 0, errors.New("catalog service not configured")
	}
	if variantID != nil {
		variant, err := s.Variant(ctx, productID, *variantID)
		if err != nil {
			return 0, err
		}
		return variant.Stock, nil
	}
	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

func countCacheLookup(result string) {
	if obs.CatalogCacheHits != nil {
		obs.CatalogCacheHits.WithLabelValues(result).Inc()
	}
}
