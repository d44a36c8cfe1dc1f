// Package product serves the dealer-facing product read model:
// list prices, recycling fees and the distributors a product may be
// ordered from.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p5portal/backend-portal/internal/cache"
)

// ErrNotFound indicates an unknown product id.
var ErrNotFound = errors.New("product not found")

// Product is one orderable article.
type Product struct {
	ID                 int64    `json:"id"`
	SKU                string   `json:"sku"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	RetailPrice        float64  `json:"retailPrice"`
	VRG                float64  `json:"vrg"`
	PriceOnInvoice     *float64 `json:"priceOnInvoice,omitempty"`
	DealerInvoicePrice *float64 `json:"dealerInvoicePrice,omitempty"`
	Active             bool     `json:"active"`
}

// Baseline returns the reference price on invoice used for invest
// calculations: the listed invoice price, else the dealer invoice
// price, else zero.
func (p Product) Baseline() float64 {
	if p.PriceOnInvoice != nil && *p.PriceOnInvoice > 0 {
		return *p.PriceOnInvoice
	}
	if p.DealerInvoicePrice != nil && *p.DealerInvoicePrice > 0 {
		return *p.DealerInvoicePrice
	}
	return 0
}

// Store reads products from Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, sku, name, category, retail_price, vrg, price_on_invoice, dealer_invoice_price, active`

// List returns active products, optionally filtered by a search term
// against sku and name.
func (s *Store) List(ctx context.Context, query string, limit, offset int) ([]Product, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("product store not configured")
	}
	q := "%" + strings.TrimSpace(query) + "%"

	var total int64
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE active AND (sku ILIKE $1 OR name ILIKE $1)`, q).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active AND (sku ILIKE $1 OR name ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return out, total, nil
}

// Get fetches one product by id.
func (s *Store) Get(ctx context.Context, id int64) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("product store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// AllowedCodes returns the distributor codes a product may be ordered
// from, ordered by code.
func (s *Store) AllowedCodes(ctx context.Context, productID int64) ([]string, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("product store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT d.code
		FROM product_distributors pd
		JOIN distributors d ON d.id = pd.distributor_id
		WHERE pd.product_id = $1 AND d.active
		ORDER BY d.code`, productID)
	if err != nil {
		return nil, fmt.Errorf("list allowed distributors: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan allowed distributor: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list allowed distributors: %w", err)
	}
	return codes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.RetailPrice, &p.VRG, &p.PriceOnInvoice, &p.DealerInvoicePrice, &p.Active)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

type reader interface {
	List(ctx context.Context, query string, limit, offset int) ([]Product, int64, error)
	Get(ctx context.Context, id int64) (Product, error)
	AllowedCodes(ctx context.Context, productID int64) ([]string, error)
}

// Service fronts the store with a Redis cache for the hot paths.
type Service struct {
	Store reader
	Cache *cache.Cache
}

// ListResult pairs a product page with its total count.
type ListResult struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

// List returns a product page. Only the unfiltered first page is
// cached, mirroring how dealers usually enter the portal.
func (s *Service) List(ctx context.Context, query string, limit, offset int) (ListResult, error) {
	if s == nil || s.Store == nil {
		return ListResult{}, errors.New("product service not configured")
	}
	useCache := query == "" && offset == 0
	if useCache {
		var cached ListResult
		if ok, err := s.Cache.GetJSON(ctx, cache.KeyProducts, &cached); err == nil && ok {
			return cached, nil
		}
	}
	items, total, err := s.Store.List(ctx, query, limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total}
	if useCache {
		_ = s.Cache.SetJSON(ctx, cache.KeyProducts, result)
	}
	return result, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("product service not configured")
	}
	return s.Store.Get(ctx, id)
}

// AllowedCodes returns the distributor codes allowed for a product,
// cached per product.
func (s *Service) AllowedCodes(ctx context.Context, productID int64) ([]string, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("product service not configured")
	}
	key := cache.KeyProductAllowed(productID)
	var cached []string
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	codes, err := s.Store.AllowedCodes(ctx, productID)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, key, codes)
	return codes, nil
}
