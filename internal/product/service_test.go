package product_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/p5portal/backend-portal/internal/cache"
	"github.com/p5portal/backend-portal/internal/product"
)

type fakeStore struct {
	listCalls    int
	allowedCalls int
	items        []product.Product
	allowed      map[int64][]string
}

func (f *fakeStore) List(ctx context.Context, query string, limit, offset int) ([]product.Product, int64, error) {
	f.listCalls++
	return f.items, int64(len(f.items)), nil
}

func (f *fakeStore) Get(ctx context.Context, id int64) (product.Product, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, product.ErrNotFound
}

func (f *fakeStore) AllowedCodes(ctx context.Context, productID int64) ([]string, error) {
	f.allowedCalls++
	return f.allowed[productID], nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, time.Minute)
}

func TestBaselineFallbackChain(t *testing.T) {
	t.Parallel()

	poi := 410.0
	dip := 395.0

	p := product.Product{PriceOnInvoice: &poi, DealerInvoicePrice: &dip}
	require.Equal(t, 410.0, p.Baseline())

	p = product.Product{DealerInvoicePrice: &dip}
	require.Equal(t, 395.0, p.Baseline())

	zero := 0.0
	p = product.Product{PriceOnInvoice: &zero, DealerInvoicePrice: &dip}
	require.Equal(t, 395.0, p.Baseline(), "non-positive invoice price falls through")

	p = product.Product{}
	require.Equal(t, 0.0, p.Baseline())
}

func TestListCachesFirstPageOnly(t *testing.T) {
	t.Parallel()

	store := &fakeStore{items: []product.Product{{ID: 1, SKU: "TV-55", Name: "OLED55"}}}
	svc := &product.Service{Store: store, Cache: newTestCache(t)}

	_, err := svc.List(context.Background(), "", 50, 0)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), "", 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls, "unfiltered first page must be cached")

	_, err = svc.List(context.Background(), "OLED", 50, 0)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls, "filtered queries bypass the cache")
}

func TestAllowedCodesCachedPerProduct(t *testing.T) {
	t.Parallel()

	store := &fakeStore{allowed: map[int64][]string{7: {"alltron", "ep"}}}
	svc := &product.Service{Store: store, Cache: newTestCache(t)}

	codes, err := svc.AllowedCodes(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"alltron", "ep"}, codes)

	_, err = svc.AllowedCodes(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, store.allowedCalls)
}
