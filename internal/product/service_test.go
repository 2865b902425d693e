// AngelaMos | 2026
// service_test.go

package product

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/core"
)

type countingRepo struct {
	products  map[string]Product
	listCalls int
	getCalls  int
	lowCalls  int
	lastLow   int
}

func newCountingRepo(products ...Product) *countingRepo {
	r := &countingRepo{products: make(map[string]Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*Product, error) {
	r.getCalls++
	p, ok := r.products[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (r *countingRepo) List(_ context.Context, _ ListParams) ([]Product, int, error) {
	r.listCalls++
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *countingRepo) LowStock(_ context.Context, threshold int) ([]Product, error) {
	r.lowCalls++
	r.lastLow = threshold
	var out []Product
	for _, p := range r.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *countingRepo) Upsert(_ context.Context, p *Product) error {
	if _, ok := r.products[p.ID]; !ok {
		r.products[p.ID] = *p
	}
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestService_ListIsCachedPerQuery(t *testing.T) {
	repo := newCountingRepo(SampleProducts()...)
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.List(ctx, ListParams{Category: "Books"})
	require.NoError(t, err)
	second, err := svc.List(ctx, ListParams{Category: " books ", Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	assert.Same(t, first, second)

	_, err = svc.List(ctx, ListParams{Category: "Books", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_SeedFlushesCache(t *testing.T) {
	repo := newCountingRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	page, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	require.NoError(t, svc.Seed(ctx, SampleProducts()))

	page, err = svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_GetCachesHitsOnly(t *testing.T) {
	repo := newCountingRepo(SampleProducts()...)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Get(ctx, "prod_1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "prod_1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 3, repo.getCalls)
}

func TestService_LowStockReadsThrough(t *testing.T) {
	repo := newCountingRepo(
		Product{ID: "a", Stock: 0},
		Product{ID: "b", Stock: 9},
		Product{ID: "c", Stock: 10},
	)
	svc := newTestService(repo)
	ctx := context.Background()

	products, threshold, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLowStockThreshold, threshold)
	assert.Len(t, products, 2)

	_, threshold, err = svc.LowStock(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxLowStockThreshold, threshold)
	assert.Equal(t, MaxLowStockThreshold, repo.lastLow)
	assert.Equal(t, 2, repo.lowCalls)
}

func TestService_ZeroTTLReadsThrough(t *testing.T) {
	repo := newCountingRepo(SampleProducts()...)
	svc := NewService(repo, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	first, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)

	require.NoError(t, repo.Upsert(ctx, &Product{ID: "prod_4", Name: "Fresh", Stock: 1}))

	second, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 4, second.Total)
	assert.Equal(t, 2, repo.listCalls)

	_, err = svc.Get(ctx, "prod_4")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "prod_4")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)

	require.NoError(t, svc.Seed(ctx, nil))
}
