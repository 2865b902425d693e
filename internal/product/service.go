// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront/internal/core"
)

type Page struct {
	Products []Product
	Total    int
}

// Service serves catalogue reads. Listings are cached per normalized query
// for ttl; the low-stock report always reads through. A ttl of zero or less
// turns the cache off rather than caching forever.
type Service struct {
	repo   Repository
	cache  *gocache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, ttl time.Duration, logger *slog.Logger) *Service {
	s := &Service{repo: repo, logger: logger}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) cached(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) remember(key string, v any) {
	if s.cache != nil {
		s.cache.SetDefault(key, v)
	}
}

func (s *Service) List(ctx context.Context, params ListParams) (_ *Page, err error) {
	params.Normalize()
	key := params.CacheKey()

	if cached, ok := s.cached(key); ok {
		if page, ok := cached.(*Page); ok {
			core.AddSpanEvent(ctx, "product.cache_hit", attribute.String("key", key))
			return page, nil
		}
	}

	ctx, span := core.StartSpan(ctx, "product.List",
		attribute.Int("page", params.Page),
		attribute.String("category", params.Category),
	)
	defer func() { core.EndSpan(span, err) }()

	products, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	page := &Page{Products: products, Total: total}
	s.remember(key, page)
	return page, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	key := "product:" + id

	if cached, ok := s.cached(key); ok {
		if p, ok := cached.(*Product); ok {
			return p, nil
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.remember(key, p)
	return p, nil
}

func (s *Service) LowStock(ctx context.Context, threshold int) (_ []Product, _ int, err error) {
	threshold = ClampThreshold(threshold)

	ctx, span := core.StartSpan(ctx, "product.LowStock",
		attribute.Int("threshold", threshold),
	)
	defer func() { core.EndSpan(span, err) }()

	products, err := s.repo.LowStock(ctx, threshold)
	if err != nil {
		return nil, 0, err
	}

	return products, threshold, nil
}

// Seed upserts the given products and drops every cached listing.
func (s *Service) Seed(ctx context.Context, products []Product) error {
	for i := range products {
		if err := s.repo.Upsert(ctx, &products[i]); err != nil {
			return err
		}
	}

	if s.cache != nil {
		s.cache.Flush()
	}
	s.logger.InfoContext(ctx, "products seeded", "count", len(products))
	return nil
}

// SampleProducts is the catalogue the seed command installs.
func SampleProducts() []Product {
	return []Product{
		{
			ID:          "prod_1",
			Name:        "Sample Product 1",
			Description: "This is a sample product for testing",
			Price:       29.99,
			Category:    "Electronics",
			Stock:       100,
			Image:       "https://via.placeholder.com/300x300?text=Product+1",
		},
		{
			ID:          "prod_2",
			Name:        "Sample Product 2",
			Description: "Another sample product for testing",
			Price:       49.99,
			Category:    "Clothing",
			Stock:       50,
			Image:       "https://via.placeholder.com/300x300?text=Product+2",
		},
		{
			ID:          "prod_3",
			Name:        "Sample Product 3",
			Description: "Yet another sample product",
			Price:       19.99,
			Category:    "Books",
			Stock:       200,
			Image:       "https://via.placeholder.com/300x300?text=Product+3",
		},
	}
}
