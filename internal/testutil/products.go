// AngelaMos | 2026
// products.go

package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/product"
)

// Products implements product.Repository over a map.
type Products struct {
	mu   sync.Mutex
	byID map[string]product.Product
}

func NewProducts(seed ...product.Product) *Products {
	p := &Products{byID: make(map[string]product.Product)}
	for i := range seed {
		_ = p.Upsert(context.Background(), &seed[i])
	}
	return p
}

func (s *Products) GetByID(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (s *Products) List(
	_ context.Context,
	params product.ListParams,
) ([]product.Product, int, error) {
	params.Normalize()

	s.mu.Lock()
	all := make([]product.Product, 0, len(s.byID))
	for _, p := range s.byID {
		if params.Category != "" && !strings.EqualFold(p.Category, params.Category) {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(params.Search)) {
			continue
		}
		all = append(all, p)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	total := len(all)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return all[start:end], total, nil
}

func (s *Products) LowStock(_ context.Context, threshold int) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []product.Product
	for _, p := range s.byID {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (s *Products) Upsert(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		return nil
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.byID[p.ID] = *p
	return nil
}

var _ product.Repository = (*Products)(nil)
