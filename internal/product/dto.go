// AngelaMos | 2026
// dto.go

package product

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLowStockThreshold = 10
	MaxLowStockThreshold     = 1000
)

type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image,omitempty"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ListParams struct {
	Page     int
	PageSize int
	Category string
	Search   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	p.Category = strings.TrimSpace(p.Category)
	p.Search = strings.TrimSpace(p.Search)
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// CacheKey must be called on normalized params.
func (p *ListParams) CacheKey() string {
	return fmt.Sprintf("products:%d:%d:%s:%s",
		p.Page, p.PageSize,
		strings.ToLower(p.Category), strings.ToLower(p.Search))
}

// ClampThreshold maps a missing or non-positive threshold to the default
// and caps the rest.
func ClampThreshold(threshold int) int {
	if threshold < 1 {
		return DefaultLowStockThreshold
	}
	return min(threshold, MaxLowStockThreshold)
}

func ToProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Stock:       p.Stock,
		Image:       p.Image,
		InStock:     p.InStock(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToProductResponseList(products []Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, ToProductResponse(&products[i]))
	}
	return responses
}
