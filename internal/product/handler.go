// AngelaMos | 2026
// handler.go

package product

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.With(middleware.RequireShopManager).Get("/low-stock", h.LowStock)
	r.Get("/{productID}", h.Get)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	params.Normalize()

	page, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		"Products retrieved successfully",
		ToProductResponseList(page.Products),
		params.Page,
		params.PageSize,
		page.Total,
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, "Product retrieved successfully", ToProductResponse(p))
}

type LowStockResponse struct {
	Threshold int               `json:"threshold"`
	Products  []ProductResponse `json:"products"`
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, threshold, err := h.service.LowStock(
		r.Context(),
		parseIntQuery(r, "threshold", DefaultLowStockThreshold),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, "Low stock products retrieved successfully", LowStockResponse{
		Threshold: threshold,
		Products:  ToProductResponseList(products),
	})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return n
}
