package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/cache"
)

// baseResponse is the common envelope embedded in every content response.
type baseResponse struct {
	Success  bool      `json:"success"`
	CachedAt time.Time `json:"cached_at"`
	Version  string    `json:"version"`
}

func newBase() baseResponse {
	return baseResponse{Success: true, CachedAt: time.Now().UTC(), Version: gateway.Version}
}

type productsResponse struct {
	baseResponse
	Products   []gateway.ProductSummary `json:"products"`
	Pagination gateway.PaginationInfo   `json:"pagination"`
	Filters    *gateway.FilterOptions   `json:"filters,omitempty"`
}

type searchResponse struct {
	baseResponse
	Products     []gateway.ProductSummary `json:"products"`
	Pagination   gateway.PaginationInfo   `json:"pagination"`
	Filters      *gateway.FilterOptions   `json:"filters"`
	SearchParams gateway.SearchParams     `json:"searchParams"`
}

type productResponse struct {
	baseResponse
	Product *gateway.ProductDetail `json:"product"`
}

// catalogKey caches the snapshot sync itself. The cached body is only a
// freshness marker; the published snapshot lives in the engine.
const catalogKey = "catalog:snapshot"

// syncCatalog ensures the engine holds a snapshot no older than the products
// TTL, loading products and categories from the CMS at most once per window
// across all concurrent requests.
func (s *server) syncCatalog(r *http.Request) error {
	_, _, err := s.fetch(r, catalogKey, cache.ResourceProducts, func(ctx context.Context) ([]byte, error) {
		products, err := s.deps.CMS.Products(ctx)
		if err != nil {
			return nil, err
		}
		categories, err := s.deps.CMS.Categories(ctx)
		if err != nil {
			return nil, err
		}
		s.deps.Engine.Publish(products, categories)
		return json.Marshal(map[string]int{"products": len(products), "categories": len(categories)})
	})
	return err
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errs := make(fieldErrors)
	page, perPage := s.parsePage(q, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError(errs))
		return
	}

	if err := s.syncCatalog(r); err != nil {
		s.writeError(w, err)
		return
	}

	params := gateway.SearchParams{
		Query:   strings.TrimSpace(q.Get("search")),
		Page:    page,
		PerPage: perPage,
	}
	category := strings.TrimSpace(q.Get("category"))
	if category != "" {
		params.Categories = []string{category}
	}

	key := cache.Key("products", cache.NewParams().
		SetString("category", category).
		SetString("search", params.Query).
		SetInt("page", page).SetInt("per_page", perPage))
	s.serveCached(w, r, key, cache.ResourceProducts, func(context.Context) ([]byte, error) {
		items, total := s.deps.Engine.Search(params)
		return json.Marshal(productsResponse{
			baseResponse: newBase(),
			Products:     items,
			Pagination:   gateway.Paginate(total, page, perPage),
			Filters:      s.deps.Engine.Filters(),
		})
	})
}

func (s *server) handleProductSearch(w http.ResponseWriter, r *http.Request) {
	params, errs := s.parseSearchParams(r.URL.Query())
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError(errs))
		return
	}

	if err := s.syncCatalog(r); err != nil {
		s.writeError(w, err)
		return
	}

	key := cache.Key("products/search", cache.NewParams().
		SetString("q", params.Query).
		SetList("tags", params.Tags).
		SetList("categories", params.Categories).
		SetFloat("price_min", params.PriceRange.Min).
		SetFloat("price_max", params.PriceRange.Max).
		SetString("sort_by", params.SortBy).
		SetString("sort_order", params.SortOrder).
		SetInt("page", params.Page).
		SetInt("per_page", params.PerPage))
	s.serveCached(w, r, key, cache.ResourceProducts, func(context.Context) ([]byte, error) {
		items, total := s.deps.Engine.Search(params)
		return json.Marshal(searchResponse{
			baseResponse: newBase(),
			Products:     items,
			Pagination:   gateway.Paginate(total, params.Page, params.PerPage),
			Filters:      s.deps.Engine.Filters(),
			SearchParams: params,
		})
	})
}

func (s *server) handleProduct(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "idOrSlug")
	key := cache.Key("products/detail", cache.NewParams().SetString("ref", ref))
	s.serveCached(w, r, key, cache.ResourceProducts, func(ctx context.Context) ([]byte, error) {
		var (
			detail *gateway.ProductDetail
			err    error
		)
		if id, convErr := strconv.Atoi(ref); convErr == nil {
			detail, err = s.deps.CMS.ProductByID(ctx, id)
		} else {
			detail, err = s.deps.CMS.ProductBySlug(ctx, ref)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(productResponse{baseResponse: newBase(), Product: detail})
	})
}
