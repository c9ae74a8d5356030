package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/cache"
)

type blogListResponse struct {
	baseResponse
	Posts []gateway.BlogSummary `json:"posts"`
	Total int                   `json:"total"`
}

type blogPostResponse struct {
	baseResponse
	Post *gateway.BlogDetail `json:"post"`
}

type categoriesResponse struct {
	baseResponse
	Categories []gateway.CategoryTree `json:"categories"`
}

type categoryResponse struct {
	baseResponse
	Category *gateway.CategoryDetail   `json:"category"`
	Products []gateway.CategoryProduct `json:"products"`
	Total    int                       `json:"total"`
}

type galleriesResponse struct {
	baseResponse
	Galleries []gateway.GallerySummary `json:"galleries"`
	Total     int                      `json:"total"`
}

type galleryResponse struct {
	baseResponse
	Gallery *gateway.GalleryDetail `json:"gallery"`
}

type homepageResponse struct {
	baseResponse
	Data *gateway.HomepageData `json:"data"`
}

type newsletterResponse struct {
	baseResponse
	Content *gateway.NewsletterContent `json:"content"`
}

func (s *server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	errs := make(fieldErrors)
	limit := parseLimit(r.URL.Query(), errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError(errs))
		return
	}

	key := cache.Key("blog", cache.NewParams().SetInt("limit", limit))
	s.serveCached(w, r, key, cache.ResourceBlog, func(ctx context.Context) ([]byte, error) {
		posts, total, err := s.deps.CMS.BlogPosts(ctx, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(blogListResponse{baseResponse: newBase(), Posts: posts, Total: total})
	})
}

func (s *server) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "idOrSlug")
	key := cache.Key("blog/detail", cache.NewParams().SetString("ref", ref))
	s.serveCached(w, r, key, cache.ResourceBlog, func(ctx context.Context) ([]byte, error) {
		var (
			post *gateway.BlogDetail
			err  error
		)
		if id, convErr := strconv.Atoi(ref); convErr == nil {
			post, err = s.deps.CMS.BlogByID(ctx, id)
		} else {
			post, err = s.deps.CMS.BlogBySlug(ctx, ref)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(blogPostResponse{baseResponse: newBase(), Post: post})
	})
}

// handleCategories serves the rendered category forest with product counts
// from the published snapshot.
func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.syncCatalog(r); err != nil {
		s.writeError(w, err)
		return
	}
	s.serveCached(w, r, "categories", cache.ResourceCategories, func(context.Context) ([]byte, error) {
		return json.Marshal(categoriesResponse{
			baseResponse: newBase(),
			Categories:   s.deps.Engine.CategoryTree(),
		})
	})
}

func (s *server) handleCategory(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "idOrSlug")
	key := cache.Key("categories/detail", cache.NewParams().SetString("ref", ref))
	s.serveCached(w, r, key, cache.ResourceCategories, func(ctx context.Context) ([]byte, error) {
		var (
			detail   *gateway.CategoryDetail
			products []gateway.CategoryProduct
			total    int
			err      error
		)
		if id, convErr := strconv.Atoi(ref); convErr == nil {
			detail, products, total, err = s.deps.CMS.CategoryByID(ctx, id)
		} else {
			detail, products, total, err = s.deps.CMS.CategoryBySlug(ctx, ref)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(categoryResponse{
			baseResponse: newBase(),
			Category:     detail,
			Products:     products,
			Total:        total,
		})
	})
}

func (s *server) handleGalleries(w http.ResponseWriter, r *http.Request) {
	errs := make(fieldErrors)
	limit := parseLimit(r.URL.Query(), errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError(errs))
		return
	}

	key := cache.Key("galleries", cache.NewParams().SetInt("limit", limit))
	s.serveCached(w, r, key, cache.ResourceGalleries, func(ctx context.Context) ([]byte, error) {
		galleries, total, err := s.deps.CMS.Galleries(ctx, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(galleriesResponse{baseResponse: newBase(), Galleries: galleries, Total: total})
	})
}

func (s *server) handleGallery(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	key := cache.Key("galleries/detail", cache.NewParams().SetString("slug", slug))
	s.serveCached(w, r, key, cache.ResourceGalleries, func(ctx context.Context) ([]byte, error) {
		gallery, err := s.deps.CMS.GalleryBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		return json.Marshal(galleryResponse{baseResponse: newBase(), Gallery: gallery})
	})
}

func (s *server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "homepage", cache.ResourceHomepage, func(ctx context.Context) ([]byte, error) {
		data, err := s.deps.CMS.Homepage(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(homepageResponse{baseResponse: newBase(), Data: data})
	})
}

func (s *server) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "newsletter", cache.ResourceNewsletter, func(ctx context.Context) ([]byte, error) {
		content, err := s.deps.CMS.Newsletter(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(newsletterResponse{baseResponse: newBase(), Content: content})
	})
}
