// Package testutil provides configurable test fakes for gateway components.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// FakeCMS is an httptest-backed CMS API. Each resource can be overridden per
// test; unset resources serve the built-in fixtures. Handlers count requests
// so tests can assert on retry and cache behavior.
type FakeCMS struct {
	Server *httptest.Server

	Products   []gateway.ProductSummary
	Details    map[string]*gateway.ProductDetail // keyed by ID string and slug
	Posts      []gateway.BlogSummary
	PostDetail map[string]*gateway.BlogDetail
	Categories []gateway.CategoryNode
	CatDetail  map[string]*gateway.CategoryDetail
	Galleries  []gateway.GallerySummary
	GalDetail  map[string]*gateway.GalleryDetail
	Homepage   *gateway.HomepageData
	Newsletter *gateway.NewsletterContent

	// FailTimes makes every request fail with FailStatus until the counter
	// is exhausted, then serve normally. Used for retry tests.
	FailTimes  atomic.Int32
	FailStatus int

	requests atomic.Int64
}

// NewFakeCMS starts a fake CMS with the default fixtures. Callers own the
// returned server and must Close it.
func NewFakeCMS() *FakeCMS {
	f := &FakeCMS{
		Products:   FixtureProducts(),
		Details:    map[string]*gateway.ProductDetail{},
		PostDetail: map[string]*gateway.BlogDetail{},
		CatDetail:  map[string]*gateway.CategoryDetail{},
		GalDetail:  map[string]*gateway.GalleryDetail{},
		Categories: FixtureCategories(),
		Posts:      FixturePosts(),
		FailStatus: http.StatusInternalServerError,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// URL returns the fake's base URL.
func (f *FakeCMS) URL() string { return f.Server.URL }

// Close shuts the fake down.
func (f *FakeCMS) Close() { f.Server.Close() }

// Requests returns the number of requests served, including failures.
func (f *FakeCMS) Requests() int64 { return f.requests.Load() }

func (f *FakeCMS) handle(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	if f.FailTimes.Load() > 0 {
		f.FailTimes.Add(-1)
		writeJSON(w, f.FailStatus, map[string]any{
			"success": false,
			"message": "induced failure",
		})
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/health":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "healthy"})
	case path == "/products":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "products": f.Products})
	case strings.HasPrefix(path, "/products/"):
		f.serveDetail(w, strings.TrimPrefix(path, "/products/"), "product", toAny(f.Details))
	case path == "/blog":
		posts := f.Posts
		if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit < len(posts) {
			posts = posts[:limit]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "posts": posts, "total": len(f.Posts),
		})
	case strings.HasPrefix(path, "/blog/"):
		f.serveDetail(w, strings.TrimPrefix(path, "/blog/"), "post", toAny(f.PostDetail))
	case path == "/categories":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "categories": f.Categories})
	case strings.HasPrefix(path, "/categories/"):
		ref := strings.TrimPrefix(path, "/categories/")
		cat, ok := f.CatDetail[ref]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success": false, "message": "category not found",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "category": cat, "products": []gateway.CategoryProduct{}, "total": 0,
		})
	case path == "/galleries":
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "galleries": f.Galleries, "total": len(f.Galleries),
		})
	case strings.HasPrefix(path, "/galleries/"):
		f.serveDetail(w, strings.TrimPrefix(path, "/galleries/"), "gallery", toAny(f.GalDetail))
	case path == "/homepage":
		if f.Homepage == nil {
			f.Homepage = FixtureHomepage()
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": f.Homepage})
	case path == "/newsletter":
		if f.Newsletter == nil {
			f.Newsletter = FixtureNewsletter()
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "content": f.Newsletter})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false, "message": "not found",
		})
	}
}

func (f *FakeCMS) serveDetail(w http.ResponseWriter, ref, field string, byRef map[string]any) {
	d, ok := byRef[ref]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false, "message": field + " not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, field: d})
}

func toAny[T any](in map[string]*T) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
