// Package gateway defines domain types and interfaces for the CVPS gateway.
// This package has no project imports -- it is the dependency root.
package gateway

import (
	"context"
	"math"
	"time"
)

// Version is the CVPS API contract version reported in response envelopes
// and on the health endpoint.
const Version = "3.2"

// ServiceName identifies this service in health responses.
const ServiceName = "cvps_processor"

// --- Media ---

// MediaImage is an image reference. URL is a relative path under /media/.
type MediaImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// MediaVideo is a video reference with an optional poster frame.
type MediaVideo struct {
	URL      string `json:"url"`
	Poster   string `json:"poster,omitempty"`
	Autoplay bool   `json:"autoplay,omitempty"`
}

// ProductImages holds the main image and thumbnail set for a product.
type ProductImages struct {
	Main       *MediaImage  `json:"main"`
	Thumbnails []MediaImage `json:"thumbnails"`
}

// ProductVideo is a hosted or embedded product video.
type ProductVideo struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Duration  int    `json:"duration,omitempty"`
	Provider  string `json:"provider"` // "direct", "youtube", "vimeo"
	Thumbnail string `json:"thumbnail,omitempty"`
	Poster    string `json:"poster,omitempty"`
}

// --- Pricing ---

// Price carries the website and wholesale price tiers. A nil side means the
// product is not offered at that tier; it is a meaningful state, not an error.
type Price struct {
	Website   *float64 `json:"website"`
	Wholesale *float64 `json:"wholesale"`
}

// --- Tagging ---

// TagCategory groups related tags under a display name and color.
// Tag membership across categories is disjoint within a catalog.
type TagCategory struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Tags        []string `json:"tags"`
}

// TagMetadata maps a tag-category name to the subset of a product's tags
// that belong to that category.
type TagMetadata map[string][]string

// PriceRange summarizes website prices over the active catalog.
type PriceRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// FilterOptions is a derived snapshot of the filterable dimensions of the
// current product collection. It is rebuilt on invalidation and replaced
// atomically, never mutated in place.
type FilterOptions struct {
	Tags          []string      `json:"tags"`
	TagCategories []TagCategory `json:"tag_categories"`
	PriceRange    PriceRange    `json:"price_range"`
}

// --- Search ---

// Sort fields accepted by product search.
const (
	SortByName       = "name"
	SortByPrice      = "price"
	SortByCreated    = "created"
	SortByPopularity = "popularity"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SearchParams are the faceted-search inputs echoed back on search responses.
type SearchParams struct {
	Query      string           `json:"q,omitempty"`
	Tags       []string         `json:"tags"`
	Categories []string         `json:"categories"`
	PriceRange SearchPriceRange `json:"priceRange"`
	SortBy     string           `json:"sortBy,omitempty"`
	SortOrder  string           `json:"sortOrder,omitempty"`
	Page       int              `json:"-"`
	PerPage    int              `json:"-"`
}

// SearchPriceRange bounds the website price. Nil sides are unbounded.
type SearchPriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// HasPriceFilter reports whether either price bound is set.
func (p SearchParams) HasPriceFilter() bool {
	return p.PriceRange.Min != nil || p.PriceRange.Max != nil
}

// --- Pagination ---

// PaginationInfo describes one page of a paginated collection.
type PaginationInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate computes pagination metadata for a collection of total items.
func Paginate(total, page, perPage int) PaginationInfo {
	pages := 0
	if perPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return PaginationInfo{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// --- Products ---

// ProductCategoryRef is a lightweight category reference on a product.
type ProductCategoryRef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// CategoryRef is the primary category shown on a product card.
type CategoryRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductSummary is the list/search representation of a product.
type ProductSummary struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	ShortDescription string         `json:"shortDescription"`
	LongDescription  string         `json:"longDescription,omitempty"`
	Price            Price          `json:"price"`
	Category         CategoryRef    `json:"category"`
	Images           ProductImages  `json:"images"`
	Videos           []ProductVideo `json:"videos"`
	IsActive         bool           `json:"isActive"`
	Tags             []string       `json:"tags"`
	SearchTerms      []string       `json:"searchTerms"`
	TagCategories    TagMetadata    `json:"tagCategories"`
	CategorySlugs    []string       `json:"-"` // all category memberships, for filtering
	Popularity       int            `json:"-"` // external ranking signal
	CreatedAt        time.Time      `json:"-"`
}

// HasTag reports whether the product carries the given tag.
func (p *ProductSummary) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// InCategory reports whether the product belongs to the category slug.
func (p *ProductSummary) InCategory(slug string) bool {
	if p.Category.Slug == slug {
		return true
	}
	for _, s := range p.CategorySlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// ProductDetail extends ProductSummary with the full category set and SKU.
type ProductDetail struct {
	ProductSummary
	Number          string               `json:"number"` // SKU
	Categories      []ProductCategoryRef `json:"categories"`
	PrimaryCategory *ProductCategoryRef  `json:"primaryCategory"`
}

// --- Blog ---

// BlogSummary is the list representation of a blog post.
type BlogSummary struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	FeaturedImage MediaImage `json:"featuredImage"`
	PublishedAt   time.Time  `json:"publishedAt"`
	Author        string     `json:"author"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	ReadTime      string     `json:"readTime"`
}

// BlogDetail extends BlogSummary with rich content and SEO metadata.
type BlogDetail struct {
	BlogSummary
	Content   []ContentBlock `json:"content"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Galleries []GalleryRef   `json:"galleries"`
	SEO       SEOData        `json:"seo"`
}

// GalleryRef links a post to an embedded gallery.
type GalleryRef struct {
	ID int `json:"id"`
}

// Content block kinds. ContentBlock is a tagged union discriminated by Kind;
// render paths dispatch on it with a single exhaustive switch.
const (
	BlockText    = "text"
	BlockHeading = "heading"
	BlockImage   = "image"
	BlockVideo   = "video"
)

// ContentBlock is one block of rich post content. Only the fields for the
// declared Kind are populated.
type ContentBlock struct {
	Kind  string      `json:"kind"`
	Text  string      `json:"text,omitempty"`  // text, heading
	Level int         `json:"level,omitempty"` // heading
	Image *MediaImage `json:"image,omitempty"` // image
	Video *MediaVideo `json:"video,omitempty"` // video
}

// Valid reports whether the block's populated fields match its Kind.
func (b ContentBlock) Valid() bool {
	switch b.Kind {
	case BlockText:
		return b.Text != ""
	case BlockHeading:
		return b.Text != "" && b.Level >= 1 && b.Level <= 6
	case BlockImage:
		return b.Image != nil
	case BlockVideo:
		return b.Video != nil
	default:
		return false
	}
}

// --- Categories ---

// CategoryNode is one node of the category tree. Nodes are held in a flat
// slice; Parent is the index of the parent node in that slice, or -1 for
// roots. Children are reconstructed on assembly.
type CategoryNode struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Level        int    `json:"level"`
	ProductCount int    `json:"productCount"`
	Parent       int    `json:"parent"`
}

// CategoryTree is the rendered recursive form of a CategoryNode.
type CategoryTree struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Level        int            `json:"level"`
	ProductCount int            `json:"productCount"`
	Children     []CategoryTree `json:"children"`
}

// CategoryDetail is the single-category representation.
type CategoryDetail struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	ParentID      *int          `json:"parentId"`
	Level         int           `json:"level"`
	Description   string        `json:"description"`
	Image         *string       `json:"image"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Subcategory is a child entry on a category detail.
type Subcategory struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"product_count"`
}

// CategoryProduct is the trimmed product shape returned with a category.
// Price is the website price collapsed to a single nullable number.
type CategoryProduct struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	Number           string   `json:"number"`
	ShortDescription string   `json:"shortDescription"`
	Price            *float64 `json:"price"`
	MainImage        *string  `json:"mainImage"`
	Thumbnail        *string  `json:"thumbnail"`
	IsActive         bool     `json:"isActive"`
	Tags             []string `json:"tags"`
	SearchTerms      []string `json:"searchTerms"`
}

// --- Galleries ---

// GalleryImage is one image within a gallery.
type GalleryImage struct {
	ID      int    `json:"id"`
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	Order   int    `json:"order"`
}

// GallerySummary is the list representation of a gallery.
type GallerySummary struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	ImageCount  int            `json:"imageCount"`
	Images      []GalleryImage `json:"images"`
}

// GalleryDetail extends GallerySummary with layout and SEO metadata.
type GalleryDetail struct {
	GallerySummary
	Layout       string     `json:"layout"`
	Columns      int        `json:"columns"`
	ShowCaptions bool       `json:"showCaptions"`
	Spacing      string     `json:"spacing"`
	PublishedAt  time.Time  `json:"publishedAt"`
	CreatedBy    string     `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	SEO          GallerySEO `json:"seo"`
}

// GallerySEO holds gallery-specific SEO fields.
type GallerySEO struct {
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

// SEOData holds page SEO metadata.
type SEOData struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords,omitempty"`
	OGTitle       string   `json:"ogTitle,omitempty"`
	OGDescription string   `json:"ogDescription,omitempty"`
}

// --- Homepage ---

// CTA is a call-to-action link.
type CTA struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// HeroSection is the homepage hero block.
type HeroSection struct {
	Title           string      `json:"title"`
	Subtitle        string      `json:"subtitle"`
	BackgroundImage MediaImage  `json:"backgroundImage"`
	BackgroundVideo *MediaVideo `json:"backgroundVideo,omitempty"`
	PrimaryCTA      CTA         `json:"primaryCTA"`
	SecondaryCTA    CTA         `json:"secondaryCTA"`
}

// WelcomeBanner is the homepage welcome block.
type WelcomeBanner struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Tagline      string `json:"tagline"`
	Description  string `json:"description"`
	PrimaryCTA   CTA    `json:"primaryCTA"`
	SecondaryCTA CTA    `json:"secondaryCTA"`
}

// FeatureItem is one entry in the homepage features block.
type FeatureItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Features is the homepage features block.
type Features struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Items    []FeatureItem `json:"items"`
}

// TestimonialItem is one customer testimonial.
type TestimonialItem struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Role     string `json:"role"`
	Location string `json:"location"`
}

// Testimonials is the homepage testimonials block.
type Testimonials struct {
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle"`
	Items    []TestimonialItem `json:"items"`
}

// SectionHeading titles a homepage section.
type SectionHeading struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// TextSlider is the scrolling text strip under the hero.
type TextSlider struct {
	Text string `json:"text"`
}

// HomepageData is the full homepage content payload.
type HomepageData struct {
	Hero             HeroSection    `json:"hero"`
	TextSlider       TextSlider     `json:"textSlider"`
	WelcomeBanner    WelcomeBanner  `json:"welcomeBanner"`
	Features         Features       `json:"features"`
	Testimonials     Testimonials   `json:"testimonials"`
	CategoryGrid     SectionHeading `json:"categoryGrid"`
	FeaturedProducts SectionHeading `json:"featuredProducts"`
	BlogSection      SectionHeading `json:"blogSection"`
	PressSection     SectionHeading `json:"pressSection"`
	SEO              SEOData        `json:"seo"`
}

// --- Newsletter ---

// NewsletterSettings controls signup behavior.
type NewsletterSettings struct {
	Enabled              bool `json:"enabled"`
	DoubleOptIn          bool `json:"doubleOptIn"`
	ConfirmationRequired bool `json:"confirmationRequired"`
}

// NewsletterContent is the static newsletter signup block.
type NewsletterContent struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Placeholder string             `json:"placeholder"`
	ButtonText  string             `json:"buttonText"`
	PrivacyText string             `json:"privacyText"`
	Settings    NewsletterSettings `json:"settings"`
}

// --- Usage accounting ---

// RequestStat is a single served-request record, batch-persisted off the
// request path for the health and stats surfaces.
type RequestStat struct {
	ID          string    `json:"id"`
	KeyPrefix   string    `json:"key_prefix"` // first 8 chars of the API key, never the full key
	SiteID      string    `json:"site_id"`
	Endpoint    string    `json:"endpoint"`
	CacheStatus string    `json:"cache_status"` // HIT, MISS, STALE
	StatusCode  int       `json:"status_code"`
	LatencyMs   int       `json:"latency_ms"`
	RequestID   string    `json:"request_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatSummary aggregates served-request records over a window.
type StatSummary struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	StaleServed   int64   `json:"stale_served"`
	ErrorCount    int64   `json:"error_count"` // status >= 500
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// --- Identity ---

// Identity is the authenticated caller attached to request context.
type Identity struct {
	APIKey string `json:"-"`
	SiteID string `json:"site_id"`
}

// Bucket returns the rate-limit bucket key for this credential pair.
func (id *Identity) Bucket() string { return id.APIKey + ":" + id.SiteID }

// KeyPrefix returns a loggable prefix of the API key.
func (id *Identity) KeyPrefix() string {
	if len(id.APIKey) <= 8 {
		return id.APIKey
	}
	return id.APIKey[:8]
}

// --- Context keys ---

type contextKey int

const ctxKeyMeta contextKey = 0

// requestMeta bundles per-request values into a single context allocation.
// The Identity field is set later by the authenticate middleware via mutation
// of the same pointer, avoiding a second context.WithValue + Request.WithContext.
type requestMeta struct {
	RequestID string
	Identity  *Identity
}

func metaFromContext(ctx context.Context) *requestMeta {
	m, _ := ctx.Value(ctxKeyMeta).(*requestMeta)
	return m
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	if m := metaFromContext(ctx); m != nil {
		return m.Identity
	}
	return nil
}

// ContextWithIdentity stores the identity in the existing requestMeta if
// present, avoiding a new context.WithValue allocation.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	if m := metaFromContext(ctx); m != nil {
		m.Identity = id
		return ctx
	}
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{Identity: id})
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.RequestID
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{RequestID: id})
}

// --- Authenticator ---

// Authenticator validates the X-API-Key / X-Site-ID credential pair and
// returns the caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey, siteID string) (*Identity, error)
}
