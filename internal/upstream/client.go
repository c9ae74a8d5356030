// Package upstream implements the HTTP client for the headless CMS backend.
//
// The client owns retries: transient failures (5xx, network errors) are
// retried with exponential backoff and jitter up to the configured attempt
// count; 4xx responses are never retried. A circuit breaker sheds load while
// the CMS is down so callers fall back to stale cache entries immediately.
// Callers always pass a context and get typed results or a sentinel error.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"github.com/tidwall/gjson"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/circuitbreaker"
	"github.com/latitude36/cvps-gateway/internal/config"
	"github.com/latitude36/cvps-gateway/internal/telemetry"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxErrorBody   = 4096
)

// Client talks to the CMS API. Safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	siteID   string
	attempts int
	timeout  time.Duration
	http     *http.Client
	breaker  *circuitbreaker.Breaker
	metrics  *telemetry.Metrics
	log      *slog.Logger
}

// New builds a Client from configuration. The transport pools connections
// and caches DNS lookups; per-request deadlines come from the configured
// timeout combined with the caller's context. metrics may be nil.
func New(cfg config.UpstreamConfig, logger *slog.Logger, metrics *telemetry.Metrics) *Client {
	resolver := &dnscache.Resolver{}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:   cfg.APIKey,
		siteID:   cfg.SiteID,
		attempts: attempts,
		timeout:  cfg.Timeout,
		http: &http.Client{
			Transport: newTransport(resolver),
		},
		breaker: circuitbreaker.NewBreaker(circuitbreaker.DefaultConfig()),
		metrics: metrics,
		log:     logger,
	}
}

// resourceOf maps a request path to its metric label, the first path segment.
func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

func newTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     200,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   false,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// apiError is a non-2xx CMS response.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("cms: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the status code for circuit breaker classification.
func (e *apiError) HTTPStatus() int { return e.StatusCode }

func retryable(status int) bool {
	return status >= 500
}

// get performs a GET with retries and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if !c.breaker.Allow() {
		return nil, fmt.Errorf("%w: circuit open", gateway.ErrUpstream)
	}

	resource := resourceOf(path)
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= c.attempts; attempt++ {
		start := time.Now()
		body, err := c.do(ctx, target)
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
			if err != nil {
				c.metrics.UpstreamErrors.WithLabelValues(resource).Inc()
			}
		}
		if err == nil {
			c.breaker.RecordSuccess()
			if attempt > 1 {
				c.log.LogAttrs(ctx, slog.LevelInfo, "cms request succeeded after retry",
					slog.String("path", path), slog.Int("attempt", attempt))
			}
			return body, nil
		}
		lastErr = err
		c.breaker.RecordError(circuitbreaker.ClassifyError(err))

		var ae *apiError
		if errors.As(err, &ae) {
			if ae.StatusCode == http.StatusNotFound {
				return nil, gateway.ErrNotFound
			}
			if !retryable(ae.StatusCode) {
				return nil, fmt.Errorf("%w: %s", gateway.ErrUpstream, ae.Message)
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == c.attempts {
			break
		}

		// Jittered exponential backoff.
		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		c.log.LogAttrs(ctx, slog.LevelWarn, "cms request failed, retrying",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", sleep),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", gateway.ErrUpstream, c.attempts, lastErr)
}

// do performs a single request attempt.
func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("cms: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.siteID != "" {
		req.Header.Set("X-Site-ID", c.siteID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &apiError{StatusCode: resp.StatusCode, Message: sniffMessage(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cms: read response: %w", err)
	}

	// Some CMS errors come back as 200 with success=false in the envelope.
	if s := gjson.GetBytes(body, "success"); s.Exists() && !s.Bool() {
		return nil, &apiError{StatusCode: resp.StatusCode, Message: sniffMessage(body)}
	}
	return body, nil
}

// sniffMessage pulls a human-readable message out of an error body without
// requiring it to be well-formed.
func sniffMessage(body []byte) string {
	for _, field := range []string{"message", "error"} {
		if v := gjson.GetBytes(body, field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if len(body) == 0 {
		return "empty response body"
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func decode[T any](body []byte, field string) (T, error) {
	var zero T
	raw := gjson.GetBytes(body, field)
	if !raw.Exists() {
		return zero, fmt.Errorf("%w: missing %q in response", gateway.ErrUpstream, field)
	}
	var out T
	if err := json.Unmarshal([]byte(raw.Raw), &out); err != nil {
		return zero, fmt.Errorf("%w: decode %q: %v", gateway.ErrUpstream, field, err)
	}
	return out, nil
}

// Products fetches the full product collection.
func (c *Client) Products(ctx context.Context) ([]gateway.ProductSummary, error) {
	body, err := c.get(ctx, "/products", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]gateway.ProductSummary](body, "products")
}

// ProductByID fetches one product by numeric ID.
func (c *Client) ProductByID(ctx context.Context, id int) (*gateway.ProductDetail, error) {
	return c.product(ctx, strconv.Itoa(id))
}

// ProductBySlug fetches one product by slug.
func (c *Client) ProductBySlug(ctx context.Context, slug string) (*gateway.ProductDetail, error) {
	return c.product(ctx, slug)
}

func (c *Client) product(ctx context.Context, ref string) (*gateway.ProductDetail, error) {
	body, err := c.get(ctx, "/products/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	p, err := decode[gateway.ProductDetail](body, "product")
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// BlogPosts fetches blog summaries, newest first. limit <= 0 means all.
func (c *Client) BlogPosts(ctx context.Context, limit int) ([]gateway.BlogSummary, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/blog", q)
	if err != nil {
		return nil, 0, err
	}
	posts, err := decode[[]gateway.BlogSummary](body, "posts")
	if err != nil {
		return nil, 0, err
	}
	total := int(gjson.GetBytes(body, "total").Int())
	if total == 0 {
		total = len(posts)
	}
	return posts, total, nil
}

// BlogByID fetches one post by numeric ID.
func (c *Client) BlogByID(ctx context.Context, id int) (*gateway.BlogDetail, error) {
	return c.blogPost(ctx, strconv.Itoa(id))
}

// BlogBySlug fetches one post by slug.
func (c *Client) BlogBySlug(ctx context.Context, slug string) (*gateway.BlogDetail, error) {
	return c.blogPost(ctx, slug)
}

func (c *Client) blogPost(ctx context.Context, ref string) (*gateway.BlogDetail, error) {
	body, err := c.get(ctx, "/blog/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	p, err := decode[gateway.BlogDetail](body, "post")
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Categories fetches the flat category node list.
func (c *Client) Categories(ctx context.Context) ([]gateway.CategoryNode, error) {
	body, err := c.get(ctx, "/categories", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]gateway.CategoryNode](body, "categories")
}

// CategoryByID fetches one category with its products.
func (c *Client) CategoryByID(ctx context.Context, id int) (*gateway.CategoryDetail, []gateway.CategoryProduct, int, error) {
	return c.category(ctx, strconv.Itoa(id))
}

// CategoryBySlug fetches one category with its products.
func (c *Client) CategoryBySlug(ctx context.Context, slug string) (*gateway.CategoryDetail, []gateway.CategoryProduct, int, error) {
	return c.category(ctx, slug)
}

func (c *Client) category(ctx context.Context, ref string) (*gateway.CategoryDetail, []gateway.CategoryProduct, int, error) {
	body, err := c.get(ctx, "/categories/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, nil, 0, err
	}
	cat, err := decode[gateway.CategoryDetail](body, "category")
	if err != nil {
		return nil, nil, 0, err
	}
	products, err := decode[[]gateway.CategoryProduct](body, "products")
	if err != nil {
		products = []gateway.CategoryProduct{}
	}
	total := int(gjson.GetBytes(body, "total").Int())
	if total == 0 {
		total = len(products)
	}
	return &cat, products, total, nil
}

// Galleries fetches gallery summaries. limit <= 0 means all.
func (c *Client) Galleries(ctx context.Context, limit int) ([]gateway.GallerySummary, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/galleries", q)
	if err != nil {
		return nil, 0, err
	}
	galleries, err := decode[[]gateway.GallerySummary](body, "galleries")
	if err != nil {
		return nil, 0, err
	}
	total := int(gjson.GetBytes(body, "total").Int())
	if total == 0 {
		total = len(galleries)
	}
	return galleries, total, nil
}

// GalleryBySlug fetches one gallery by slug.
func (c *Client) GalleryBySlug(ctx context.Context, slug string) (*gateway.GalleryDetail, error) {
	body, err := c.get(ctx, "/galleries/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	g, err := decode[gateway.GalleryDetail](body, "gallery")
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Homepage fetches the homepage content document.
func (c *Client) Homepage(ctx context.Context) (*gateway.HomepageData, error) {
	body, err := c.get(ctx, "/homepage", nil)
	if err != nil {
		return nil, err
	}
	d, err := decode[gateway.HomepageData](body, "data")
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Newsletter fetches the newsletter signup content.
func (c *Client) Newsletter(ctx context.Context) (*gateway.NewsletterContent, error) {
	body, err := c.get(ctx, "/newsletter", nil)
	if err != nil {
		return nil, err
	}
	n, err := decode[gateway.NewsletterContent](body, "content")
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Ping checks CMS reachability with a single attempt.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, c.baseURL+"/health")
	return err
}
