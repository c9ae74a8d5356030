package server

import (
	"net/url"
	"strconv"
	"strings"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// fieldErrors accumulates per-field validation messages for the 400 envelope.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// splitList parses a comma-separated (possibly repeated) query parameter into
// trimmed non-empty values.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parsePage extracts page/per_page with defaults 1 and 20.
func (s *server) parsePage(q url.Values, errs fieldErrors) (page, perPage int) {
	page, perPage = 1, 20
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs.add("page", "must be a positive integer")
		} else {
			page = n
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 1:
			errs.add("per_page", "must be a positive integer")
		case n > s.deps.MaxPerPage:
			errs.add("per_page", "must be at most "+strconv.Itoa(s.deps.MaxPerPage))
		default:
			perPage = n
		}
	}
	return page, perPage
}

func parsePrice(q url.Values, field string, errs fieldErrors) *float64 {
	raw := q.Get(field)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		errs.add(field, "must be a non-negative number")
		return nil
	}
	return &f
}

var sortFields = map[string]bool{
	gateway.SortByName:       true,
	gateway.SortByPrice:      true,
	gateway.SortByCreated:    true,
	gateway.SortByPopularity: true,
}

// parseSearchParams decodes and validates the faceted search query string.
// A non-empty fieldErrors means the request must be rejected before any
// cache or upstream work.
func (s *server) parseSearchParams(q url.Values) (gateway.SearchParams, fieldErrors) {
	errs := make(fieldErrors)

	p := gateway.SearchParams{
		Query:      strings.TrimSpace(q.Get("q")),
		Tags:       splitList(q["tags"]),
		Categories: splitList(q["categories"]),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}
	p.PriceRange.Min = parsePrice(q, "price_min", errs)
	p.PriceRange.Max = parsePrice(q, "price_max", errs)
	if p.PriceRange.Min != nil && p.PriceRange.Max != nil && *p.PriceRange.Min > *p.PriceRange.Max {
		errs.add("price_min", "must not exceed price_max")
	}

	if p.SortBy != "" && !sortFields[p.SortBy] {
		errs.add("sort_by", "must be one of name, price, created, popularity")
	}
	if p.SortOrder != "" && p.SortOrder != gateway.SortAsc && p.SortOrder != gateway.SortDesc {
		errs.add("sort_order", "must be asc or desc")
	}

	p.Page, p.PerPage = s.parsePage(q, errs)

	if len(errs) > 0 {
		return gateway.SearchParams{}, errs
	}
	return p, nil
}

// parseLimit extracts an optional positive limit, 0 meaning no limit.
func parseLimit(q url.Values, errs fieldErrors) int {
	raw := q.Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		errs.add("limit", "must be a positive integer")
		return 0
	}
	return n
}
