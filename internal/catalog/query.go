// Package catalog implements the faceted query engine over product
// collections: filtering, sorting, pagination, and facet derivation.
// All functions operate on immutable snapshots and never mutate their inputs.
package catalog

import (
	"sort"
	"strings"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// Search applies the full filter pipeline to items and returns the requested
// page plus the total match count before pagination.
//
// Pipeline order: active -> free text -> tags (AND) -> categories (OR) ->
// price -> sort -> paginate.
func Search(items []gateway.ProductSummary, p gateway.SearchParams) ([]gateway.ProductSummary, int) {
	matched := make([]gateway.ProductSummary, 0, len(items))
	tokens := tokenize(p.Query)

	for _, item := range items {
		if !item.IsActive {
			continue
		}
		if len(tokens) > 0 && !matchesText(&item, tokens) {
			continue
		}
		if !matchesTags(&item, p.Tags) {
			continue
		}
		if !matchesCategories(&item, p.Categories) {
			continue
		}
		if p.HasPriceFilter() && !matchesPrice(&item, p.PriceRange) {
			continue
		}
		matched = append(matched, item)
	}

	sortItems(matched, p.SortBy, p.SortOrder)
	total := len(matched)
	return page(matched, p.Page, p.PerPage), total
}

// tokenize lower-cases and splits a free-text query into tokens.
func tokenize(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// matchesText reports whether every query token appears as a substring of
// the item's searchable text (name, descriptions, search terms, tags).
func matchesText(item *gateway.ProductSummary, tokens []string) bool {
	var b strings.Builder
	b.WriteString(item.Name)
	b.WriteByte(' ')
	b.WriteString(item.ShortDescription)
	b.WriteByte(' ')
	b.WriteString(item.LongDescription)
	for _, t := range item.SearchTerms {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	for _, t := range item.Tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	haystack := strings.ToLower(b.String())

	for _, tok := range tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

// matchesTags applies AND semantics: the item's tag set must be a superset
// of the selected tags.
func matchesTags(item *gateway.ProductSummary, tags []string) bool {
	for _, want := range tags {
		if !item.HasTag(want) {
			return false
		}
	}
	return true
}

// matchesCategories applies OR semantics: membership in any selected
// category is enough. Categories are a coarse, often-exclusive dimension.
func matchesCategories(item *gateway.ProductSummary, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, slug := range categories {
		if item.InCategory(slug) {
			return true
		}
	}
	return false
}

// matchesPrice compares the website price against the requested bounds,
// inclusive on both ends. Items with no website price are excluded whenever
// a price filter is active.
func matchesPrice(item *gateway.ProductSummary, r gateway.SearchPriceRange) bool {
	if item.Price.Website == nil {
		return false
	}
	p := *item.Price.Website
	if r.Min != nil && p < *r.Min {
		return false
	}
	if r.Max != nil && p > *r.Max {
		return false
	}
	return true
}

// sortItems orders matched items by the requested field. Ties break by
// ascending ID so result order is deterministic across rebuilds.
func sortItems(items []gateway.ProductSummary, sortBy, sortOrder string) {
	desc := sortOrder == gateway.SortDesc

	var less func(a, b *gateway.ProductSummary) int
	switch sortBy {
	case gateway.SortByPrice:
		less = comparePrice
	case gateway.SortByCreated:
		less = func(a, b *gateway.ProductSummary) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case gateway.SortByPopularity:
		less = func(a, b *gateway.ProductSummary) int {
			return a.Popularity - b.Popularity
		}
	case gateway.SortByName:
		fallthrough
	default:
		less = func(a, b *gateway.ProductSummary) int {
			return strings.Compare(a.Name, b.Name)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]

		// Nil website prices sort last regardless of direction.
		if sortBy == gateway.SortByPrice {
			pa, pb := a.Price.Website, b.Price.Website
			if pa == nil && pb != nil {
				return false
			}
			if pa != nil && pb == nil {
				return true
			}
		}

		c := less(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

// comparePrice orders by website price; nil handling happens in sortItems
// before the direction flip.
func comparePrice(a, b *gateway.ProductSummary) int {
	pa, pb := a.Price.Website, b.Price.Website
	switch {
	case pa == nil || pb == nil:
		return 0
	case *pa < *pb:
		return -1
	case *pa > *pb:
		return 1
	default:
		return 0
	}
}

// page slices the window [(page-1)*perPage, page*perPage).
func page(items []gateway.ProductSummary, pageNum, perPage int) []gateway.ProductSummary {
	if pageNum < 1 || perPage < 1 {
		return items
	}
	start := (pageNum - 1) * perPage
	if start >= len(items) {
		return []gateway.ProductSummary{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
