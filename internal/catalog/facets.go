package catalog

import (
	"math"
	"sort"
	"sync/atomic"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// FacetIndex publishes the FilterOptions snapshot derived from the current
// product collection. Readers always observe a complete snapshot: Rebuild
// computes the next snapshot aside and installs it with one atomic pointer
// swap.
type FacetIndex struct {
	current atomic.Pointer[gateway.FilterOptions]
}

// NewFacetIndex returns an index holding an empty snapshot.
func NewFacetIndex() *FacetIndex {
	idx := &FacetIndex{}
	empty := emptyFilters()
	idx.current.Store(&empty)
	return idx
}

// Current returns the published snapshot. The returned value must not be
// mutated.
func (f *FacetIndex) Current() *gateway.FilterOptions {
	return f.current.Load()
}

// Rebuild derives FilterOptions from items and atomically replaces the
// published snapshot. Safe to call concurrently with readers.
func (f *FacetIndex) Rebuild(items []gateway.ProductSummary) *gateway.FilterOptions {
	next := BuildFilters(items)
	f.current.Store(&next)
	return &next
}

func emptyFilters() gateway.FilterOptions {
	return gateway.FilterOptions{
		Tags:          []string{},
		TagCategories: []gateway.TagCategory{},
	}
}

// BuildFilters computes the facet snapshot for a product collection:
// distinct tags, tag categories, and the website price range, all over
// active items only.
func BuildFilters(items []gateway.ProductSummary) gateway.FilterOptions {
	tagSet := make(map[string]struct{})
	// Tag membership across categories is disjoint: each tag is assigned
	// to its first-seen category.
	tagToCategory := make(map[string]string)
	categoryTags := make(map[string][]string)
	var categoryOrder []string

	var sum, min, max float64
	priced := 0

	for _, item := range items {
		if !item.IsActive {
			continue
		}

		for _, tag := range item.Tags {
			tagSet[tag] = struct{}{}
		}
		for cat, tags := range item.TagCategories {
			for _, tag := range tags {
				if owner, seen := tagToCategory[tag]; seen {
					if owner != cat {
						continue // tag already claimed by another category
					}
					continue
				}
				tagToCategory[tag] = cat
				if _, ok := categoryTags[cat]; !ok {
					categoryOrder = append(categoryOrder, cat)
				}
				categoryTags[cat] = append(categoryTags[cat], tag)
			}
		}

		if item.Price.Website != nil {
			p := *item.Price.Website
			if priced == 0 || p < min {
				min = p
			}
			if priced == 0 || p > max {
				max = p
			}
			sum += p
			priced++
		}
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	sort.Strings(categoryOrder)
	cats := make([]gateway.TagCategory, 0, len(categoryOrder))
	for _, name := range categoryOrder {
		memberTags := categoryTags[name]
		sort.Strings(memberTags)
		cats = append(cats, gateway.TagCategory{Name: name, Tags: memberTags})
	}

	var pr gateway.PriceRange
	if priced > 0 {
		pr = gateway.PriceRange{
			Min:     min,
			Max:     max,
			Average: round2(sum / float64(priced)),
		}
	}

	return gateway.FilterOptions{Tags: tags, TagCategories: cats, PriceRange: pr}
}

// round2 rounds to two decimal places.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
