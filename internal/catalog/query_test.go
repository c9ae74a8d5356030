package catalog

import (
	"fmt"
	"testing"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

func fp(v float64) *float64 { return &v }

func fixtureProducts() []gateway.ProductSummary {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []gateway.ProductSummary{
		{
			ID: 1, Name: "Olive Tapenade", Slug: "olive-tapenade",
			ShortDescription: "Savoury spread",
			IsActive:         true,
			Tags:             []string{"gift", "gourmet"},
			SearchTerms:      []string{"antipasto"},
			CategorySlugs:    []string{"pantry"},
			Price:            gateway.Price{Website: fp(12.50)},
			Popularity:       40,
			CreatedAt:        base,
		},
		{
			ID: 2, Name: "Gift Hamper", Slug: "gift-hamper",
			ShortDescription: "Curated selection",
			IsActive:         true,
			Tags:             []string{"gift"},
			CategorySlugs:    []string{"hampers"},
			Price:            gateway.Price{Website: fp(89.00)},
			Popularity:       90,
			CreatedAt:        base.Add(48 * time.Hour),
		},
		{
			ID: 3, Name: "Organic Honey", Slug: "organic-honey",
			ShortDescription: "Raw and unfiltered",
			IsActive:         true,
			Tags:             []string{"gift", "organic"},
			CategorySlugs:    []string{"pantry"},
			Price:            gateway.Price{Website: fp(10.00)},
			Popularity:       70,
			CreatedAt:        base.Add(24 * time.Hour),
		},
		{
			ID: 4, Name: "Wholesale Crate", Slug: "wholesale-crate",
			IsActive:      true,
			Tags:          []string{"bulk"},
			CategorySlugs: []string{"wholesale"},
			Price:         gateway.Price{Wholesale: fp(200.00)}, // no website price
			Popularity:    5,
			CreatedAt:     base.Add(72 * time.Hour),
		},
		{
			ID: 5, Name: "Retired Sampler", Slug: "retired-sampler",
			IsActive:      false,
			Tags:          []string{"gift", "gourmet"},
			CategorySlugs: []string{"pantry"},
			Price:         gateway.Price{Website: fp(9.99)},
		},
	}
}

func ids(items []gateway.ProductSummary) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func assertIDs(t *testing.T, got []gateway.ProductSummary, want ...int) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func TestSearch_ExcludesInactive(t *testing.T) {
	got, total := Search(fixtureProducts(), gateway.SearchParams{})
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	for _, it := range got {
		if it.ID == 5 {
			t.Fatal("inactive product returned")
		}
	}
}

func TestSearch_TagsRequireAll(t *testing.T) {
	items := fixtureProducts()

	got, _ := Search(items, gateway.SearchParams{Tags: []string{"gift"}})
	assertIDs(t, got, 2, 1, 3) // name order: Gift Hamper, Olive Tapenade, Organic Honey

	got, _ = Search(items, gateway.SearchParams{Tags: []string{"gift", "gourmet"}})
	assertIDs(t, got, 1)

	got, _ = Search(items, gateway.SearchParams{Tags: []string{"gift", "bulk"}})
	if len(got) != 0 {
		t.Fatalf("disjoint tag selection matched %v", ids(got))
	}
}

func TestSearch_CategoriesMatchAny(t *testing.T) {
	got, _ := Search(fixtureProducts(), gateway.SearchParams{
		Categories: []string{"hampers", "wholesale"},
	})
	assertIDs(t, got, 2, 4)
}

func TestSearch_PriceBoundsInclusive(t *testing.T) {
	got, _ := Search(fixtureProducts(), gateway.SearchParams{
		PriceRange: gateway.SearchPriceRange{Min: fp(10.00), Max: fp(50.00)},
	})
	// p3 sits exactly on the lower bound and stays in; p4 has no website
	// price and drops out under an active price filter.
	assertIDs(t, got, 1, 3)
}

func TestSearch_FreeTextMatchesAllTokens(t *testing.T) {
	items := fixtureProducts()

	got, _ := Search(items, gateway.SearchParams{Query: "olive spread"})
	assertIDs(t, got, 1)

	got, _ = Search(items, gateway.SearchParams{Query: "antipasto"})
	assertIDs(t, got, 1)

	got, _ = Search(items, gateway.SearchParams{Query: "olive missing"})
	if len(got) != 0 {
		t.Fatalf("partial token match returned %v", ids(got))
	}
}

func TestSearch_SortPriceNilsLast(t *testing.T) {
	items := fixtureProducts()

	got, _ := Search(items, gateway.SearchParams{
		SortBy: gateway.SortByPrice, SortOrder: gateway.SortAsc,
	})
	assertIDs(t, got, 3, 1, 2, 4)

	got, _ = Search(items, gateway.SearchParams{
		SortBy: gateway.SortByPrice, SortOrder: gateway.SortDesc,
	})
	// Descending still parks the unpriced item at the end.
	assertIDs(t, got, 2, 1, 3, 4)
}

func TestSearch_SortPopularityAndCreated(t *testing.T) {
	items := fixtureProducts()

	got, _ := Search(items, gateway.SearchParams{
		SortBy: gateway.SortByPopularity, SortOrder: gateway.SortDesc,
	})
	assertIDs(t, got, 2, 3, 1, 4)

	got, _ = Search(items, gateway.SearchParams{
		SortBy: gateway.SortByCreated, SortOrder: gateway.SortAsc,
	})
	assertIDs(t, got, 1, 3, 2, 4)
}

func TestSearch_SortTieBreaksByID(t *testing.T) {
	items := []gateway.ProductSummary{
		{ID: 2, Name: "Same", IsActive: true},
		{ID: 1, Name: "Same", IsActive: true},
		{ID: 3, Name: "Same", IsActive: true},
	}
	got, _ := Search(items, gateway.SearchParams{SortBy: gateway.SortByName})
	assertIDs(t, got, 1, 2, 3)
}

func TestSearch_Pagination(t *testing.T) {
	items := make([]gateway.ProductSummary, 0, 23)
	for i := 0; i < 23; i++ {
		items = append(items, gateway.ProductSummary{
			ID:       i + 1,
			Name:     fmt.Sprintf("item-%02d", i),
			IsActive: true,
		})
	}

	got, total := Search(items, gateway.SearchParams{Page: 3, PerPage: 10})
	if total != 23 {
		t.Fatalf("total = %d, want 23", total)
	}
	if len(got) != 3 {
		t.Fatalf("page 3 len = %d, want 3", len(got))
	}

	got, _ = Search(items, gateway.SearchParams{Page: 4, PerPage: 10})
	if len(got) != 0 {
		t.Fatalf("past-end page len = %d, want 0", len(got))
	}
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	items := fixtureProducts()
	firstID := items[0].ID

	Search(items, gateway.SearchParams{SortBy: gateway.SortByPrice})

	if items[0].ID != firstID {
		t.Fatal("input slice reordered")
	}
}
