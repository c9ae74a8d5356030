package catalog

import (
	"testing"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

func TestBuildTree(t *testing.T) {
	nodes := []gateway.CategoryNode{
		{ID: 10, Name: "Pantry", Slug: "pantry", Level: 0, Parent: -1},
		{ID: 11, Name: "Oils", Slug: "oils", Level: 1, Parent: 0},
		{ID: 12, Name: "Spreads", Slug: "spreads", Level: 1, Parent: 0},
		{ID: 20, Name: "Hampers", Slug: "hampers", Level: 0, Parent: -1},
		{ID: 13, Name: "Infused Oils", Slug: "infused-oils", Level: 2, Parent: 1},
	}

	forest := BuildTree(nodes)

	if len(forest) != 2 {
		t.Fatalf("roots = %d, want 2", len(forest))
	}
	pantry := forest[0]
	if pantry.Slug != "pantry" || len(pantry.Children) != 2 {
		t.Fatalf("pantry = %+v", pantry)
	}
	oils := pantry.Children[0]
	if oils.Slug != "oils" || len(oils.Children) != 1 || oils.Children[0].Slug != "infused-oils" {
		t.Fatalf("oils subtree = %+v", oils)
	}
	if forest[1].Slug != "hampers" || len(forest[1].Children) != 0 {
		t.Fatalf("hampers = %+v", forest[1])
	}
	if forest[1].Children == nil {
		t.Fatal("leaf Children should render as empty array, not null")
	}
}

func TestBuildTree_BadParentBecomesRoot(t *testing.T) {
	nodes := []gateway.CategoryNode{
		{ID: 1, Slug: "a", Parent: 99},
		{ID: 2, Slug: "b", Parent: 0},
		{ID: 3, Slug: "self", Parent: 2},
	}

	forest := BuildTree(nodes)
	if len(forest) != 2 {
		t.Fatalf("roots = %d, want 2 (out-of-range and self-parent)", len(forest))
	}
}

func TestCountProducts(t *testing.T) {
	nodes := []gateway.CategoryNode{
		{ID: 1, Slug: "pantry", Parent: -1},
		{ID: 2, Slug: "hampers", Parent: -1},
		{ID: 3, Slug: "empty", Parent: -1},
	}
	items := []gateway.ProductSummary{
		{ID: 1, IsActive: true, CategorySlugs: []string{"pantry"}},
		{ID: 2, IsActive: true, CategorySlugs: []string{"pantry", "hampers"}},
		{ID: 3, IsActive: false, CategorySlugs: []string{"pantry"}},
	}

	got := CountProducts(nodes, items)

	if got[0].ProductCount != 2 || got[1].ProductCount != 1 || got[2].ProductCount != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2/1/0",
			got[0].ProductCount, got[1].ProductCount, got[2].ProductCount)
	}
	if nodes[0].ProductCount != 0 {
		t.Fatal("input slice mutated")
	}
}

func TestEngine_PublishAndSearch(t *testing.T) {
	e := NewEngine()

	if _, total := e.Search(gateway.SearchParams{}); total != 0 {
		t.Fatalf("empty engine total = %d", total)
	}

	products := []gateway.ProductSummary{
		{ID: 1, Name: "Olive Oil", IsActive: true, Tags: []string{"gift"},
			Price: gateway.Price{Website: fp(25)}, CategorySlugs: []string{"pantry"}},
		{ID: 2, Name: "Hamper", IsActive: true, Tags: []string{"gift"},
			Price: gateway.Price{Website: fp(80)}, CategorySlugs: []string{"hampers"}},
	}
	nodes := []gateway.CategoryNode{
		{ID: 10, Slug: "pantry", Parent: -1},
		{ID: 20, Slug: "hampers", Parent: -1},
	}
	e.Publish(products, nodes)

	got, total := e.Search(gateway.SearchParams{Tags: []string{"gift"}})
	if total != 2 || len(got) != 2 {
		t.Fatalf("search returned %d/%d, want 2/2", len(got), total)
	}

	if f := e.Filters(); len(f.Tags) != 1 || f.Tags[0] != "gift" {
		t.Fatalf("facets = %+v", f)
	}

	tree := e.CategoryTree()
	if len(tree) != 2 || tree[0].ProductCount != 1 {
		t.Fatalf("tree = %+v", tree)
	}
}
