package catalog

import (
	gateway "github.com/latitude36/cvps-gateway/internal"
)

// BuildTree assembles the recursive category forest from a flat node slice.
// Node order is preserved: roots appear in slice order, and each node's
// children appear in slice order beneath it. Cyclic or out-of-range parent
// references are treated as roots.
func BuildTree(nodes []gateway.CategoryNode) []gateway.CategoryTree {
	children := make(map[int][]int, len(nodes))
	var rootIdx []int

	for i, n := range nodes {
		if n.Parent < 0 || n.Parent >= len(nodes) || n.Parent == i {
			rootIdx = append(rootIdx, i)
			continue
		}
		children[n.Parent] = append(children[n.Parent], i)
	}

	var render func(i int, seen map[int]bool) gateway.CategoryTree
	render = func(i int, seen map[int]bool) gateway.CategoryTree {
		n := nodes[i]
		t := gateway.CategoryTree{
			ID:           n.ID,
			Name:         n.Name,
			Slug:         n.Slug,
			Level:        n.Level,
			ProductCount: n.ProductCount,
			Children:     []gateway.CategoryTree{},
		}
		seen[i] = true
		for _, c := range children[i] {
			if seen[c] {
				continue
			}
			t.Children = append(t.Children, render(c, seen))
		}
		return t
	}

	forest := make([]gateway.CategoryTree, 0, len(rootIdx))
	seen := make(map[int]bool, len(nodes))
	for _, i := range rootIdx {
		forest = append(forest, render(i, seen))
	}
	return forest
}

// CountProducts returns a copy of nodes with ProductCount set to the number
// of active products belonging to each category slug.
func CountProducts(nodes []gateway.CategoryNode, items []gateway.ProductSummary) []gateway.CategoryNode {
	out := make([]gateway.CategoryNode, len(nodes))
	copy(out, nodes)

	for i := range out {
		n := 0
		for j := range items {
			if items[j].IsActive && items[j].InCategory(out[i].Slug) {
				n++
			}
		}
		out[i].ProductCount = n
	}
	return out
}
