package catalog

import (
	"sync/atomic"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// Snapshot is an immutable published view of the product collection.
// A new Snapshot replaces the old one wholesale; nothing mutates a
// published snapshot.
type Snapshot struct {
	Products   []gateway.ProductSummary
	Categories []gateway.CategoryNode
	BuiltAt    time.Time
}

// Engine owns the published snapshot and the facet index derived from it.
// Search and Filters read the currently published snapshot without locking.
type Engine struct {
	snap   atomic.Pointer[Snapshot]
	facets *FacetIndex
}

// NewEngine returns an engine with an empty published snapshot.
func NewEngine() *Engine {
	e := &Engine{facets: NewFacetIndex()}
	e.snap.Store(&Snapshot{BuiltAt: time.Now()})
	return e
}

// Publish installs a new product collection: product counts are recomputed
// on the category nodes, the facet index is rebuilt, and the snapshot is
// swapped in atomically.
func (e *Engine) Publish(products []gateway.ProductSummary, categories []gateway.CategoryNode) {
	next := &Snapshot{
		Products:   products,
		Categories: CountProducts(categories, products),
		BuiltAt:    time.Now(),
	}
	e.facets.Rebuild(products)
	e.snap.Store(next)
}

// Snapshot returns the currently published snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Search runs the query pipeline over the published products.
func (e *Engine) Search(p gateway.SearchParams) ([]gateway.ProductSummary, int) {
	return Search(e.snap.Load().Products, p)
}

// Filters returns the facet snapshot for the published products.
func (e *Engine) Filters() *gateway.FilterOptions {
	return e.facets.Current()
}

// CategoryTree renders the category forest from the published snapshot.
func (e *Engine) CategoryTree() []gateway.CategoryTree {
	return BuildTree(e.snap.Load().Categories)
}
