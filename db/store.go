package db

import "context"

// ProductLimit caps every product query regardless of the caller's request,
// bounding response size and downstream load.
const ProductLimit = 1000

// CatalogStore is the capability set shared by the document-oriented and
// relational backends. Both implementations must produce identical logical
// results for the same filter, whatever their physical price representation.
type CatalogStore interface {
	// ListProducts returns products matching the filter, capped at
	// ProductLimit. Prices are returned flattened to a list regardless of
	// internal storage shape.
	ListProducts(ctx context.Context, filter *ProductFilter, limit int) ([]*Product, error)

	// FindProduct returns the first product matching the filter, or a
	// NotFound error when nothing matches.
	FindProduct(ctx context.Context, filter *ProductFilter) (*Product, error)

	// MatchPrices applies a filter to an already-fetched price collection.
	// This is an in-memory predicate evaluation, not a round-trip query.
	MatchPrices(prices []Price, filter Filter) ([]Price, error)

	// UpsertProducts merge-upserts one batch of hashed products: scalar
	// fields are overwritten, the price collection is unioned by hash.
	// Prices stored before the call but absent from the batch survive;
	// prices whose hash matches an incoming one are replaced wholesale.
	UpsertProducts(ctx context.Context, products []*Product) error

	// UpsertPrice replaces a single price by hash under an existing
	// product, leaving every other price untouched.
	UpsertPrice(ctx context.Context, product *Product, price *Price) error

	Close(ctx context.Context) error
}

// CapLimit clamps a requested limit into (0, ProductLimit].
func CapLimit(limit int) int {
	if limit <= 0 || limit > ProductLimit {
		return ProductLimit
	}
	return limit
}
