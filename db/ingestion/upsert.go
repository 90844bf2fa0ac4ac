// Package ingestion implements the offline batch write paths: hash stamping,
// batched merge-upsert with concurrent dispatch, ingestion runs over parsed
// data files, and derived spot-price application.
package ingestion

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cloud-pricing/db"
	"cloud-pricing/internal/currency"
	"cloud-pricing/internal/errors"
)

// BatchSize is the fixed upsert batch split threshold. The final partial
// batch is always flushed.
const BatchSize = 1000

// defaultConcurrency bounds how many batch writes are in flight at once.
// Batches address disjoint product hashes within one run, so completion
// order across batches does not matter.
const defaultConcurrency = 4

// Engine performs batched merge-upserts against a CatalogStore.
type Engine struct {
	store       db.CatalogStore
	converter   *currency.Converter
	concurrency int
}

// NewEngine creates an upsert engine with default write concurrency.
func NewEngine(store db.CatalogStore) *Engine {
	return &Engine{store: store, concurrency: defaultConcurrency}
}

// WithConcurrency overrides the number of concurrently dispatched batches.
func (e *Engine) WithConcurrency(n int) *Engine {
	if n > 0 {
		e.concurrency = n
	}
	return e
}

// WithConverter enables USD derivation for prices that only carry a
// vendor-native amount.
func (e *Engine) WithConverter(c *currency.Converter) *Engine {
	e.converter = c
	return e
}

// BatchUpsertProducts stamps identity hashes onto the incoming products and
// merge-upserts them in batches of BatchSize. Batch writes are dispatched
// concurrently; the call joins on all of them and returns the first error
// encountered. Re-running the same input leaves the stored catalog
// unchanged.
func (e *Engine) BatchUpsertProducts(ctx context.Context, products []*db.Product) error {
	for _, product := range products {
		if err := e.fillUSDAmounts(ctx, product); err != nil {
			return err
		}
		db.StampHashes(product)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(products); start += BatchSize {
		end := start + BatchSize
		if end > len(products) {
			end = len(products)
		}
		batch := products[start:end]
		g.Go(func() error {
			return e.store.UpsertProducts(ctx, batch)
		})
	}

	return g.Wait()
}

// fillUSDAmounts derives the canonical USD amount for prices that only carry
// a vendor-native CNY amount. The converter falls back to its static rate
// table when the external source is unreachable.
func (e *Engine) fillUSDAmounts(ctx context.Context, product *db.Product) error {
	if e.converter == nil {
		return nil
	}
	for i := range product.Prices {
		price := &product.Prices[i]
		if price.USD != "" || price.CNY == "" {
			continue
		}
		amount, err := decimal.NewFromString(price.CNY)
		if err != nil {
			return errors.Wrapf(errors.TypeValidation, err,
				"price for sku %s has malformed CNY amount", product.SKU)
		}
		converted, err := e.converter.Convert(ctx, "CNY", "USD", amount)
		if err != nil {
			return err
		}
		price.USD = converted.String()
	}
	return nil
}
