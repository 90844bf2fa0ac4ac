package ingestion

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"cloud-pricing/db"
	"cloud-pricing/internal/currency"
	"cloud-pricing/internal/errors"
)

// fakeStore records upsert traffic and keeps a merged in-memory catalog with
// the same price-map union semantics as the real stores.
type fakeStore struct {
	mu         sync.Mutex
	batchSizes []int
	products   map[string]*db.Product
	priceCalls int

	findResult *db.Product
	findFilter *db.ProductFilter
	upsertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[string]*db.Product)}
}

func (s *fakeStore) ListProducts(context.Context, *db.ProductFilter, int) ([]*db.Product, error) {
	return nil, nil
}

func (s *fakeStore) FindProduct(_ context.Context, pf *db.ProductFilter) (*db.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findFilter = pf
	if s.findResult == nil {
		return nil, errors.NotFound("product", "matching filter")
	}
	return s.findResult, nil
}

func (s *fakeStore) MatchPrices(prices []db.Price, _ db.Filter) ([]db.Price, error) {
	return prices, nil
}

func (s *fakeStore) UpsertProducts(_ context.Context, products []*db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.batchSizes = append(s.batchSizes, len(products))
	for _, p := range products {
		s.merge(p)
	}
	return nil
}

func (s *fakeStore) UpsertPrice(_ context.Context, product *db.Product, price *db.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceCalls++
	stored, ok := s.products[product.ProductHash]
	if !ok {
		return errors.NotFound("product", product.ProductHash)
	}
	for i := range stored.Prices {
		if stored.Prices[i].PriceHash == price.PriceHash {
			stored.Prices[i] = *price
			return nil
		}
	}
	stored.Prices = append(stored.Prices, *price)
	return nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

// merge applies the union semantics of the real stores: incoming price hashes
// replace colliding stored ones, everything else is preserved.
func (s *fakeStore) merge(incoming *db.Product) {
	stored, ok := s.products[incoming.ProductHash]
	if !ok {
		clone := *incoming
		clone.Prices = append([]db.Price(nil), incoming.Prices...)
		s.products[incoming.ProductHash] = &clone
		return
	}
	incomingHashes := make(map[string]bool, len(incoming.Prices))
	for _, p := range incoming.Prices {
		incomingHashes[p.PriceHash] = true
	}
	var kept []db.Price
	for _, p := range stored.Prices {
		if !incomingHashes[p.PriceHash] {
			kept = append(kept, p)
		}
	}
	stored.Prices = append(kept, incoming.Prices...)
}

// fixedRateSource always returns the same rate.
type fixedRateSource struct {
	rate  decimal.Decimal
	calls int
}

func (s *fixedRateSource) Rate(context.Context, string, string) (decimal.Decimal, error) {
	s.calls++
	return s.rate, nil
}

func makeProducts(n int) []*db.Product {
	products := make([]*db.Product, n)
	for i := range products {
		region := "us-east-1"
		products[i] = &db.Product{
			SKU:        fmt.Sprintf("SKU%06d", i),
			VendorName: "aws",
			Region:     &region,
			Service:    "AmazonEC2",
			Prices: []db.Price{
				{PurchaseOption: "on_demand", Unit: "Hrs", USD: "0.1"},
			},
		}
	}
	return products
}

func TestBatchUpsertProductsSplitsBatches(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store).WithConcurrency(1)

	products := makeProducts(2*BatchSize + 500)
	if err := engine.BatchUpsertProducts(context.Background(), products); err != nil {
		t.Fatalf("BatchUpsertProducts: %v", err)
	}

	want := []int{BatchSize, BatchSize, 500}
	if len(store.batchSizes) != len(want) {
		t.Fatalf("dispatched %d batches, want %d", len(store.batchSizes), len(want))
	}
	for i, size := range want {
		if store.batchSizes[i] != size {
			t.Errorf("batch %d size = %d, want %d", i, store.batchSizes[i], size)
		}
	}
	if len(store.products) != len(products) {
		t.Errorf("stored %d products, want %d", len(store.products), len(products))
	}
}

func TestBatchUpsertProductsStampsHashes(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)

	products := makeProducts(3)
	if err := engine.BatchUpsertProducts(context.Background(), products); err != nil {
		t.Fatalf("BatchUpsertProducts: %v", err)
	}

	for _, p := range products {
		if p.ProductHash == "" {
			t.Fatalf("product %s missing hash", p.SKU)
		}
		for _, price := range p.Prices {
			if price.PriceHash == "" {
				t.Fatalf("product %s has price without hash", p.SKU)
			}
		}
	}
}

func TestBatchUpsertProductsIsIdempotent(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)

	products := makeProducts(10)
	for run := 0; run < 2; run++ {
		if err := engine.BatchUpsertProducts(context.Background(), products); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	if len(store.products) != 10 {
		t.Fatalf("stored %d products, want 10", len(store.products))
	}
	for _, p := range store.products {
		if len(p.Prices) != 1 {
			t.Errorf("product %s has %d prices after re-upsert, want 1", p.SKU, len(p.Prices))
		}
	}
}

func TestBatchUpsertProductsDerivesUSD(t *testing.T) {
	store := newFakeStore()
	source := &fixedRateSource{rate: decimal.RequireFromString("0.2")}
	engine := NewEngine(store).WithConverter(currency.NewConverter(source))

	region := "cn-north-1"
	product := &db.Product{
		SKU:        "CNSKU",
		VendorName: "aws",
		Region:     &region,
		Service:    "AmazonEC2",
		Prices: []db.Price{
			{PurchaseOption: "on_demand", Unit: "Hrs", CNY: "10"},
			{PurchaseOption: "reserved", Unit: "Hrs", USD: "1.5", CNY: "9.74"},
		},
	}
	if err := engine.BatchUpsertProducts(context.Background(), []*db.Product{product}); err != nil {
		t.Fatalf("BatchUpsertProducts: %v", err)
	}

	if got := product.Prices[0].USD; got != "2" {
		t.Errorf("derived USD = %s, want 2", got)
	}
	// A price that already carries USD is left alone.
	if got := product.Prices[1].USD; got != "1.5" {
		t.Errorf("existing USD = %s, want 1.5", got)
	}
}

func TestBatchUpsertProductsMalformedAmount(t *testing.T) {
	store := newFakeStore()
	source := &fixedRateSource{rate: decimal.RequireFromString("0.2")}
	engine := NewEngine(store).WithConverter(currency.NewConverter(source))

	product := makeProducts(1)[0]
	product.Prices[0].USD = ""
	product.Prices[0].CNY = "not-a-number"

	err := engine.BatchUpsertProducts(context.Background(), []*db.Product{product})
	if !errors.IsType(err, errors.TypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(store.batchSizes) != 0 {
		t.Error("no batch should be dispatched after a validation failure")
	}
}

func TestBatchUpsertProductsPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.TransientStore("write failed", nil)
	engine := NewEngine(store)

	err := engine.BatchUpsertProducts(context.Background(), makeProducts(5))
	if !errors.IsType(err, errors.TypeTransientStore) {
		t.Fatalf("err = %v, want transient store error", err)
	}
}
