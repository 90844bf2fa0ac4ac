// Package mongo implements the document-oriented CatalogStore. Products are
// stored as single documents with a flat embedded price list; merge-upsert
// uses the paired pull-then-push pattern so re-running a batch never
// duplicates price entries.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cloud-pricing/db"
	"cloud-pricing/db/filter"
	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

const collectionName = "products"

// Store is the document-oriented catalog store.
type Store struct {
	client   *mongo.Client
	products *mongo.Collection
}

var _ db.CatalogStore = (*Store)(nil)

// NewStore connects to the document store and verifies the connection.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.TransientStore("connecting to document store", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.TransientStore("pinging document store", err)
	}
	return &Store{
		client:   client,
		products: client.Database(database).Collection(collectionName),
	}, nil
}

// ListProducts returns products matching the filter, capped at
// db.ProductLimit.
func (s *Store) ListProducts(ctx context.Context, pf *db.ProductFilter, limit int) ([]*db.Product, error) {
	query, err := filter.Document(pf)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetLimit(int64(db.CapLimit(limit)))
	cur, err := s.products.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.TransientStore("querying products", err)
	}
	defer cur.Close(ctx)

	var products []*db.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, errors.TransientStore("decoding products", err)
	}
	return products, nil
}

// FindProduct returns the first product matching the filter.
func (s *Store) FindProduct(ctx context.Context, pf *db.ProductFilter) (*db.Product, error) {
	query, err := filter.Document(pf)
	if err != nil {
		return nil, err
	}

	var product db.Product
	err = s.products.FindOne(ctx, query).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFound("product", "matching filter")
	}
	if err != nil {
		return nil, errors.TransientStore("querying product", err)
	}
	return &product, nil
}

// MatchPrices evaluates the filter against an in-memory price collection.
func (s *Store) MatchPrices(prices []db.Price, f db.Filter) ([]db.Price, error) {
	return filter.MatchPrices(prices, f)
}

// UpsertProducts merge-upserts one batch of products. Each product turns
// into two ordered update models keyed by productHash: the first sets the
// scalar fields and pulls any existing price whose hash collides with an
// incoming one, the second pushes the full incoming price list. Replaying
// an identical batch is a no-op for the stored price set.
func (s *Store) UpsertProducts(ctx context.Context, products []*db.Product) error {
	if len(products) == 0 {
		return nil
	}

	_, err := s.products.BulkWrite(ctx, upsertModels(products), bulkWriteOptions())
	if err != nil {
		return errors.TransientStore("bulk upsert", err)
	}
	logging.Debug("bulk upserted products", zap.Int("count", len(products)))
	return nil
}

// UpsertPrice replaces one price by hash under an existing product.
func (s *Store) UpsertPrice(ctx context.Context, product *db.Product, price *db.Price) error {
	key := bson.M{"productHash": product.ProductHash}

	_, err := s.products.UpdateOne(ctx, key, bson.M{
		"$pull": bson.M{"prices": bson.M{"priceHash": price.PriceHash}},
	})
	if err != nil {
		return errors.TransientStore("pulling price", err)
	}

	_, err = s.products.UpdateOne(ctx, key, bson.M{
		"$push": bson.M{"prices": price},
	})
	if err != nil {
		return errors.TransientStore("pushing price", err)
	}
	return nil
}

// Close disconnects from the document store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// upsertModels builds the paired write models for a batch: per product, one
// update that sets the scalar fields and pulls every stored price whose hash
// collides with an incoming one, then one that pushes the full incoming
// price list. Both halves upsert, so an unseen productHash inserts cleanly.
func upsertModels(products []*db.Product) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, 2*len(products))
	for _, product := range products {
		key := bson.M{"productHash": product.ProductHash}
		scalars := scalarFields(product)

		hashes := make(bson.A, 0, len(product.Prices))
		for _, price := range product.Prices {
			hashes = append(hashes, price.PriceHash)
		}

		models = append(models,
			mongo.NewUpdateOneModel().
				SetFilter(key).
				SetUpdate(bson.M{
					"$set":  scalars,
					"$pull": bson.M{"prices": bson.M{"priceHash": bson.M{"$in": hashes}}},
				}).
				SetUpsert(true),
			mongo.NewUpdateOneModel().
				SetFilter(key).
				SetUpdate(bson.M{
					"$set":  scalars,
					"$push": bson.M{"prices": bson.M{"$each": product.Prices}},
				}).
				SetUpsert(true),
		)
	}
	return models
}

// bulkWriteOptions enforces ordered execution: each pull must land before
// its paired push.
func bulkWriteOptions() *options.BulkWriteOptions {
	return options.BulkWrite().SetOrdered(true)
}

// scalarFields is the $set document for a product: every field except the
// price collection, which only moves through pull/push.
func scalarFields(p *db.Product) bson.M {
	return bson.M{
		"productHash":   p.ProductHash,
		"sku":           p.SKU,
		"vendorName":    p.VendorName,
		"region":        p.Region,
		"service":       p.Service,
		"productFamily": p.ProductFamily,
		"attributes":    p.Attributes,
	}
}
