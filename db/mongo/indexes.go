package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cloud-pricing/internal/errors"
)

// EnsureIndexes creates the unique identity index and the compound indexes
// backing high-frequency query shapes, including the common attribute keys
// for compute (instance type, tenancy, OS, capacity status, pre-installed
// software) and database (deployment option, engine, edition) lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "vendorName", Value: 1},
				{Key: "sku", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "vendorName", Value: 1},
				{Key: "service", Value: 1},
				{Key: "productFamily", Value: 1},
				{Key: "region", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "vendorName", Value: 1},
				{Key: "service", Value: 1},
				{Key: "productFamily", Value: 1},
				{Key: "region", Value: 1},
				{Key: "attributes.instanceType", Value: 1},
				{Key: "attributes.tenancy", Value: 1},
				{Key: "attributes.operatingSystem", Value: 1},
				{Key: "attributes.capacitystatus", Value: 1},
				{Key: "attributes.preInstalledSw", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "vendorName", Value: 1},
				{Key: "service", Value: 1},
				{Key: "productFamily", Value: 1},
				{Key: "region", Value: 1},
				{Key: "attributes.instanceType", Value: 1},
				{Key: "attributes.deploymentOption", Value: 1},
				{Key: "attributes.databaseEngine", Value: 1},
				{Key: "attributes.databaseEdition", Value: 1},
			},
		},
	}

	if _, err := s.products.Indexes().CreateMany(ctx, indexes); err != nil {
		return errors.TransientStore("creating indexes", err)
	}
	return nil
}
