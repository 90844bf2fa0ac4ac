package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// SpotPrice is one already-parsed spot price point for a compute instance.
type SpotPrice struct {
	Region          string
	InstanceType    string
	OperatingSystem string
	USD             string
}

// ApplySpotPrices merges spot price points into existing compute products.
// A point whose owning product cannot be found is logged as a warning and
// skipped; the derived price is simply omitted. When the product already
// carries a spot price, it is updated only if the rate changed; otherwise
// the on-demand price is cloned into a new spot price with its own hash.
func (e *Engine) ApplySpotPrices(ctx context.Context, points []SpotPrice) error {
	now := time.Now().UTC().Format(time.RFC3339)

	for _, point := range points {
		if err := ctx.Err(); err != nil {
			return err
		}

		product, err := e.findComputeProduct(ctx, point)
		if errors.IsType(err, errors.TypeNotFound) {
			logging.Warn("skipping spot price: no matching product",
				zap.String("region", point.Region),
				zap.String("instance_type", point.InstanceType),
				zap.String("operating_system", point.OperatingSystem))
			continue
		}
		if err != nil {
			return err
		}

		if existing := product.FindPrice("spot"); existing != nil {
			if existing.USD == point.USD {
				continue
			}
			existing.USD = point.USD
			existing.EffectiveDateStart = now
			if err := e.store.UpsertPrice(ctx, product, existing); err != nil {
				return err
			}
			continue
		}

		onDemand := product.FindPrice("on_demand")
		if onDemand == nil {
			continue
		}
		spot := *onDemand
		spot.PurchaseOption = "spot"
		spot.USD = point.USD
		spot.EffectiveDateStart = now
		spot.PriceHash = db.PriceHash(product, &spot)

		if err := e.store.UpsertPrice(ctx, product, &spot); err != nil {
			return err
		}
	}
	return nil
}

// findComputeProduct resolves the product a spot point belongs to. Shared
// and host tenancy both qualify, as do bare metal compute instances.
func (e *Engine) findComputeProduct(ctx context.Context, point SpotPrice) (*db.Product, error) {
	tenancy := "/^(Shared|Host)$/"
	family := `/^Compute Instance( \(bare metal\))?$/`
	capacity := "Used"
	preInstalled := "NA"

	pf := &db.ProductFilter{
		Fields: db.Filter{
			"vendorName":          "aws",
			"service":             "AmazonEC2",
			"productFamily_regex": family,
			"region":              point.Region,
		},
		AttributeFilters: []db.AttributeFilter{
			{Key: "instanceType", Value: &point.InstanceType},
			{Key: "operatingSystem", Value: &point.OperatingSystem},
			{Key: "tenancy", ValueRegex: &tenancy},
			{Key: "capacitystatus", Value: &capacity},
			{Key: "preInstalledSw", Value: &preInstalled},
		},
	}
	return e.store.FindProduct(ctx, pf)
}
