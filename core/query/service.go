// Package query is the serving path behind the external GraphQL layer:
// it compiles filters, executes them against the catalog store and
// post-processes prices, including optional currency conversion.
package query

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cloud-pricing/db"
	"cloud-pricing/internal/currency"
	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// USD is the canonical price currency; requesting it skips conversion.
const USD = "USD"

// Service answers product and price queries.
type Service struct {
	store     db.CatalogStore
	converter *currency.Converter
}

// NewService creates a query service over a catalog store. The converter is
// optional; without one, only USD quotes are served.
func NewService(store db.CatalogStore, converter *currency.Converter) *Service {
	return &Service{store: store, converter: converter}
}

// Products returns the products matching the filter, capped at the fixed
// product limit. Validation errors surface as-is; storage errors are logged
// with full context and surfaced as a generic failure.
func (s *Service) Products(ctx context.Context, pf *db.ProductFilter, limit int) ([]*db.Product, error) {
	products, err := s.store.ListProducts(ctx, pf, limit)
	if err != nil {
		if errors.IsType(err, errors.TypeValidation) {
			return nil, err
		}
		logging.Error("product query failed", zap.Error(err))
		return nil, errors.New(errors.TypeInternal, "product query failed")
	}
	return products, nil
}

// PriceQuote is a price together with the currency it is quoted in.
type PriceQuote struct {
	db.Price
	Currency string
	Amount   string
}

// Prices filters a product's in-memory price collection and quotes each
// matching price in the requested currency, converting from USD when needed.
func (s *Service) Prices(ctx context.Context, product *db.Product, f db.Filter, currencyCode string) ([]PriceQuote, error) {
	matched, err := s.store.MatchPrices(product.Prices, f)
	if err != nil {
		return nil, err
	}

	if currencyCode == "" {
		currencyCode = USD
	}
	if !currency.ValidCode(currencyCode) {
		return nil, errors.Newf(errors.TypeValidation, "unknown currency code %q", currencyCode)
	}
	if currencyCode != USD && s.converter == nil {
		return nil, errors.Newf(errors.TypeValidation,
			"currency conversion to %s is not available", currencyCode)
	}

	quotes := make([]PriceQuote, 0, len(matched))
	for _, price := range matched {
		quote := PriceQuote{Price: price, Currency: currencyCode, Amount: price.USD}
		if currencyCode != USD && price.USD != "" {
			amount, err := decimal.NewFromString(price.USD)
			if err != nil {
				return nil, errors.Wrapf(errors.TypeInternal, err,
					"price %s has malformed USD amount", price.PriceHash)
			}
			converted, err := s.converter.Convert(ctx, USD, currencyCode, amount)
			if err != nil {
				return nil, err
			}
			quote.Amount = converted.String()
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}
