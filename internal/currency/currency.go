// Package currency provides cached exchange-rate lookups with a static
// fallback table. A Converter is process-scoped state: construct one at
// startup, before the first request, and share it for the process lifetime.
package currency

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// cacheTTL is how long a fetched rate stays valid.
const cacheTTL = 24 * time.Hour

// roundPlaces is the decimal precision of converted amounts.
const roundPlaces = 10

// RateSource fetches an exchange rate from an external service.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// fallbackRates are hardcoded rates for pairs that must keep converting even
// when the external source is unreachable.
var fallbackRates = map[string]map[string]decimal.Decimal{
	"CNY": {"USD": decimal.RequireFromString("0.154")},
}

type cachedRate struct {
	rate    decimal.Decimal
	expires time.Time
}

// Converter converts amounts between currencies. One coarse lock serializes
// all rate lookups across every currency pair, so at most one external
// request is ever in flight; concurrent callers for the same pair reuse the
// cached result the first caller stored. Per-pair locking would be a safe
// refinement but is not required for correctness.
type Converter struct {
	mu     sync.Mutex
	source RateSource
	cache  map[string]cachedRate
	now    func() time.Time
}

// NewConverter creates a converter backed by the given rate source.
func NewConverter(source RateSource) *Converter {
	return &Converter{
		source: source,
		cache:  make(map[string]cachedRate),
		now:    time.Now,
	}
}

// Convert returns amount multiplied by the from→to rate, rounded to ten
// decimal places.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, err := c.getRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(roundPlaces), nil
}

func (c *Converter) getRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	cacheKey := "currency-" + from + "-" + to

	// Single-flight: only one lookup runs at a time, cache hits included.
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[cacheKey]; ok && c.now().Before(cached.expires) {
		return cached.rate, nil
	}

	rate, err := c.source.Rate(ctx, from, to)
	if err == nil {
		logging.Debug("caching exchange rate",
			zap.String("key", cacheKey),
			zap.String("rate", rate.String()),
			zap.Duration("ttl", cacheTTL))
		c.cache[cacheKey] = cachedRate{rate: rate, expires: c.now().Add(cacheTTL)}
		return rate, nil
	}

	logging.Warn("no exchange rate found, falling back to default rate",
		zap.String("from", from),
		zap.String("to", to),
		zap.Error(err))
	if fallback, ok := fallbackRates[from][to]; ok {
		return fallback, nil
	}
	return decimal.Zero, errors.Wrapf(errors.TypeExternalService, err,
		"no exchange rate for %s-%s and no fallback", from, to)
}
