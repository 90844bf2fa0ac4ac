// Package postgres implements the relational CatalogStore. The price
// collection is stored physically grouped as a JSONB map of priceHash to
// price list, which makes merge-upsert a key-wise JSONB union; the read
// path flattens the map back into an ordered list before returning.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"cloud-pricing/db"
	"cloud-pricing/db/filter"
	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

const (
	// ProductTableName is the live table the query path reads from.
	ProductTableName = "products"

	// connection setup is retried with fixed backoff before giving up
	connectAttempts = 3
	connectBackoff  = 5 * time.Second
)

// priceMap is the physical shape of the prices column.
type priceMap map[string][]db.Price

// Store is the relational catalog store.
type Store struct {
	pool  *sql.DB
	table string
}

var _ db.CatalogStore = (*Store)(nil)

// Open connects to the relational store, retrying connection setup a bounded
// number of times with fixed backoff before treating the failure as fatal.
func Open(ctx context.Context, uri string) (*Store, error) {
	pool, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, errors.TransientStore("opening connection pool", err)
	}

	for attempt := 1; ; attempt++ {
		err = pool.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= connectAttempts {
			pool.Close()
			return nil, errors.TransientStore("connecting to relational store", err)
		}
		logging.Warn("relational store unreachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", connectBackoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}

	return &Store{pool: pool, table: ProductTableName}, nil
}

// ListProducts returns products matching the filter, capped at
// db.ProductLimit, prices flattened back into a hash-ordered list.
func (s *Store) ListProducts(ctx context.Context, pf *db.ProductFilter, limit int) ([]*db.Product, error) {
	query, args, err := listQuery(s.table, pf, db.CapLimit(limit))
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.TransientStore("querying products", err)
	}
	defer rows.Close()

	var products []*db.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TransientStore("reading product rows", err)
	}
	return products, nil
}

// FindProduct returns the first product matching the filter.
func (s *Store) FindProduct(ctx context.Context, pf *db.ProductFilter) (*db.Product, error) {
	products, err := s.ListProducts(ctx, pf, 1)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, errors.NotFound("product", "matching filter")
	}
	return products[0], nil
}

// MatchPrices evaluates the filter against an in-memory price collection.
func (s *Store) MatchPrices(prices []db.Price, f db.Filter) ([]db.Price, error) {
	return filter.MatchPrices(prices, f)
}

// UpsertProducts merge-upserts one batch with a single multi-row
// insert-or-update statement. On conflict by productHash the scalar columns
// are overwritten and the price map becomes the union of the stored and the
// incoming map: new hashes added, colliding hashes overwritten by the
// incoming value, untouched hashes preserved.
func (s *Store) UpsertProducts(ctx context.Context, products []*db.Product) error {
	if len(products) == 0 {
		return nil
	}

	query := upsertStatement(s.table, len(products))
	args := make([]interface{}, 0, len(products)*8)
	for _, product := range products {
		attrs, err := json.Marshal(product.Attributes)
		if err != nil {
			return errors.Internal("encoding attributes", err)
		}
		prices, err := json.Marshal(groupPrices(product.Prices))
		if err != nil {
			return errors.Internal("encoding prices", err)
		}
		args = append(args,
			product.ProductHash,
			product.SKU,
			product.VendorName,
			product.Region,
			product.Service,
			product.ProductFamily,
			attrs,
			prices,
		)
	}

	if _, err := s.pool.ExecContext(ctx, query, args...); err != nil {
		return errors.TransientStore("bulk upsert", err)
	}
	logging.Debug("bulk upserted products", zap.Int("count", len(products)))
	return nil
}

// UpsertPrice replaces one hash key of a product's price map, leaving every
// other key untouched. The JSONB union happens inside the store, so there is
// no read-modify-write window.
func (s *Store) UpsertPrice(ctx context.Context, product *db.Product, price *db.Price) error {
	patch, err := json.Marshal(priceMap{price.PriceHash: {*price}})
	if err != nil {
		return errors.Internal("encoding price", err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET prices = prices || $2 WHERE "productHash" = $1`,
		pq.QuoteIdentifier(s.table),
	)
	res, err := s.pool.ExecContext(ctx, query, product.ProductHash, patch)
	if err != nil {
		return errors.TransientStore("upserting price", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("product", product.ProductHash)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close(context.Context) error {
	return s.pool.Close()
}

// listQuery builds the parameterized SELECT for a product filter.
func listQuery(table string, pf *db.ProductFilter, limit int) (string, []interface{}, error) {
	clause, args, err := filter.SQL(pf, 0)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		`SELECT "productHash", sku, "vendorName", region, service, "productFamily", attributes, prices FROM %s`,
		pq.QuoteIdentifier(table))
	if clause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(clause)
	}
	fmt.Fprintf(&b, " LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return b.String(), args, nil
}

// upsertStatement builds the multi-row insert-or-update statement for n
// products, eight parameters per row.
func upsertStatement(table string, n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		base := i * 8
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
	}

	t := pq.QuoteIdentifier(table)
	return fmt.Sprintf(
		`INSERT INTO %s ("productHash", sku, "vendorName", region, service, "productFamily", attributes, prices) `+
			`VALUES %s `+
			`ON CONFLICT ("productHash") DO UPDATE SET `+
			`sku = excluded.sku, "vendorName" = excluded."vendorName", region = excluded.region, `+
			`service = excluded.service, "productFamily" = excluded."productFamily", `+
			`attributes = excluded.attributes, prices = %s.prices || excluded.prices`,
		t, strings.Join(rows, ", "), t)
}

func scanProduct(rows *sql.Rows) (*db.Product, error) {
	var (
		product db.Product
		region  sql.NullString
		attrs   []byte
		prices  []byte
	)
	err := rows.Scan(
		&product.ProductHash,
		&product.SKU,
		&product.VendorName,
		&region,
		&product.Service,
		&product.ProductFamily,
		&attrs,
		&prices,
	)
	if err != nil {
		return nil, errors.TransientStore("scanning product row", err)
	}
	if region.Valid {
		product.Region = &region.String
	}
	if err := json.Unmarshal(attrs, &product.Attributes); err != nil {
		return nil, errors.Internal("decoding attributes", err)
	}

	var grouped priceMap
	if err := json.Unmarshal(prices, &grouped); err != nil {
		return nil, errors.Internal("decoding prices", err)
	}
	product.Prices = flattenPrices(grouped)
	return &product, nil
}

// groupPrices converts a flat price list into the stored map shape.
func groupPrices(prices []db.Price) priceMap {
	grouped := make(priceMap, len(prices))
	for _, p := range prices {
		grouped[p.PriceHash] = append(grouped[p.PriceHash], p)
	}
	return grouped
}

// flattenPrices restores a hash-ordered flat list from the stored map.
func flattenPrices(grouped priceMap) []db.Price {
	hashes := make([]string, 0, len(grouped))
	for h := range grouped {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var out []db.Price
	for _, h := range hashes {
		out = append(out, grouped[h]...)
	}
	return out
}
