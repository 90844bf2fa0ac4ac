package postgres

import (
	"reflect"
	"strings"
	"testing"

	"cloud-pricing/db"
)

func TestListQuery(t *testing.T) {
	pf := &db.ProductFilter{Fields: db.Filter{"vendorName": "aws", "region": ""}}

	query, args, err := listQuery("products", pf, 1000)
	if err != nil {
		t.Fatalf("listQuery: %v", err)
	}

	want := `SELECT "productHash", sku, "vendorName", region, service, "productFamily", attributes, prices ` +
		`FROM "products" WHERE ("region" = '' OR "region" IS NULL) AND "vendorName" = $1 LIMIT $2`
	if query != want {
		t.Errorf("query = %s\nwant    %s", query, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"aws", 1000}) {
		t.Errorf("args = %#v", args)
	}
}

func TestListQueryWithoutFilter(t *testing.T) {
	query, args, err := listQuery("products", nil, 50)
	if err != nil {
		t.Fatalf("listQuery: %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Errorf("empty filter must not emit a WHERE clause: %s", query)
	}
	if !reflect.DeepEqual(args, []interface{}{50}) {
		t.Errorf("args = %#v", args)
	}
}

func TestUpsertStatement(t *testing.T) {
	query := upsertStatement("products", 2)

	wantPieces := []string{
		`INSERT INTO "products" ("productHash", sku, "vendorName", region, service, "productFamily", attributes, prices)`,
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)`,
		`ON CONFLICT ("productHash") DO UPDATE SET`,
		`sku = excluded.sku`,
		`prices = "products".prices || excluded.prices`,
	}
	for _, piece := range wantPieces {
		if !strings.Contains(query, piece) {
			t.Errorf("statement missing %q:\n%s", piece, query)
		}
	}
	if strings.Contains(query, "prices = excluded.prices,") {
		t.Error("price column must be merged, never replaced wholesale")
	}
}

func TestGroupAndFlattenPrices(t *testing.T) {
	prices := []db.Price{
		{PriceHash: "h2", PurchaseOption: "spot"},
		{PriceHash: "h1", PurchaseOption: "on_demand"},
	}

	grouped := groupPrices(prices)
	if len(grouped) != 2 || len(grouped["h1"]) != 1 || len(grouped["h2"]) != 1 {
		t.Fatalf("groupPrices = %+v", grouped)
	}

	flat := flattenPrices(grouped)
	if len(flat) != 2 {
		t.Fatalf("flattenPrices returned %d prices", len(flat))
	}
	// Flattened output is ordered by hash regardless of input order.
	if flat[0].PriceHash != "h1" || flat[1].PriceHash != "h2" {
		t.Errorf("flattenPrices order = [%s, %s], want [h1, h2]", flat[0].PriceHash, flat[1].PriceHash)
	}
}

func TestCopyArgsNullableRegion(t *testing.T) {
	record := []string{"hash", "sku", "azure", "", "service", "", "{}", "{}"}
	args := copyArgs(record)

	if args[3] != nil {
		t.Errorf("empty region should load as NULL, got %v", args[3])
	}
	if args[5] != "" {
		t.Errorf("empty productFamily must stay non-null, got %v", args[5])
	}
}
