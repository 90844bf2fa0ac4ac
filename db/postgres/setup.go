package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// execer covers *sql.DB and *sql.Tx so DDL helpers run both standalone and
// inside the reload transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// createProductsTable creates a products table under the given name. The
// primary key constraint follows the <table>_pkey naming convention that the
// reload swap later renames.
func createProductsTable(ctx context.Context, e execer, table string, ifNotExists bool) error {
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	query := fmt.Sprintf(`
		CREATE TABLE %s%s
		(
			"productHash" text,
			sku text NOT NULL,
			"vendorName" text NOT NULL,
			region text,
			service text NOT NULL,
			"productFamily" text DEFAULT ''::text NOT NULL,
			attributes jsonb NOT NULL,
			prices jsonb NOT NULL,
			CONSTRAINT %s PRIMARY KEY ("productHash")
		)`,
		clause,
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(table+"_pkey"),
	)
	_, err := e.ExecContext(ctx, query)
	return err
}

// createProductsTableIndex creates the (service, region) secondary index
// under the <table>_service_region_index convention.
func createProductsTableIndex(ctx context.Context, e execer, table string, ifNotExists bool) error {
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	query := fmt.Sprintf(`CREATE INDEX %s%s ON %s USING btree (service, region)`,
		clause,
		pq.QuoteIdentifier(table+"_service_region_index"),
		pq.QuoteIdentifier(table),
	)
	_, err := e.ExecContext(ctx, query)
	return err
}

// renameProductsTable renames a table to a new name along with its primary
// key and secondary index, so the renamed table is indistinguishable from one
// created under the new name.
func renameProductsTable(ctx context.Context, e execer, oldTable, newTable string) error {
	statements := []string{
		fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`,
			pq.QuoteIdentifier(oldTable), pq.QuoteIdentifier(newTable)),
		fmt.Sprintf(`ALTER INDEX %s RENAME TO %s`,
			pq.QuoteIdentifier(oldTable+"_pkey"), pq.QuoteIdentifier(newTable+"_pkey")),
		fmt.Sprintf(`ALTER INDEX %s RENAME TO %s`,
			pq.QuoteIdentifier(oldTable+"_service_region_index"),
			pq.QuoteIdentifier(newTable+"_service_region_index")),
	}
	for _, query := range statements {
		if _, err := e.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Setup creates the live products table and its secondary index if they do
// not exist yet.
func (s *Store) Setup(ctx context.Context) error {
	if err := createProductsTable(ctx, s.pool, s.table, true); err != nil {
		return err
	}
	return createProductsTableIndex(ctx, s.pool, s.table, true)
}
