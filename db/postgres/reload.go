package postgres

import (
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// StagingTableName is the freshly created table a reload streams into before
// swapping it live.
const StagingTableName = "ProductLoad"

// productColumns is the physical column order used for staged row data.
var productColumns = []string{
	"productHash", "sku", "vendorName", "region",
	"service", "productFamily", "attributes", "prices",
}

// Reload replaces the whole catalog from compressed row data:
// create staging table, stream rows in without indexes, build the indexes,
// then swap the staging table live by dropping the old table and renaming
// the new one with its index names. Everything runs inside one transaction,
// so a failure at any step leaves the previously live table fully intact
// and queryable; readers never observe a partially loaded table.
func (s *Store) Reload(ctx context.Context, dataDir string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Internal("globbing data files", err)
	}
	if len(files) == 0 {
		return errors.Newf(errors.TypeValidation, "no data files at %q", filepath.Join(dataDir, "*.csv.gz"))
	}

	runID := uuid.New().String()
	log := logging.With(zap.String("run_id", runID))
	log.Info("starting catalog reload", zap.Int("files", len(files)))

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return errors.TransientStore("beginning reload transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error("rolling back reload", zap.Error(rbErr))
			}
		}
	}()

	if err := createProductsTable(ctx, tx, StagingTableName, false); err != nil {
		return errors.TransientStore("creating staging table", err)
	}

	for _, file := range files {
		log.Info("loading file", zap.String("file", file))
		if err := loadFile(ctx, tx, file); err != nil {
			return errors.Wrapf(errors.TypeInternal, err, "loading %s", file)
		}
	}

	// Indexes are built only after all rows are in, avoiding per-row index
	// maintenance during the bulk load.
	if err := createProductsTableIndex(ctx, tx, StagingTableName, false); err != nil {
		return errors.TransientStore("indexing staging table", err)
	}

	if err := s.swapStagingTable(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.TransientStore("committing reload", err)
	}
	committed = true
	log.Info("catalog reload committed")
	return nil
}

// swapStagingTable drops the previous live table and renames the staging
// table, its primary key and its secondary index to the live names.
func (s *Store) swapStagingTable(ctx context.Context, tx *sql.Tx) error {
	drop := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pq.QuoteIdentifier(s.table))
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return errors.TransientStore("dropping previous live table", err)
	}
	if err := renameProductsTable(ctx, tx, StagingTableName, s.table); err != nil {
		return errors.TransientStore("renaming staging table", err)
	}
	return nil
}

// loadFile streams one gzipped CSV file into the staging table. The first
// record is a header line and is skipped; columns are positional in
// productColumns order. An empty region becomes NULL; productFamily is
// always kept non-null.
func loadFile(ctx context.Context, tx *sql.Tx, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = len(productColumns)
	if _, err := reader.Read(); err != nil { // header
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(StagingTableName, productColumns...))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, copyArgs(record)...); err != nil {
			return err
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}
	return stmt.Close()
}

// copyArgs converts one CSV record into COPY arguments. region (index 3) is
// the only nullable column.
func copyArgs(record []string) []interface{} {
	args := make([]interface{}, len(record))
	for i, v := range record {
		if i == 3 && v == "" {
			args[i] = nil
			continue
		}
		args[i] = v
	}
	return args
}
