package ingestion

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// Source supplies already-parsed product records, one batch per data file.
// The per-vendor download and parsing code lives outside this system.
type Source interface {
	Files() []string
	Parse(ctx context.Context, file string) ([]*db.Product, error)
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	RunID  string
	Loaded int
	Failed []string
}

// Run merge-upserts every file the source offers. A failing file is recorded
// and skipped; the run continues with the next file. The run fails outright
// only when no file could be ingested.
func (e *Engine) Run(ctx context.Context, src Source) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New().String()}
	log := logging.With(zap.String("run_id", result.RunID))

	files := src.Files()
	log.Info("starting ingestion run", zap.Int("files", len(files)))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log.Info("processing file", zap.String("file", file))
		products, err := src.Parse(ctx, file)
		if err == nil {
			err = e.BatchUpsertProducts(ctx, products)
		}
		if err != nil {
			log.Error("skipping file", zap.String("file", file), zap.Error(err))
			result.Failed = append(result.Failed, file)
			continue
		}
		result.Loaded++
	}

	if len(files) > 0 && result.Loaded == 0 {
		return result, errors.Newf(errors.TypeExternalService,
			"ingestion run %s: all %d files failed", result.RunID, len(files))
	}
	return result, nil
}
