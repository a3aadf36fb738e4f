// Package results stores per-account pipeline outcomes and exports them to
// the colon-separated result file.
package results

import (
	"context"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
)

type Repository interface {
	InsertBatch(ctx context.Context, results []models.Result) error
	ListByRun(ctx context.Context, runID string) ([]models.Result, error)
	LatestRunID(ctx context.Context) (string, error)
}
