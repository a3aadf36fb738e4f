package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertBatch stores all results in one transaction; a failure leaves
// nothing behind. Rows with the same (run, index) are replaced.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, results []models.Result) error {
	if len(results) == 0 {
		return nil
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, res := range results {
			created := res.CreatedAt
			if created.IsZero() {
				created = time.Now()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO results (run_id, idx, email, status, detail, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(run_id, idx) DO UPDATE SET
					email = excluded.email,
					status = excluded.status,
					detail = excluded.detail,
					created_at = excluded.created_at
			`, res.RunID, res.Index, res.Email, string(res.Status), res.Detail, created.UTC().Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("insert result %s/%d: %w", res.RunID, res.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert results: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListByRun(ctx context.Context, runID string) ([]models.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, idx, email, status, detail, created_at
		FROM results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []models.Result
	for rows.Next() {
		var (
			res     models.Result
			status  string
			created string
		)
		if err := rows.Scan(&res.RunID, &res.Index, &res.Email, &status, &res.Detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		res.Status = models.ResultStatus(status)
		if res.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", created, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result rows: %w", err)
	}
	return out, nil
}

// LatestRunID returns the run with the newest result, or "" when empty.
func (r *SQLiteRepository) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id FROM results ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, nil
}
