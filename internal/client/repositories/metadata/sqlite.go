package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/dbx"
)

// SQLiteRepository implements Repository over the metadata table. A nil
// value from Get means the key is absent.
type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// GetString reads key as text; absent keys yield "".
func GetString(ctx context.Context, r Repository, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func SetString(ctx context.Context, r Repository, key, value string) error {
	return r.Set(ctx, key, []byte(value))
}

// GetTime reads an RFC 3339 timestamp; absent keys yield the zero time.
func GetTime(ctx context.Context, r Repository, key string) (time.Time, error) {
	s, err := GetString(ctx, r, key)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("metadata[%s] is not a timestamp: %w", key, err)
	}
	return t, nil
}

func SetTime(ctx context.Context, r Repository, key string, t time.Time) error {
	return SetString(ctx, r, key, t.UTC().Format(time.RFC3339Nano))
}
