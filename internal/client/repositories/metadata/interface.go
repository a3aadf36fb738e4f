// Package metadata is a small key/value store for client state that must
// survive restarts (last update check, last run).
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyLastUpdateCheck = "last_update_check"
	KeyLastUpdateState = "last_update_state"
	KeyLastRunID       = "last_run_id"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
