package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestRepository_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, KeyLastRunID)
	require.NoError(t, err)
	assert.Nil(t, v, "missing key reads as nil")

	require.NoError(t, r.Set(ctx, KeyLastRunID, []byte("run-a")))
	require.NoError(t, r.Set(ctx, KeyLastRunID, []byte("run-b")))
	require.NoError(t, r.Set(ctx, KeyLastUpdateState, []byte{0x02}))

	v, err = r.Get(ctx, KeyLastRunID)
	require.NoError(t, err)
	assert.Equal(t, []byte("run-b"), v)

	v, err = r.Get(ctx, KeyLastUpdateState)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, v)
}

func TestRepository_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	err = r.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")
}

func TestStringHelpers(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := GetString(ctx, r, KeyLastRunID)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, SetString(ctx, r, KeyLastRunID, "run-1"))
	v, err = GetString(ctx, r, KeyLastRunID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", v)
}

func TestTimeHelpers(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	got, err := GetTime(ctx, r, KeyLastUpdateCheck)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	now := time.Date(2024, 3, 4, 5, 6, 7, 8, time.FixedZone("x", 3600))
	require.NoError(t, SetTime(ctx, r, KeyLastUpdateCheck, now))

	got, err = GetTime(ctx, r, KeyLastUpdateCheck)
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	require.NoError(t, SetString(ctx, r, KeyLastUpdateCheck, "garbage"))
	_, err = GetTime(ctx, r, KeyLastUpdateCheck)
	require.Error(t, err)
}
