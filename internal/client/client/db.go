package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/automailpro/internal/client/migrations"
	"github.com/dmitrijs2005/automailpro/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/automailpro/internal/client/repositories/results"
)

// Repositories bundles the local stores backed by one database.
type Repositories struct {
	Metadata metadata.Repository
	Results  results.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		Results:  results.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDatabase opens the SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; the pipeline and the REPL share the handle
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
