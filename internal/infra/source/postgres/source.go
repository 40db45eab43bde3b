// Package postgres stores catalog snapshots in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"fitcore/internal/catalog"
	"fitcore/internal/infra/source/sqlstore"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/fitcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Source reads and writes the catalog tables of one database.
type Source struct {
	db *sql.DB
}

var _ catalog.Source = (*Source)(nil)

// Open connects using dsn (falling back to a local default) and applies the
// catalog schema.
func Open(ctx context.Context, dsn string) (*Source, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db, sqlstore.Postgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Source{db: db}, nil
}

// Load implements catalog.Source.
func (s *Source) Load(ctx context.Context) (catalog.Data, error) {
	return sqlstore.Load(ctx, s.db)
}

// Save replaces the stored catalog.
func (s *Source) Save(ctx context.Context, data catalog.Data) error {
	return sqlstore.Save(ctx, s.db, sqlstore.Postgres, data)
}

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sql.Open function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
