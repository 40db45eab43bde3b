// Package sqlite stores catalog snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"fitcore/internal/catalog"
	"fitcore/internal/infra/source/sqlstore"
)

// Source reads and writes the catalog tables of one database file.
type Source struct {
	db   *sql.DB
	path string
}

var _ catalog.Source = (*Source)(nil)

// Open opens (creating if needed) the database at path and applies the
// catalog schema.
func Open(ctx context.Context, path string) (*Source, error) {
	if path == "" {
		path = "fitcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db, sqlstore.SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Source{db: db, path: path}, nil
}

// Load implements catalog.Source.
func (s *Source) Load(ctx context.Context) (catalog.Data, error) {
	return sqlstore.Load(ctx, s.db)
}

// Save replaces the stored catalog.
func (s *Source) Save(ctx context.Context, data catalog.Data) error {
	return sqlstore.Save(ctx, s.db, sqlstore.SQLite, data)
}

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Source) Path() string { return s.path }
