// Package catalog stores reference labels for known tags in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// Catalog wraps the SQL database connection.
type Catalog struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Catalog, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	c := &Catalog{
		DB:   sqlDB,
		path: path,
	}

	if err := c.configure(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to configure catalog: %w", err)
	}

	if err := c.createSchema(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return c, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := c.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (c *Catalog) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tags (
		epc TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL DEFAULT '',
		added_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tags_sku ON tags(sku);
	`
	_, err := c.ExecContext(context.Background(), query)
	return err
}

// Close checkpoints the WAL and closes the connection.
func (c *Catalog) Close() error {
	_, _ = c.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return c.DB.Close()
}
