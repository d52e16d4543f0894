package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/models"
)

// ErrEmptyEPC is returned when an entry has no EPC.
var ErrEmptyEPC = errors.New("epc is required")

// Upsert inserts an entry or updates the label and SKU of an existing one.
// EPCs are stored upper-case.
func (c *Catalog) Upsert(ctx context.Context, entry models.CatalogEntry) error {
	epc := normalizeEPC(entry.EPC)
	if epc == "" {
		return ErrEmptyEPC
	}

	added := entry.AddedAt
	if added.IsZero() {
		added = time.Now()
	}

	query := `
		INSERT INTO tags (epc, label, sku, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(epc) DO UPDATE SET label = excluded.label, sku = excluded.sku
	`
	if _, err := c.ExecContext(ctx, query, epc, entry.Label, entry.SKU, added.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to upsert tag %s: %w", epc, err)
	}
	return nil
}

// Lookup returns the entry for epc, or nil when it is unknown.
func (c *Catalog) Lookup(ctx context.Context, epc string) (*models.CatalogEntry, error) {
	query := `SELECT epc, label, sku, added_at FROM tags WHERE epc = ?`

	entry, err := scanEntry(c.QueryRowContext(ctx, query, normalizeEPC(epc)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}
	return entry, nil
}

// All returns every entry ordered by EPC.
func (c *Catalog) All(ctx context.Context) ([]models.CatalogEntry, error) {
	rows, err := c.QueryContext(ctx, `SELECT epc, label, sku, added_at FROM tags ORDER BY epc`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Count returns the number of catalog entries.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return n, nil
}

// Labels returns display names for every entry, keyed by EPC.
func (c *Catalog) Labels(ctx context.Context) (map[string]string, error) {
	entries, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(entries))
	for _, e := range entries {
		if name := e.DisplayName(); name != "" {
			labels[e.EPC] = name
		}
	}
	return labels, nil
}

// Delete removes an entry. Deleting an unknown EPC is not an error.
func (c *Catalog) Delete(ctx context.Context, epc string) error {
	if _, err := c.ExecContext(ctx, `DELETE FROM tags WHERE epc = ?`, normalizeEPC(epc)); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	var added string
	if err := row.Scan(&entry.EPC, &entry.Label, &entry.SKU, &added); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, added)
	if err != nil {
		logger.Warn("invalid catalog timestamp", "epc", entry.EPC, "value", added)
	} else {
		entry.AddedAt = t
	}
	return &entry, nil
}

func normalizeEPC(epc string) string {
	return strings.ToUpper(strings.TrimSpace(epc))
}
