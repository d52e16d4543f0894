package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/rfid-console/internal/catalog"
	"github.com/j-veylop/rfid-console/internal/config"
	"github.com/j-veylop/rfid-console/internal/models"
)

var errCatalogUsage = errors.New("usage: rfid-console catalog list | add <epc> [label] [sku] | rm <epc>")

func runCatalog(w io.Writer, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	return catalogCommand(context.Background(), w, cat, args)
}

func catalogCommand(ctx context.Context, w io.Writer, cat *catalog.Catalog, args []string) error {
	if len(args) == 0 {
		return errCatalogUsage
	}

	switch args[0] {
	case "list", "ls":
		entries, err := cat.All(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "Catalog is empty.")
			return nil
		}
		fmt.Fprintln(w, renderCatalog(entries))
		return nil

	case "add":
		if len(args) < 2 || len(args) > 4 {
			return errCatalogUsage
		}
		entry := models.CatalogEntry{EPC: args[1], AddedAt: time.Now()}
		if len(args) > 2 {
			entry.Label = args[2]
		}
		if len(args) > 3 {
			entry.SKU = args[3]
		}
		if err := cat.Upsert(ctx, entry); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved %s\n", args[1])
		return nil

	case "rm", "delete":
		if len(args) != 2 {
			return errCatalogUsage
		}
		if err := cat.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(w, "Removed %s\n", args[1])
		return nil
	}

	return errCatalogUsage
}

func renderCatalog(entries []models.CatalogEntry) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("EPC", "LABEL", "SKU", "ADDED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for _, e := range entries {
		t.Row(e.EPC, e.Label, e.SKU, e.AddedAt.Format("2006-01-02 15:04"))
	}

	return t.String()
}
