package models

import "time"

// CatalogEntry is reference data describing a known tag.
type CatalogEntry struct {
	AddedAt time.Time
	EPC     string
	Label   string
	SKU     string
}

// DisplayName returns the label, falling back to the SKU and then nothing.
func (c CatalogEntry) DisplayName() string {
	if c.Label != "" {
		return c.Label
	}
	return c.SKU
}
