// Package models defines data structures and domain types.
package models

import (
	"cmp"
	"slices"
)

// TagRead is a single observation delivered by the reader in a read batch.
type TagRead struct {
	// ID is the tag's unique code (EPC). It is treated as an opaque byte string.
	ID string
	// SeenCount is how many times the tag was seen during the polling cycle.
	SeenCount uint32
}

// TagCount is the aggregated view of one tag in the counting table.
type TagCount struct {
	ID    string
	Count uint64
	// FirstSeen and LastSeen are batch sequence numbers, not wall-clock times.
	FirstSeen uint64
	LastSeen  uint64
}

// SortMostRecent orders entries most-recently-seen first. Ties are broken by
// first-seen order and then by ID so the result is deterministic.
func SortMostRecent(entries []TagCount) {
	slices.SortFunc(entries, func(a, b TagCount) int {
		if c := cmp.Compare(b.LastSeen, a.LastSeen); c != 0 {
			return c
		}
		if c := cmp.Compare(a.FirstSeen, b.FirstSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// TotalCount sums the counts of all entries.
func TotalCount(entries []TagCount) uint64 {
	var total uint64
	for i := range entries {
		total += entries[i].Count
	}
	return total
}
