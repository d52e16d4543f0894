// Package aggregator owns the shared tag counting table.
//
// Reads arrive from reader callbacks on any number of goroutines while a
// single refresh goroutine copies the table for display. One mutex guards
// the map and is held only for a batch update or a copy, never while the
// copy is being rendered.
package aggregator

import (
	"sync"
	"time"

	"github.com/j-veylop/rfid-console/internal/models"
)

// Observer receives counting statistics. metrics.Collector implements it.
type Observer interface {
	ObserveBatch(entries int, reads uint64, dropped int)
	ObserveSnapshot(took time.Duration, unique int)
}

type entry struct {
	count     uint64
	firstSeen uint64
	lastSeen  uint64
}

// Aggregator accumulates per-tag read counts.
type Aggregator struct {
	mu       sync.Mutex
	table    map[string]*entry
	total    uint64
	seq      uint64
	observer Observer
}

// New creates an empty aggregator. observer may be nil.
func New(observer Observer) *Aggregator {
	return &Aggregator{
		table:    make(map[string]*entry),
		observer: observer,
	}
}

// RecordReads adds each read's SeenCount to its tag's count, inserting new
// tags. Entries with an empty ID are dropped.
func (a *Aggregator) RecordReads(batch []models.TagRead) {
	if len(batch) == 0 {
		return
	}

	var reads uint64
	dropped := 0

	a.mu.Lock()
	a.seq++
	seq := a.seq
	for _, r := range batch {
		if r.ID == "" {
			dropped++
			continue
		}
		e, ok := a.table[r.ID]
		if !ok {
			e = &entry{firstSeen: seq}
			a.table[r.ID] = e
		}
		e.count += uint64(r.SeenCount)
		e.lastSeen = seq
		reads += uint64(r.SeenCount)
	}
	a.total += reads
	a.mu.Unlock()

	if a.observer != nil {
		a.observer.ObserveBatch(len(batch), reads, dropped)
	}
}

// Snapshot returns an independent copy of the id to count mapping.
func (a *Aggregator) Snapshot() map[string]uint64 {
	start := time.Now()

	a.mu.Lock()
	out := make(map[string]uint64, len(a.table))
	for id, e := range a.table {
		out[id] = e.count
	}
	a.mu.Unlock()

	a.observe(start, len(out))
	return out
}

// Entries returns an independent copy of the table ordered most recently
// seen first.
func (a *Aggregator) Entries() []models.TagCount {
	start := time.Now()

	a.mu.Lock()
	out := make([]models.TagCount, 0, len(a.table))
	for id, e := range a.table {
		out = append(out, models.TagCount{
			ID:        id,
			Count:     e.count,
			FirstSeen: e.firstSeen,
			LastSeen:  e.lastSeen,
		})
	}
	a.mu.Unlock()

	a.observe(start, len(out))

	models.SortMostRecent(out)
	return out
}

// Clear empties the table.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	clear(a.table)
	a.total = 0
	a.mu.Unlock()
}

// Size returns the number of unique tags.
func (a *Aggregator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.table)
}

// TotalReads returns the sum of all counts since the last Clear.
func (a *Aggregator) TotalReads() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

func (a *Aggregator) observe(start time.Time, unique int) {
	if a.observer != nil {
		a.observer.ObserveSnapshot(time.Since(start), unique)
	}
}
