// Package scheduler runs the periodic snapshot-and-forward loop that feeds
// the display while a capture is active.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/models"
)

// DefaultInterval is the refresh period used when none is given.
const DefaultInterval = 500 * time.Millisecond

// Source produces point-in-time copies of the counting table.
type Source interface {
	Entries() []models.TagCount
}

// Sink receives forwarded snapshots.
type Sink interface {
	OnListRefresh(entries []models.TagCount)
	OnStatusMessage(text string)
}

// UniqueCountMessage formats the status line shown after a refresh.
func UniqueCountMessage(n int) string {
	return fmt.Sprintf("Unique Tag Count = %d", n)
}

// Scheduler is either idle or running exactly one refresh loop.
type Scheduler struct {
	source Source
	sink   Sink

	// mu serializes Start and Stop; Stop holds it through the final flush.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle scheduler.
func New(source Source, sink Sink) *Scheduler {
	return &Scheduler{
		source: source,
		sink:   sink,
	}
}

// Start launches the refresh loop. It is a no-op while already running.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, interval, s.done)
	logger.Debug("refresh loop started", "interval", interval)
}

// Stop cancels the loop, waits for it to exit, then forwards one final
// snapshot even if it is empty. Stop on an idle scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	entries := s.source.Entries()
	s.sink.OnListRefresh(entries)
	logger.Debug("refresh loop stopped", "unique", len(entries))
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

// refresh forwards the table only when it has something to show.
func (s *Scheduler) refresh() {
	entries := s.source.Entries()
	if len(entries) == 0 {
		return
	}
	s.sink.OnListRefresh(entries)
	s.sink.OnStatusMessage(UniqueCountMessage(len(entries)))
}
