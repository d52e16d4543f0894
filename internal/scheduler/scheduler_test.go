package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/rfid-console/internal/aggregator"
	"github.com/j-veylop/rfid-console/internal/models"
)

type recordingSink struct {
	mu       sync.Mutex
	lists    [][]models.TagCount
	statuses []string
}

func (r *recordingSink) OnListRefresh(entries []models.TagCount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, entries)
}

func (r *recordingSink) OnStatusMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *recordingSink) counts() (lists, statuses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists), len(r.statuses)
}

func (r *recordingSink) lastList() []models.TagCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

func TestStop_FlushesOnceWhenEmpty(t *testing.T) {
	sink := &recordingSink{}
	s := New(aggregator.New(nil), sink)

	s.Start(time.Hour)
	s.Stop()

	lists, statuses := sink.counts()
	if lists != 1 {
		t.Fatalf("expected exactly one final refresh, got %d", lists)
	}
	if statuses != 0 {
		t.Errorf("final flush should not emit status, got %d", statuses)
	}
	if got := sink.lastList(); len(got) != 0 {
		t.Errorf("final refresh = %v, want empty", got)
	}
}

func TestStop_BeforeFirstTick(t *testing.T) {
	agg := aggregator.New(nil)
	sink := &recordingSink{}
	s := New(agg, sink)

	s.Start(500 * time.Millisecond)
	agg.RecordReads([]models.TagRead{{ID: "A", SeenCount: 5}, {ID: "B", SeenCount: 1}})
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	lists, _ := sink.counts()
	if lists != 1 {
		t.Fatalf("expected one refresh, got %d", lists)
	}
	got := sink.lastList()
	if len(got) != 2 {
		t.Fatalf("final refresh has %d entries, want 2", len(got))
	}
	if models.TotalCount(got) != 6 {
		t.Errorf("final refresh total = %d, want 6", models.TotalCount(got))
	}
}

func TestStop_WhileIdle(t *testing.T) {
	sink := &recordingSink{}
	s := New(aggregator.New(nil), sink)

	s.Stop()
	s.Stop()

	if lists, _ := sink.counts(); lists != 0 {
		t.Errorf("Stop on idle scheduler forwarded %d refreshes", lists)
	}
}

func TestStart_Idempotent(t *testing.T) {
	sink := &recordingSink{}
	s := New(aggregator.New(nil), sink)

	s.Start(time.Hour)
	s.Start(time.Hour)
	if !s.Running() {
		t.Fatal("expected scheduler to be running")
	}

	s.Stop()
	if s.Running() {
		t.Error("expected scheduler to be idle after Stop")
	}
	if lists, _ := sink.counts(); lists != 1 {
		t.Errorf("expected one final refresh, got %d", lists)
	}

	// Stop again does nothing
	s.Stop()
	if lists, _ := sink.counts(); lists != 1 {
		t.Errorf("second Stop forwarded again, total %d", lists)
	}
}

func TestTick_ForwardsOnlyNonEmpty(t *testing.T) {
	agg := aggregator.New(nil)
	sink := &recordingSink{}
	s := New(agg, sink)

	s.Start(10 * time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if lists, statuses := sink.counts(); lists != 0 || statuses != 0 {
		t.Fatalf("empty table was forwarded: lists=%d statuses=%d", lists, statuses)
	}

	agg.RecordReads([]models.TagRead{{ID: "A", SeenCount: 1}})

	deadline := time.After(2 * time.Second)
	for {
		if _, statuses := sink.counts(); statuses > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no refresh forwarded for non-empty table")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.statuses[0] != "Unique Tag Count = 1" {
		t.Errorf("status = %q, want %q", sink.statuses[0], "Unique Tag Count = 1")
	}
}

func TestRestart(t *testing.T) {
	sink := &recordingSink{}
	s := New(aggregator.New(nil), sink)

	for range 3 {
		s.Start(time.Hour)
		s.Stop()
	}

	if lists, _ := sink.counts(); lists != 3 {
		t.Errorf("expected one final refresh per session, got %d", lists)
	}
}

func TestUniqueCountMessage(t *testing.T) {
	if got := UniqueCountMessage(42); got != "Unique Tag Count = 42" {
		t.Errorf("UniqueCountMessage(42) = %q", got)
	}
}
