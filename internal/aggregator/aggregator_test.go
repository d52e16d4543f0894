package aggregator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/rfid-console/internal/models"
)

type recordingObserver struct {
	mu        sync.Mutex
	batches   int
	reads     uint64
	dropped   int
	snapshots int
}

func (o *recordingObserver) ObserveBatch(_ int, reads uint64, dropped int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
	o.reads += reads
	o.dropped += dropped
}

func (o *recordingObserver) ObserveSnapshot(time.Duration, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots++
}

func TestRecordReads_Scenario(t *testing.T) {
	a := New(nil)

	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 3}, {ID: "B", SeenCount: 1}})
	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 2}})

	snap := a.Snapshot()
	if len(snap) != 2 || snap["A"] != 5 || snap["B"] != 1 {
		t.Fatalf("Snapshot() = %v, want map[A:5 B:1]", snap)
	}
	if a.Size() != 2 {
		t.Errorf("Size() = %d, want 2", a.Size())
	}
	if a.TotalReads() != 6 {
		t.Errorf("TotalReads() = %d, want 6", a.TotalReads())
	}
}

func TestRecordReads_SumIsOrderIndependent(t *testing.T) {
	batches := [][]models.TagRead{
		{{ID: "A", SeenCount: 1}, {ID: "B", SeenCount: 4}},
		{{ID: "C", SeenCount: 2}},
		{{ID: "A", SeenCount: 7}, {ID: "C", SeenCount: 1}},
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	want := map[string]uint64{"A": 8, "B": 4, "C": 3}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			a := New(nil)
			for _, i := range order {
				a.RecordReads(batches[i])
			}
			snap := a.Snapshot()
			for id, n := range want {
				if snap[id] != n {
					t.Errorf("count[%s] = %d, want %d", id, snap[id], n)
				}
			}
		})
	}
}

func TestRecordReads_DropsEmptyID(t *testing.T) {
	obs := &recordingObserver{}
	a := New(obs)

	a.RecordReads([]models.TagRead{{ID: "", SeenCount: 9}, {ID: "A", SeenCount: 1}})

	if a.Size() != 1 {
		t.Errorf("Size() = %d, want 1", a.Size())
	}
	if obs.dropped != 1 {
		t.Errorf("dropped = %d, want 1", obs.dropped)
	}
	if obs.reads != 1 {
		t.Errorf("reads = %d, want 1", obs.reads)
	}
}

func TestRecordReads_EmptyBatch(t *testing.T) {
	obs := &recordingObserver{}
	a := New(obs)

	a.RecordReads(nil)

	if obs.batches != 0 {
		t.Errorf("empty batch should not be observed, got %d", obs.batches)
	}
}

func TestClear(t *testing.T) {
	a := New(nil)
	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 2}})

	a.Clear()

	if snap := a.Snapshot(); len(snap) != 0 {
		t.Errorf("Snapshot() after Clear = %v, want empty", snap)
	}
	if a.TotalReads() != 0 {
		t.Errorf("TotalReads() after Clear = %d, want 0", a.TotalReads())
	}
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	a := New(nil)
	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 1}})

	snap := a.Snapshot()
	snap["A"] = 100
	snap["Z"] = 1

	again := a.Snapshot()
	if again["A"] != 1 || len(again) != 1 {
		t.Errorf("mutating a snapshot changed the table: %v", again)
	}

	entries := a.Entries()
	entries[0].Count = 42
	if a.Snapshot()["A"] != 1 {
		t.Error("mutating Entries() changed the table")
	}
}

func TestEntries_MostRecentFirst(t *testing.T) {
	a := New(nil)
	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 1}, {ID: "B", SeenCount: 1}})
	a.RecordReads([]models.TagRead{{ID: "C", SeenCount: 1}})
	a.RecordReads([]models.TagRead{{ID: "A", SeenCount: 1}})

	entries := a.Entries()

	want := []string{"A", "C", "B"}
	if len(entries) != len(want) {
		t.Fatalf("len(Entries()) = %d, want %d", len(entries), len(want))
	}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].ID, id)
		}
	}
	if entries[0].Count != 2 {
		t.Errorf("A count = %d, want 2", entries[0].Count)
	}
}

// Concurrent producers against a polling consumer: each tag's count seen by
// successive snapshots never decreases, and the final total is exact.
func TestConcurrent_MonotonicSnapshots(t *testing.T) {
	obs := &recordingObserver{}
	a := New(obs)

	const (
		producers = 8
		batches   = 200
	)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range batches {
				a.RecordReads([]models.TagRead{
					{ID: "shared", SeenCount: 1},
					{ID: fmt.Sprintf("p%d-%d", p, i%10), SeenCount: 2},
				})
			}
		}(p)
	}

	stop := make(chan struct{})
	errs := make(chan string, 1)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		prev := map[string]uint64{}
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := a.Snapshot()
			for id, n := range prev {
				if snap[id] < n {
					select {
					case errs <- fmt.Sprintf("count[%s] went from %d to %d", id, n, snap[id]):
					default:
					}
					return
				}
			}
			prev = snap
		}
	}()

	wg.Wait()
	close(stop)
	consumer.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}

	snap := a.Snapshot()
	if snap["shared"] != producers*batches {
		t.Errorf("shared = %d, want %d", snap["shared"], producers*batches)
	}
	if a.Size() != 1+producers*10 {
		t.Errorf("Size() = %d, want %d", a.Size(), 1+producers*10)
	}
	wantTotal := uint64(producers * batches * 3)
	if a.TotalReads() != wantTotal {
		t.Errorf("TotalReads() = %d, want %d", a.TotalReads(), wantTotal)
	}
	if obs.reads != wantTotal {
		t.Errorf("observed reads = %d, want %d", obs.reads, wantTotal)
	}
}
