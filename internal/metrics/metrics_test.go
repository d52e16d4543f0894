package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.ObserveBatch(3, 7, 1)
	c.ObserveBatch(1, 2, 0)

	if got := testutil.ToFloat64(c.reads); got != 9 {
		t.Fatalf("expected reads counter 9, got %f", got)
	}
	if got := testutil.ToFloat64(c.batches); got != 2 {
		t.Fatalf("expected batches counter 2, got %f", got)
	}
	if got := testutil.ToFloat64(c.dropped); got != 1 {
		t.Fatalf("expected dropped counter 1, got %f", got)
	}
	if samples := testutil.CollectAndCount(c.batchSize.(prometheus.Collector)); samples != 1 {
		t.Fatalf("expected batch size histogram to collect 1 metric, got %d", samples)
	}

	c.SessionStarted()
	if got := testutil.ToFloat64(c.sessions); got != 1 {
		t.Fatalf("expected sessions counter 1, got %f", got)
	}
}

func TestCollector_Values(t *testing.T) {
	c := New()

	if v := c.Values(); v.Reads != 0 || v.SnapshotP99 != 0 {
		t.Fatalf("expected zero values for a fresh collector, got %+v", v)
	}

	c.ObserveBatch(2, 4, 0)
	c.ObserveBatch(4, 4, 2)
	c.ObserveSnapshot(100*time.Microsecond, 5)
	c.ObserveSnapshot(300*time.Microsecond, 6)
	c.SessionStarted()

	v := c.Values()

	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"Reads", v.Reads, 8},
		{"Batches", v.Batches, 2},
		{"Dropped", v.Dropped, 2},
		{"Snapshots", v.Snapshots, 2},
		{"Sessions", v.Sessions, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}

	if v.UniqueTags != 6 {
		t.Errorf("UniqueTags = %d, want 6", v.UniqueTags)
	}
	if v.MeanBatch != 3 {
		t.Errorf("MeanBatch = %f, want 3", v.MeanBatch)
	}
	if v.SnapshotP50 <= 0 || v.SnapshotP99 < v.SnapshotP50 {
		t.Errorf("unexpected percentiles p50=%v p99=%v", v.SnapshotP50, v.SnapshotP99)
	}
}

func TestCollector_SubMicrosecondSnapshot(t *testing.T) {
	c := New()
	c.ObserveSnapshot(10*time.Nanosecond, 1)

	if v := c.Values(); v.SnapshotP50 != time.Microsecond {
		t.Errorf("SnapshotP50 = %v, want 1us", v.SnapshotP50)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveBatch(1, 1, 0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ReadsTotal) {
		t.Errorf("expected %s in output", ReadsTotal)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", c)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
