// Package metrics records capture pipeline statistics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/j-veylop/rfid-console/internal/logger"
)

// Metric names.
const (
	ReadsTotal     = "rfid_tag_reads_total"
	BatchesTotal   = "rfid_read_batches_total"
	DroppedTotal   = "rfid_dropped_entries_total"
	SnapshotsTotal = "rfid_snapshots_total"
	SessionsTotal  = "rfid_capture_sessions_total"
	UniqueTags     = "rfid_unique_tags"
	BatchSize      = "rfid_read_batch_size"
)

// Snapshot copy latency is tracked in microseconds, 1us to 10s.
const (
	latencyMin    = 1
	latencyMax    = 10_000_000
	latencySigFig = 3
)

// Values is a point-in-time view of the collected metrics for display.
type Values struct {
	Reads      uint64
	Batches    uint64
	Dropped    uint64
	Snapshots  uint64
	Sessions   uint64
	UniqueTags int
	// MeanBatch is the average number of entries per batch.
	MeanBatch float64
	// SnapshotP50 and SnapshotP99 are snapshot copy latencies.
	SnapshotP50 time.Duration
	SnapshotP99 time.Duration
}

// Collector owns a private prometheus registry plus an HDR histogram of
// snapshot latencies.
type Collector struct {
	registry  *prometheus.Registry
	reads     prometheus.Counter
	batches   prometheus.Counter
	dropped   prometheus.Counter
	snapshots prometheus.Counter
	sessions  prometheus.Counter
	unique    prometheus.Gauge
	batchSize prometheus.Histogram

	mu      sync.Mutex
	latency *hdrhistogram.Histogram
}

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ReadsTotal,
			Help: "Tag observations added to the counting table.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: BatchesTotal,
			Help: "Read batches delivered by the reader.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: DroppedTotal,
			Help: "Malformed batch entries discarded.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: SnapshotsTotal,
			Help: "Snapshots taken of the counting table.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: SessionsTotal,
			Help: "Capture sessions started.",
		}),
		unique: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: UniqueTags,
			Help: "Unique tags in the counting table at the last snapshot.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    BatchSize,
			Help:    "Entries per read batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		latency: hdrhistogram.New(latencyMin, latencyMax, latencySigFig),
	}

	c.registry.MustRegister(c.reads, c.batches, c.dropped, c.snapshots,
		c.sessions, c.unique, c.batchSize)

	return c
}

// ObserveBatch records one delivered batch.
func (c *Collector) ObserveBatch(entries int, reads uint64, dropped int) {
	c.batches.Inc()
	c.batchSize.Observe(float64(entries))
	c.reads.Add(float64(reads))
	if dropped > 0 {
		c.dropped.Add(float64(dropped))
	}
}

// ObserveSnapshot records one table copy and how long it took.
func (c *Collector) ObserveSnapshot(took time.Duration, unique int) {
	c.snapshots.Inc()
	c.unique.Set(float64(unique))

	us := took.Microseconds()
	if us < latencyMin {
		us = latencyMin
	}

	c.mu.Lock()
	if err := c.latency.RecordValue(us); err != nil {
		logger.Debug("snapshot latency out of range", "us", us)
	}
	c.mu.Unlock()
}

// SessionStarted counts a new capture session.
func (c *Collector) SessionStarted() {
	c.sessions.Inc()
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Values gathers the registry and returns the current values.
func (c *Collector) Values() Values {
	var v Values

	families, err := c.registry.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", "error", err)
	}
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch mf.GetName() {
		case ReadsTotal:
			v.Reads = counterValue(m)
		case BatchesTotal:
			v.Batches = counterValue(m)
		case DroppedTotal:
			v.Dropped = counterValue(m)
		case SnapshotsTotal:
			v.Snapshots = counterValue(m)
		case SessionsTotal:
			v.Sessions = counterValue(m)
		case UniqueTags:
			v.UniqueTags = int(m.GetGauge().GetValue())
		case BatchSize:
			if h := m.GetHistogram(); h.GetSampleCount() > 0 {
				v.MeanBatch = h.GetSampleSum() / float64(h.GetSampleCount())
			}
		}
	}

	c.mu.Lock()
	snap := hdrhistogram.Import(c.latency.Export())
	c.mu.Unlock()

	if snap.TotalCount() > 0 {
		v.SnapshotP50 = time.Duration(snap.ValueAtQuantile(50)) * time.Microsecond
		v.SnapshotP99 = time.Duration(snap.ValueAtQuantile(99)) * time.Microsecond
	}

	return v
}

func counterValue(m *dto.Metric) uint64 {
	return uint64(m.GetCounter().GetValue())
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, c *Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
