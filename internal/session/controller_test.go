package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/j-veylop/rfid-console/internal/aggregator"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader"
	"github.com/j-veylop/rfid-console/internal/reader/sim"
)

// fakeReader records commands. With echo set, inventory commands report
// their status events inline the way a synchronous driver would.
type fakeReader struct {
	mu       sync.Mutex
	listener reader.Listener

	echo       bool
	connectErr error
	startErr   error
	startPanic bool

	connects atomic.Int32
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeReader) Connect(context.Context) error {
	f.connects.Add(1)
	if f.connectErr != nil {
		return f.connectErr
	}
	f.emit(reader.Connected{Host: f.Host()})
	return nil
}

func (f *fakeReader) Disconnect() error {
	f.emit(reader.Disconnected{Reason: "test"})
	return nil
}

func (f *fakeReader) StartInventory() error {
	f.starts.Add(1)
	if f.startPanic {
		panic("driver exploded")
	}
	if f.startErr != nil {
		return f.startErr
	}
	if f.echo {
		f.emit(reader.InventoryStart{})
	}
	return nil
}

func (f *fakeReader) StopInventory() error {
	f.stops.Add(1)
	if f.echo {
		f.emit(reader.InventoryStop{})
	}
	return nil
}

func (f *fakeReader) SetListener(l reader.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

func (f *fakeReader) Host() string { return "fake-reader" }

func (f *fakeReader) emit(ev reader.Event) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.OnStatus(ev)
	}
}

func (f *fakeReader) currentListener() reader.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []string
	lists    [][]models.TagCount
	totals   []int
	clears   int
	sessions []models.CaptureSession
}

func (s *recordingSink) OnStatusMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, text)
}

func (s *recordingSink) OnListRefresh(entries []models.TagCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, entries)
}

func (s *recordingSink) OnTotalCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = append(s.totals, n)
}

func (s *recordingSink) OnClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
}

func (s *recordingSink) OnSessionChanged(cs models.CaptureSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, cs)
}

func (s *recordingSink) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func (s *recordingSink) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

func newTestController(t *testing.T, fr *fakeReader, opts Options) (*Controller, *aggregator.Aggregator, *recordingSink) {
	t.Helper()
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = time.Hour
	}
	agg := aggregator.New(nil)
	sink := &recordingSink{}
	c := New(fr, agg, sink, opts)
	// Armed as Connect would, so echoed inventory events reach the controller
	fr.SetListener(c)
	t.Cleanup(c.Close)
	return c, agg, sink
}

func TestConnect_Success(t *testing.T) {
	fr := &fakeReader{}
	c, _, sink := newTestController(t, fr, Options{})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	if got := c.Session().State; got != models.SessionConnected {
		t.Errorf("State = %v, want Connected", got)
	}
	if got := sink.lastStatus(); got != "Connected to fake-reader" {
		t.Errorf("status = %q, want %q", got, "Connected to fake-reader")
	}
	if sink.statuses[0] != "Connecting..." {
		t.Errorf("first status = %q, want Connecting...", sink.statuses[0])
	}
	if fr.currentListener() == nil {
		t.Error("listener should be armed after connect")
	}
}

func TestConnect_Failure(t *testing.T) {
	fr := &fakeReader{connectErr: reader.ErrConnectFailed}
	c, _, sink := newTestController(t, fr, Options{})

	err := c.Connect(context.Background())
	if !errors.Is(err, reader.ErrConnectFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectFailed", err)
	}
	if got := c.Session().State; got != models.SessionIdle {
		t.Errorf("State = %v, want Idle", got)
	}
	if !strings.HasPrefix(sink.lastStatus(), "Connection failed") {
		t.Errorf("status = %q, want connection failure message", sink.lastStatus())
	}
	if fr.currentListener() != nil {
		t.Error("listener should be removed after failed connect")
	}

	// Manual retry works once the reader is reachable
	fr.connectErr = nil
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("retry Connect() failed: %v", err)
	}
	if fr.connects.Load() != 2 {
		t.Errorf("connects = %d, want 2", fr.connects.Load())
	}
}

func TestConnect_WhenConnected(t *testing.T) {
	fr := &fakeReader{}
	c, _, _ := newTestController(t, fr, Options{})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, reader.ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
	if fr.connects.Load() != 1 {
		t.Errorf("driver Connect called %d times, want 1", fr.connects.Load())
	}
}

func TestTriggerPressed_Debounce(t *testing.T) {
	fr := &fakeReader{}
	c, _, _ := newTestController(t, fr, Options{})

	c.OnStatus(reader.TriggerPressed{})
	c.OnStatus(reader.TriggerPressed{})

	if got := fr.starts.Load(); got != 1 {
		t.Fatalf("StartInventory called %d times, want 1", got)
	}

	c.OnStatus(reader.InventoryStart{})
	c.OnStatus(reader.TriggerPressed{})

	if got := fr.starts.Load(); got != 1 {
		t.Errorf("StartInventory called %d times while reading, want 1", got)
	}
}

func TestInventoryStart_RacingStartCapture(t *testing.T) {
	for range 200 {
		fr := &fakeReader{}
		c, _, _ := newTestController(t, fr, Options{})

		if err := c.StartCapture(); err != nil {
			t.Fatalf("StartCapture() failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.OnStatus(reader.InventoryStart{})
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = c.StartCapture()
			}
		}()
		wg.Wait()

		if got := fr.starts.Load(); got != 1 {
			t.Fatalf("StartInventory called %d times, want 1", got)
		}
		if !c.Reading() {
			t.Fatal("expected reading after InventoryStart")
		}
	}
}

func TestTriggerPressed_ConcurrentPresses(t *testing.T) {
	fr := &fakeReader{}
	c, _, _ := newTestController(t, fr, Options{})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.OnStatus(reader.TriggerPressed{})
		}()
	}
	wg.Wait()

	if got := fr.starts.Load(); got != 1 {
		t.Errorf("StartInventory called %d times, want 1", got)
	}
}

func TestStartCapture_FailureResetsDebounce(t *testing.T) {
	fr := &fakeReader{startErr: reader.ErrNotConnected}
	c, _, sink := newTestController(t, fr, Options{})

	if err := c.StartCapture(); !errors.Is(err, reader.ErrNotConnected) {
		t.Fatalf("StartCapture() error = %v, want ErrNotConnected", err)
	}
	if !strings.HasPrefix(sink.lastStatus(), "Start failed") {
		t.Errorf("status = %q, want start failure message", sink.lastStatus())
	}

	fr.startErr = nil
	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() retry failed: %v", err)
	}
	if got := fr.starts.Load(); got != 2 {
		t.Errorf("StartInventory called %d times, want 2", got)
	}
}

func TestStartCapture_RecoversPanic(t *testing.T) {
	fr := &fakeReader{startPanic: true}
	c, _, _ := newTestController(t, fr, Options{})

	err := c.StartCapture()
	if err == nil || !strings.Contains(err.Error(), "driver exploded") {
		t.Fatalf("StartCapture() error = %v, want recovered panic", err)
	}
	if c.Reading() {
		t.Error("controller should not be reading after a panic")
	}
}

func TestInventoryStart_ClearsTable(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, agg, sink := newTestController(t, fr, Options{})

	agg.RecordReads([]models.TagRead{{ID: "stale", SeenCount: 9}})

	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}

	if agg.Size() != 0 {
		t.Errorf("table not cleared, size %d", agg.Size())
	}
	if sink.clears != 1 {
		t.Errorf("OnClear called %d times, want 1", sink.clears)
	}
	s := c.Session()
	if s.State != models.SessionCapturing || s.ID == "" {
		t.Errorf("session = %+v, want Capturing with an ID", s)
	}
	if !c.sched.Running() {
		t.Error("scheduler should be running")
	}
}

func TestCaptureScenario(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, _, sink := newTestController(t, fr, Options{})

	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}

	c.OnReadBatch([]models.TagRead{{ID: "A", SeenCount: 3}, {ID: "B", SeenCount: 1}})
	c.OnReadBatch([]models.TagRead{{ID: "A", SeenCount: 2}})

	if err := c.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}

	if got := sink.listCount(); got != 1 {
		t.Fatalf("expected exactly one final refresh, got %d", got)
	}
	final := sink.lists[0]
	counts := map[string]uint64{}
	for _, e := range final {
		counts[e.ID] = e.Count
	}
	if len(counts) != 2 || counts["A"] != 5 || counts["B"] != 1 {
		t.Errorf("final snapshot = %v, want map[A:5 B:1]", counts)
	}
	if got := sink.lastStatus(); got != "Unique Tag Count = 2" {
		t.Errorf("status = %q, want %q", got, "Unique Tag Count = 2")
	}

	s := c.Session()
	if s.State != models.SessionStopped || s.UniqueTags != 2 || s.TotalReads != 6 {
		t.Errorf("session = %+v, want Stopped with 2 unique and 6 reads", s)
	}
	if c.sched.Running() {
		t.Error("scheduler should be idle after stop")
	}
}

func TestInventoryStop_Duplicate(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, _, sink := newTestController(t, fr, Options{})

	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}
	c.OnStatus(reader.InventoryStop{})
	c.OnStatus(reader.InventoryStop{})

	if got := sink.listCount(); got != 1 {
		t.Errorf("expected one final refresh, got %d", got)
	}
}

func TestTriggerReleased_WhenIdle(t *testing.T) {
	fr := &fakeReader{}
	c, _, _ := newTestController(t, fr, Options{})

	c.OnStatus(reader.TriggerReleased{})

	if got := fr.stops.Load(); got != 0 {
		t.Errorf("StopInventory called %d times while idle, want 0", got)
	}
}

func TestTriggerReleased_WhileReading(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, _, _ := newTestController(t, fr, Options{})

	c.OnStatus(reader.TriggerPressed{})
	if !c.Reading() {
		t.Fatal("expected reading after trigger press")
	}
	c.OnStatus(reader.TriggerReleased{})

	if got := fr.stops.Load(); got != 1 {
		t.Errorf("StopInventory called %d times, want 1", got)
	}
	if c.Reading() {
		t.Error("expected reading to end after release")
	}
}

func TestOperationSummary(t *testing.T) {
	fr := &fakeReader{}
	c, _, sink := newTestController(t, fr, Options{})

	c.OnStatus(reader.OperationSummary{TotalCount: 1234})

	if len(sink.totals) != 1 || sink.totals[0] != 1234 {
		t.Errorf("totals = %v, want [1234]", sink.totals)
	}
	if c.Session().EngineTotal != 1234 {
		t.Errorf("EngineTotal = %d, want 1234", c.Session().EngineTotal)
	}
}

func TestDisconnected_WhileCapturing(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, _, sink := newTestController(t, fr, Options{})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}
	c.OnReadBatch([]models.TagRead{{ID: "A", SeenCount: 1}})

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}

	if got := sink.listCount(); got != 1 {
		t.Errorf("expected final refresh on disconnect, got %d", got)
	}
	if c.Reading() {
		t.Error("reading should be false after disconnect")
	}
	if got := c.Session().State; got != models.SessionDisconnected {
		t.Errorf("State = %v, want Disconnected", got)
	}
	if fr.currentListener() != nil {
		t.Error("listener should be removed after disconnect")
	}
	if !strings.HasPrefix(sink.lastStatus(), "Disconnected") {
		t.Errorf("status = %q, want disconnect message", sink.lastStatus())
	}
}

func TestStopCapture_WhenIdle(t *testing.T) {
	fr := &fakeReader{}
	c, _, _ := newTestController(t, fr, Options{})

	if err := c.StopCapture(); err != nil {
		t.Errorf("StopCapture() error = %v, want nil", err)
	}
	if fr.stops.Load() != 0 {
		t.Error("StopInventory should not be called while idle")
	}
}

type countingSessions struct{ n atomic.Int32 }

func (c *countingSessions) SessionStarted() { c.n.Add(1) }

func TestSelfTest(t *testing.T) {
	fr := &fakeReader{echo: true}
	sessions := &countingSessions{}
	c, _, _ := newTestController(t, fr, Options{
		SelfTestDuration: 20 * time.Millisecond,
		Sessions:         sessions,
	})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for fr.stops.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("self-test never stopped the inventory")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if fr.starts.Load() != 1 {
		t.Errorf("StartInventory called %d times, want 1", fr.starts.Load())
	}
	if sessions.n.Load() != 1 {
		t.Errorf("sessions started = %d, want 1", sessions.n.Load())
	}
}

func TestToggleCapture(t *testing.T) {
	fr := &fakeReader{echo: true}
	c, _, _ := newTestController(t, fr, Options{})

	if err := c.ToggleCapture(); err != nil || !c.Reading() {
		t.Fatalf("first toggle: err=%v reading=%v", err, c.Reading())
	}
	if err := c.ToggleCapture(); err != nil || c.Reading() {
		t.Fatalf("second toggle: err=%v reading=%v", err, c.Reading())
	}
}

// End to end with the simulated reader delivering batches from several
// goroutines.
func TestWithSimulatedReader(t *testing.T) {
	sc := sim.DefaultScenario()
	sc.BatchInterval = 2 * time.Millisecond
	sc.Producers = 4
	r := sim.New(sc)
	defer r.Close()

	agg := aggregator.New(nil)
	sink := &recordingSink{}
	c := New(r, agg, sink, Options{RefreshInterval: 10 * time.Millisecond})
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	waitFor(t, func() bool { return c.Session().State == models.SessionConnected })

	if err := c.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}
	waitFor(t, c.Reading)
	time.Sleep(50 * time.Millisecond)

	if err := c.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}
	waitFor(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.totals) > 0
	})

	sink.mu.Lock()
	defer sink.mu.Unlock()

	final := sink.lists[len(sink.lists)-1]
	if got := int(models.TotalCount(final)); got != sink.totals[0] {
		t.Errorf("final snapshot total = %d, engine total = %d", got, sink.totals[0])
	}
	if len(final) == 0 {
		t.Error("expected tags in the final snapshot")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(2 * time.Millisecond):
		}
	}
}
