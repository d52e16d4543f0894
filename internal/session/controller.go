// Package session bridges reader callbacks to the tag aggregator and the
// refresh scheduler, and exposes the connect and capture commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/rfid-console/internal/aggregator"
	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader"
	"github.com/j-veylop/rfid-console/internal/scheduler"
)

// Sink is the rendering side of the capture core.
type Sink interface {
	scheduler.Sink
	OnTotalCount(n int)
	OnClear()
	OnSessionChanged(s models.CaptureSession)
}

// SessionCounter is notified when a capture session starts.
type SessionCounter interface {
	SessionStarted()
}

// Options configures a Controller.
type Options struct {
	RefreshInterval time.Duration
	ConnectTimeout  time.Duration
	// SelfTestDuration, when positive, runs a short capture right after
	// every successful connect.
	SelfTestDuration time.Duration
	Sessions         SessionCounter
}

// Controller owns the capture session lifecycle.
type Controller struct {
	reader reader.Reader
	agg    *aggregator.Aggregator
	sched  *scheduler.Scheduler
	sink   Sink
	opts   Options

	// reading is true between InventoryStart and InventoryStop. starting is
	// set when a start command has been issued but not yet acknowledged.
	reading  atomic.Bool
	starting atomic.Bool

	mu       sync.Mutex
	session  models.CaptureSession
	testStop context.CancelFunc
}

var _ reader.Listener = (*Controller)(nil)

// New creates a controller for r. The scheduler feeding sink is created
// here and shares agg.
func New(r reader.Reader, agg *aggregator.Aggregator, sink Sink, opts Options) *Controller {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = scheduler.DefaultInterval
	}
	return &Controller{
		reader:  r,
		agg:     agg,
		sched:   scheduler.New(agg, sink),
		sink:    sink,
		opts:    opts,
		session: models.CaptureSession{Host: r.Host(), State: models.SessionIdle},
	}
}

// Session returns the current session with live counts filled in.
func (c *Controller) Session() models.CaptureSession {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s.State == models.SessionCapturing {
		s.UniqueTags = c.agg.Size()
		s.TotalReads = c.agg.TotalReads()
	}
	return s
}

// Reading reports whether an inventory is running.
func (c *Controller) Reading() bool {
	return c.reading.Load()
}

// Connect opens the reader connection. Failure leaves the session Idle and
// reports the reason through the sink; retrying is up to the caller.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.session.State == models.SessionConnecting:
		c.mu.Unlock()
		return nil
	case c.session.State.IsConnected():
		c.mu.Unlock()
		c.sink.OnStatusMessage("Already connected to " + c.reader.Host())
		return reader.ErrAlreadyConnected
	}
	c.session.State = models.SessionConnecting
	c.session.Host = c.reader.Host()
	s := c.session
	c.mu.Unlock()

	c.sink.OnSessionChanged(s)
	c.sink.OnStatusMessage("Connecting...")

	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}

	// Listeners must be armed before the handshake so Connected is seen
	c.reader.SetListener(c)

	err := c.safeCall("connect", func() error { return c.reader.Connect(ctx) })
	switch {
	case errors.Is(err, reader.ErrAlreadyConnected):
		// The driver kept a link we lost track of; adopt it
		c.handleConnected(reader.Connected{Host: c.reader.Host()})
	case err != nil:
		c.reader.SetListener(nil)
		c.setState(models.SessionIdle)
		c.sink.OnStatusMessage(fmt.Sprintf("Connection failed: %v", err))
		return err
	}

	if c.opts.SelfTestDuration > 0 {
		testCtx, cancel := context.WithCancel(context.Background())
		c.mu.Lock()
		c.testStop = cancel
		c.mu.Unlock()
		go c.selfTest(testCtx, c.opts.SelfTestDuration)
	}

	return nil
}

// Disconnect closes the reader connection. The Disconnected event completes
// the teardown.
func (c *Controller) Disconnect() error {
	c.cancelSelfTest()

	if err := c.safeCall("disconnect", c.reader.Disconnect); err != nil {
		if errors.Is(err, reader.ErrNotConnected) {
			c.sink.OnStatusMessage("Reader not connected")
		} else {
			c.sink.OnStatusMessage(fmt.Sprintf("Disconnect failed: %v", err))
		}
		return err
	}
	return nil
}

// StartCapture asks the reader to begin an inventory. A capture that is
// running or already requested is left alone.
func (c *Controller) StartCapture() error {
	if c.reading.Load() {
		return nil
	}
	if !c.starting.CompareAndSwap(false, true) {
		return nil
	}

	if err := c.safeCall("start inventory", c.reader.StartInventory); err != nil {
		c.starting.Store(false)
		c.sink.OnStatusMessage(fmt.Sprintf("Start failed: %v", err))
		return err
	}
	return nil
}

// StopCapture asks the reader to end the inventory. It does nothing when no
// capture is running or requested.
func (c *Controller) StopCapture() error {
	if !c.reading.Load() && !c.starting.Load() {
		return nil
	}

	if err := c.safeCall("stop inventory", c.reader.StopInventory); err != nil {
		c.sink.OnStatusMessage(fmt.Sprintf("Stop failed: %v", err))
		return err
	}
	return nil
}

// ToggleCapture starts a capture when idle and stops it when running.
func (c *Controller) ToggleCapture() error {
	if c.reading.Load() || c.starting.Load() {
		return c.StopCapture()
	}
	return c.StartCapture()
}

// OnReadBatch forwards a batch to the aggregator.
func (c *Controller) OnReadBatch(batch []models.TagRead) {
	c.agg.RecordReads(batch)
}

// OnStatus handles a reader status event.
func (c *Controller) OnStatus(event reader.Event) {
	switch ev := event.(type) {
	case reader.Connected:
		c.handleConnected(ev)
	case reader.Disconnected:
		c.handleDisconnected(ev)
	case reader.InventoryStart:
		c.handleInventoryStart()
	case reader.InventoryStop:
		c.handleInventoryStop()
	case reader.OperationSummary:
		c.handleOperationSummary(ev)
	case reader.TriggerPressed:
		// Hardware bounce and repeat presses collapse into one start
		if err := c.StartCapture(); err != nil {
			logger.Warn("trigger start failed", "error", err)
		}
	case reader.TriggerReleased:
		if err := c.StopCapture(); err != nil {
			logger.Warn("trigger stop failed", "error", err)
		}
	default:
		logger.Warn("unhandled reader event", "type", fmt.Sprintf("%T", event))
	}
}

func (c *Controller) handleConnected(ev reader.Connected) {
	c.mu.Lock()
	c.session.Host = ev.Host
	c.session.State = models.SessionConnected
	s := c.session
	c.mu.Unlock()

	logger.Info("reader connected", "host", ev.Host)
	c.sink.OnSessionChanged(s)
	c.sink.OnStatusMessage("Connected to " + ev.Host)
}

func (c *Controller) handleDisconnected(ev reader.Disconnected) {
	c.cancelSelfTest()
	c.starting.Store(false)
	wasReading := c.reading.Swap(false)
	if wasReading {
		c.sched.Stop()
	}

	c.mu.Lock()
	if wasReading {
		c.session.StoppedAt = time.Now()
		c.session.UniqueTags = c.agg.Size()
		c.session.TotalReads = c.agg.TotalReads()
	}
	c.session.State = models.SessionDisconnected
	s := c.session
	c.mu.Unlock()

	c.reader.SetListener(nil)

	logger.Info("reader disconnected", "reason", ev.Reason, "was_reading", wasReading)
	c.sink.OnSessionChanged(s)
	msg := "Disconnected"
	if ev.Reason != "" {
		msg += ": " + ev.Reason
	}
	c.sink.OnStatusMessage(msg)
}

func (c *Controller) handleInventoryStart() {
	// reading is set before starting is cleared so StartCapture never sees
	// both false mid-transition.
	started := c.reading.CompareAndSwap(false, true)
	c.starting.Store(false)
	if !started {
		return
	}

	c.agg.Clear()
	c.sink.OnClear()

	c.mu.Lock()
	c.session = models.CaptureSession{
		ID:        uuid.NewString(),
		Host:      c.session.Host,
		State:     models.SessionCapturing,
		StartedAt: time.Now(),
	}
	s := c.session
	c.mu.Unlock()

	if c.opts.Sessions != nil {
		c.opts.Sessions.SessionStarted()
	}

	c.sched.Start(c.opts.RefreshInterval)

	logger.Info("capture started", "session", s.ID)
	c.sink.OnSessionChanged(s)
}

func (c *Controller) handleInventoryStop() {
	if !c.reading.CompareAndSwap(true, false) {
		return
	}

	// Stop returns after the final snapshot has been forwarded
	c.sched.Stop()

	unique := c.agg.Size()

	c.mu.Lock()
	c.session.State = models.SessionStopped
	c.session.StoppedAt = time.Now()
	c.session.UniqueTags = unique
	c.session.TotalReads = c.agg.TotalReads()
	s := c.session
	c.mu.Unlock()

	logger.Info("capture stopped", "session", s.ID, "unique", unique, "reads", s.TotalReads)
	c.sink.OnStatusMessage(scheduler.UniqueCountMessage(unique))
	c.sink.OnSessionChanged(s)
}

func (c *Controller) handleOperationSummary(ev reader.OperationSummary) {
	c.mu.Lock()
	c.session.EngineTotal = ev.TotalCount
	s := c.session
	c.mu.Unlock()

	c.sink.OnTotalCount(ev.TotalCount)
	c.sink.OnSessionChanged(s)
}

// selfTest runs one short capture after connecting.
func (c *Controller) selfTest(ctx context.Context, d time.Duration) {
	if err := c.StartCapture(); err != nil {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if err := c.StopCapture(); err != nil {
		logger.Warn("self-test stop failed", "error", err)
	}
}

func (c *Controller) cancelSelfTest() {
	c.mu.Lock()
	cancel := c.testStop
	c.testStop = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Controller) setState(state models.SessionState) {
	c.mu.Lock()
	c.session.State = state
	s := c.session
	c.mu.Unlock()

	c.sink.OnSessionChanged(s)
}

// Close ends any running refresh loop with its final flush.
func (c *Controller) Close() {
	c.cancelSelfTest()
	if c.reading.Swap(false) {
		c.sched.Stop()
	}
	c.starting.Store(false)
}

// safeCall runs a reader command, turning errors and panics into logged,
// returned errors.
func (c *Controller) safeCall(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("reader command panicked", "op", op, "panic", r)
			err = fmt.Errorf("%s: reader panic: %v", op, r)
		}
	}()

	if err = fn(); err != nil {
		logger.Error("reader command failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
