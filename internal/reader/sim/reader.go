package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader"
)

// Reader is a simulated reader. Status events are delivered in order from a
// single dispatch goroutine; read batches are delivered directly from the
// producer goroutines, so several may arrive concurrently.
type Reader struct {
	scenario atomic.Pointer[Scenario]

	mu        sync.Mutex
	listener  reader.Listener
	connected bool
	cancel    context.CancelFunc
	producers sync.WaitGroup

	engineTotal atomic.Int64

	// Status deliveries waiting for the dispatcher. Unbounded so a listener
	// that issues commands from inside OnStatus cannot block on itself.
	queueMu  sync.Mutex
	queue    []func()
	wake     chan struct{}
	stopChan chan struct{}
	closeOnce   sync.Once
	watcher     *Watcher
}

var _ reader.Reader = (*Reader)(nil)

// New creates a disconnected simulated reader.
func New(sc Scenario) *Reader {
	r := &Reader{
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
	r.scenario.Store(&sc)

	go r.dispatch()

	return r
}

// Scenario returns the scenario currently in effect.
func (r *Reader) Scenario() Scenario {
	return *r.scenario.Load()
}

// SetScenario replaces the scenario. Running producers pick up the new tag
// population on their next batch; the producer count applies to the next
// inventory.
func (r *Reader) SetScenario(sc Scenario) {
	r.scenario.Store(&sc)
	logger.Info("scenario updated", "host", sc.Host, "producers", sc.Producers)
}

// WatchScenario reloads the scenario whenever the file at path changes.
func (r *Reader) WatchScenario(path string) error {
	w, err := Watch(path, func(sc *Scenario) {
		r.SetScenario(*sc)
	}, func(err error) {
		logger.Warn("scenario reload failed", "path", path, "error", err)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

// SetListener installs the callback receiver. nil removes it.
func (r *Reader) SetListener(l reader.Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Host returns the reader name from the scenario.
func (r *Reader) Host() string {
	return r.scenario.Load().Host
}

// Connect simulates the connection handshake.
func (r *Reader) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.connected {
		r.mu.Unlock()
		return reader.ErrAlreadyConnected
	}
	r.mu.Unlock()

	sc := r.scenario.Load()

	if sc.ConnectDelay > 0 {
		timer := time.NewTimer(sc.ConnectDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", reader.ErrConnectFailed, ctx.Err())
		case <-timer.C:
		}
	}

	if sc.FailConnect {
		return fmt.Errorf("%w: %s did not respond", reader.ErrConnectFailed, sc.Host)
	}

	r.mu.Lock()
	if r.connected {
		r.mu.Unlock()
		return reader.ErrAlreadyConnected
	}
	r.connected = true
	r.mu.Unlock()

	r.emit(reader.Connected{Host: sc.Host})
	return nil
}

// Disconnect halts any running inventory and drops the link.
func (r *Reader) Disconnect() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return reader.ErrNotConnected
	}
	r.connected = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.producers.Wait()
	}

	r.emit(reader.Disconnected{Reason: "disconnected by host"})
	return nil
}

// StartInventory starts the producer goroutines. Starting an inventory that
// is already running does nothing.
func (r *Reader) StartInventory() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return reader.ErrNotConnected
	}
	if r.cancel != nil {
		r.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.engineTotal.Store(0)

	sc := r.scenario.Load()
	r.producers.Add(sc.Producers)
	r.mu.Unlock()

	// Producers hold until InventoryStart has been delivered
	ready := make(chan struct{})
	r.emitFunc(func(l reader.Listener) {
		if l != nil {
			l.OnStatus(reader.InventoryStart{})
		}
		close(ready)
	})

	for i := range sc.Producers {
		go r.produce(ctx, ready, sc.Seed+uint64(i))
	}

	return nil
}

// StopInventory halts the producers, then reports InventoryStop and the
// engine's read total.
func (r *Reader) StopInventory() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return reader.ErrNotConnected
	}
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	r.producers.Wait()

	r.emit(reader.InventoryStop{})
	r.emit(reader.OperationSummary{TotalCount: int(r.engineTotal.Load())})
	return nil
}

// PressTrigger injects a trigger press.
func (r *Reader) PressTrigger() error {
	return r.trigger(reader.TriggerPressed{})
}

// ReleaseTrigger injects a trigger release.
func (r *Reader) ReleaseTrigger() error {
	return r.trigger(reader.TriggerReleased{})
}

func (r *Reader) trigger(ev reader.Event) error {
	if !r.Connected() {
		return reader.ErrNotConnected
	}
	r.emit(ev)
	return nil
}

// Connected reports whether the simulated link is up.
func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Inventorying reports whether producers are running.
func (r *Reader) Inventorying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// EngineTotal returns the reads produced by the current or last inventory.
func (r *Reader) EngineTotal() int {
	return int(r.engineTotal.Load())
}

// Close stops the reader, its watcher and its dispatcher.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.cancel = nil
		r.connected = false
		w := r.watcher
		r.watcher = nil
		r.mu.Unlock()

		if cancel != nil {
			cancel()
			r.producers.Wait()
		}
		if w != nil {
			err = w.Close()
		}
		close(r.stopChan)
	})
	return err
}

func (r *Reader) currentListener() reader.Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

// emit queues a status event for in-order delivery.
func (r *Reader) emit(ev reader.Event) {
	r.emitFunc(func(l reader.Listener) {
		if l != nil {
			l.OnStatus(ev)
		}
	})
}

func (r *Reader) emitFunc(fn func(l reader.Listener)) {
	select {
	case <-r.stopChan:
		return
	default:
	}

	r.queueMu.Lock()
	r.queue = append(r.queue, func() { fn(r.currentListener()) })
	r.queueMu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Reader) dispatch() {
	for {
		select {
		case <-r.wake:
		case <-r.stopChan:
			return
		}

		for {
			r.queueMu.Lock()
			pending := r.queue
			r.queue = nil
			r.queueMu.Unlock()

			if len(pending) == 0 {
				break
			}
			for _, fn := range pending {
				fn()
			}
		}
	}
}

func (r *Reader) produce(ctx context.Context, ready <-chan struct{}, seed uint64) {
	defer r.producers.Done()

	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	rng := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))

	interval := r.scenario.Load().BatchInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch := buildBatch(rng, r.scenario.Load())
			if len(batch) == 0 {
				continue
			}
			var total int64
			for _, tr := range batch {
				if tr.ID != "" {
					total += int64(tr.SeenCount)
				}
			}
			r.engineTotal.Add(total)

			if l := r.currentListener(); l != nil {
				l.OnReadBatch(batch)
			}
		}
	}
}

// buildBatch draws up to BatchSize weighted reads from the population.
func buildBatch(rng *rand.Rand, sc *Scenario) []models.TagRead {
	pop := sc.population()
	if len(pop) == 0 || sc.BatchSize <= 0 {
		return nil
	}

	totalWeight := 0
	for _, t := range pop {
		totalWeight += t.Weight
	}

	n := 1 + rng.IntN(sc.BatchSize)
	batch := make([]models.TagRead, 0, n)
	for range n {
		seen := 1 + rng.Uint32N(sc.MaxSeenCount)
		if sc.MalformedRate > 0 && rng.Float64() < sc.MalformedRate {
			batch = append(batch, models.TagRead{SeenCount: seen})
			continue
		}
		pick := rng.IntN(totalWeight)
		for _, t := range pop {
			pick -= t.Weight
			if pick < 0 {
				batch = append(batch, models.TagRead{ID: t.EPC, SeenCount: seen})
				break
			}
		}
	}
	return batch
}
