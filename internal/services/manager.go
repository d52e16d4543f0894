// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"fmt"
	"maps"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rfid-console/internal/aggregator"
	"github.com/j-veylop/rfid-console/internal/catalog"
	"github.com/j-veylop/rfid-console/internal/config"
	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/metrics"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader/sim"
	"github.com/j-veylop/rfid-console/internal/session"
)

type (
	// StatusEvent carries a user-visible status line.
	StatusEvent struct {
		Text string
	}

	// TagsRefreshedEvent carries a snapshot of the counting table.
	TagsRefreshedEvent struct {
		Entries []models.TagCount
		Total   uint64
	}

	// TotalCountEvent carries the reader engine's read total.
	TotalCountEvent struct {
		Total int
	}

	// ClearedEvent is emitted when a new capture empties the table.
	ClearedEvent struct{}

	// SessionChangedEvent is emitted on every capture session transition.
	SessionChangedEvent struct {
		Session models.CaptureSession
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (StatusEvent) isServiceEvent()         {}
func (TagsRefreshedEvent) isServiceEvent()  {}
func (TotalCountEvent) isServiceEvent()     {}
func (ClearedEvent) isServiceEvent()        {}
func (SessionChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}

// Manager wires the reader, the capture core and the supporting services,
// and fans sink callbacks out to subscribers.
type Manager struct {
	cfg        *config.Config
	reader     *sim.Reader
	aggregator *aggregator.Aggregator
	controller *session.Controller
	catalog    *catalog.Catalog
	metrics    *metrics.Collector
	notifier   Notifier

	mu          sync.Mutex
	subscribers []chan ServiceEvent
	labels      map[string]string
	lastSession models.CaptureSession
	triggerHeld bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ session.Sink = (*Manager)(nil)

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	var notifier Notifier = noopNotifier{}
	if cfg.Notifications {
		notifier = beeepNotifier{}
	}
	return newManager(cfg, notifier)
}

func newManager(cfg *config.Config, notifier Notifier) (*Manager, error) {
	scenario, err := sim.EnsureScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load reader scenario: %w", err)
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:      cfg,
		reader:   sim.New(*scenario),
		catalog:  cat,
		metrics:  metrics.New(),
		notifier: notifier,
		labels:   make(map[string]string),
		cancel:   cancel,
	}

	m.aggregator = aggregator.New(m.metrics)
	m.controller = session.New(m.reader, m.aggregator, m, session.Options{
		RefreshInterval:  cfg.RefreshInterval,
		ConnectTimeout:   cfg.ConnectTimeout,
		SelfTestDuration: cfg.SelfTestDuration,
		Sessions:         m.metrics,
	})
	m.lastSession = m.controller.Session()

	if err := m.ReloadLabels(ctx); err != nil {
		logger.Warn("failed to load catalog labels", "error", err)
	}

	if err := m.reader.WatchScenario(cfg.ScenarioPath); err != nil {
		logger.Warn("scenario hot reload disabled", "error", err)
	}

	if cfg.MetricsAddr != "" {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := metrics.Serve(ctx, cfg.MetricsAddr, m.metrics); err != nil {
				logger.Error("metrics server exited", "error", err)
				m.broadcast(ErrorEvent{Service: "metrics", Error: err})
			}
		}()
	}

	return m, nil
}

// OnStatusMessage implements session.Sink.
func (m *Manager) OnStatusMessage(text string) {
	m.broadcast(StatusEvent{Text: text})
}

// OnListRefresh implements session.Sink.
func (m *Manager) OnListRefresh(entries []models.TagCount) {
	m.broadcast(TagsRefreshedEvent{
		Entries: entries,
		Total:   models.TotalCount(entries),
	})
}

// OnTotalCount implements session.Sink.
func (m *Manager) OnTotalCount(n int) {
	m.broadcast(TotalCountEvent{Total: n})
}

// OnClear implements session.Sink.
func (m *Manager) OnClear() {
	m.broadcast(ClearedEvent{})
}

// OnSessionChanged implements session.Sink.
func (m *Manager) OnSessionChanged(s models.CaptureSession) {
	m.mu.Lock()
	prev := m.lastSession
	m.lastSession = s
	if !s.State.IsConnected() {
		m.triggerHeld = false
	}
	m.mu.Unlock()

	m.broadcast(SessionChangedEvent{Session: s})

	if title, body, ok := sessionNotification(prev, s); ok {
		go func() {
			if err := m.notifier.Notify(title, body); err != nil {
				logger.Debug("notification failed", "error", err)
			}
		}()
	}
}

// broadcast sends an event to all subscribers. A full subscriber loses its
// oldest event so the latest state always gets through.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- event:
			default:
			}
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 64)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Connect connects the reader.
func (m *Manager) Connect(ctx context.Context) error {
	return m.controller.Connect(ctx)
}

// Disconnect disconnects the reader.
func (m *Manager) Disconnect() error {
	return m.controller.Disconnect()
}

// ToggleCapture starts or stops a capture.
func (m *Manager) ToggleCapture() error {
	return m.controller.ToggleCapture()
}

// ToggleTrigger presses the simulated trigger, or releases it if held.
// It returns whether the trigger is now held.
func (m *Manager) ToggleTrigger() (bool, error) {
	m.mu.Lock()
	held := m.triggerHeld
	m.mu.Unlock()

	var err error
	if held {
		err = m.reader.ReleaseTrigger()
	} else {
		err = m.reader.PressTrigger()
	}
	if err != nil {
		m.broadcast(StatusEvent{Text: "Trigger unavailable: " + err.Error()})
		return held, err
	}

	m.mu.Lock()
	m.triggerHeld = !held
	held = m.triggerHeld
	m.mu.Unlock()
	return held, nil
}

// Session returns the current capture session.
func (m *Manager) Session() models.CaptureSession {
	return m.controller.Session()
}

// Metrics returns the current capture metrics.
func (m *Manager) Metrics() metrics.Values {
	return m.metrics.Values()
}

// Collector returns the metrics collector.
func (m *Manager) Collector() *metrics.Collector {
	return m.metrics
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Scenario returns the simulated reader's current scenario.
func (m *Manager) Scenario() sim.Scenario {
	return m.reader.Scenario()
}

// Catalog returns the tag catalog.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// ReloadLabels refreshes the cached EPC labels from the catalog.
func (m *Manager) ReloadLabels(ctx context.Context) error {
	labels, err := m.catalog.Labels(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.labels = labels
	m.mu.Unlock()
	return nil
}

// Labels returns a copy of the cached EPC labels.
func (m *Manager) Labels() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.labels)
}

// Close stops capture, the reader and all services.
func (m *Manager) Close() error {
	m.controller.Close()

	var errs []error

	if err := m.reader.Close(); err != nil {
		errs = append(errs, err)
	}

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	if err := m.catalog.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
