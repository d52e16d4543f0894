// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"maps"
	"sync"
	"time"

	"github.com/j-veylop/rfid-console/internal/metrics"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader/sim"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	// MaxTrendPoints bounds the refresh history kept for the trend charts.
	MaxTrendPoints = 120

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// Trend holds per-refresh history for the trend charts.
type Trend struct {
	Unique        []float64
	ReadsPerFlush []float64
}

// State is the view-side copy of everything the tabs render. It is only
// written from the Bubble Tea update loop, but tabs may read it from View.
type State struct {
	mu sync.RWMutex

	status      string
	entries     []models.TagCount
	totalReads  uint64
	engineTotal int
	session     models.CaptureSession
	labels      map[string]string
	scenario    sim.Scenario
	metrics     metrics.Values
	triggerHeld bool

	trend     Trend
	lastTotal uint64

	// revision changes whenever the tag table or its labels change.
	revision uint64

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty application state.
func NewState() *State {
	return &State{
		status:        "Idle",
		engineTotal:   -1,
		labels:        make(map[string]string),
		notifications: make([]Notification, 0),
	}
}

// SetStatus updates the status line.
func (s *State) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
}

// GetStatus returns the status line.
func (s *State) GetStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetEntries replaces the tag table with a refreshed snapshot and records a
// trend point.
func (s *State) SetEntries(entries []models.TagCount, total uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries
	s.totalReads = total
	s.LastUpdated = time.Now()
	s.revision++

	var delta uint64
	if total > s.lastTotal {
		delta = total - s.lastTotal
	}
	s.lastTotal = total

	s.trend.Unique = appendBounded(s.trend.Unique, float64(len(entries)))
	s.trend.ReadsPerFlush = appendBounded(s.trend.ReadsPerFlush, float64(delta))
}

// GetEntries returns a copy of the tag table.
func (s *State) GetEntries() []models.TagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.TagCount, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// UniqueCount returns the number of distinct tags in the table.
func (s *State) UniqueCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TotalReads returns the summed counts of the table.
func (s *State) TotalReads() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalReads
}

// ClearTags empties the table and the trend history for a new capture.
func (s *State) ClearTags() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.totalReads = 0
	s.engineTotal = -1
	s.lastTotal = 0
	s.trend = Trend{}
	s.revision++
}

// SetEngineTotal records the reader's own read total.
func (s *State) SetEngineTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineTotal = n
}

// EngineTotal returns the reader's read total and whether one was reported.
func (s *State) EngineTotal() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engineTotal, s.engineTotal >= 0
}

// SetSession updates the capture session.
func (s *State) SetSession(session models.CaptureSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	if !session.State.IsConnected() {
		s.triggerHeld = false
	}
}

// GetSession returns the capture session.
func (s *State) GetSession() models.CaptureSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetTriggerHeld records whether the simulated trigger is held.
func (s *State) SetTriggerHeld(held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerHeld = held
}

// TriggerHeld reports whether the simulated trigger is held.
func (s *State) TriggerHeld() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triggerHeld
}

// SetLabels replaces the catalog labels.
func (s *State) SetLabels(labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maps.Equal(s.labels, labels) {
		return
	}
	s.labels = maps.Clone(labels)
	if s.labels == nil {
		s.labels = make(map[string]string)
	}
	s.revision++
}

// Label returns the catalog label for an EPC, or "".
func (s *State) Label(epc string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels[epc]
}

// LabelCount returns the number of labelled EPCs.
func (s *State) LabelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

// SetScenario records the simulated reader's scenario.
func (s *State) SetScenario(sc sim.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenario = sc
}

// GetScenario returns the simulated reader's scenario.
func (s *State) GetScenario() sim.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenario
}

// SetMetrics records the latest capture metrics.
func (s *State) SetMetrics(v metrics.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = v
}

// GetMetrics returns the latest capture metrics.
func (s *State) GetMetrics() metrics.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// GetTrend returns a copy of the refresh history.
func (s *State) GetTrend() Trend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Trend{
		Unique:        append([]float64(nil), s.trend.Unique...),
		ReadsPerFlush: append([]float64(nil), s.trend.ReadsPerFlush...),
	}
}

// Revision returns a counter that changes with the tag table or labels.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	notification := Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	}

	s.notifications = append(s.notifications, notification)

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}

	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// TimeSinceUpdate returns the duration since the last table refresh.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}

func appendBounded(series []float64, v float64) []float64 {
	series = append(series, v)
	if len(series) > MaxTrendPoints {
		series = series[len(series)-MaxTrendPoints:]
	}
	return series
}
