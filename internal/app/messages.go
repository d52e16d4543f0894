package app

import (
	"time"

	"github.com/j-veylop/rfid-console/internal/metrics"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/reader/sim"
	"github.com/j-veylop/rfid-console/internal/services"
)

// TickMsg is sent periodically for time-based updates.
type TickMsg struct {
	Time time.Time
}

// SnapshotLoadedMsg carries the service state read at startup and on ticks.
type SnapshotLoadedMsg struct {
	Session  models.CaptureSession
	Scenario sim.Scenario
	Metrics  metrics.Values
	Labels   map[string]string
}

// CommandResultMsg reports the outcome of a reader command.
type CommandResultMsg struct {
	Action string
	Error  error
}

// TriggerToggledMsg reports a simulated trigger press or release.
type TriggerToggledMsg struct {
	Held  bool
	Error error
}

// TagsUpdatedMsg is forwarded to the tabs after the tag table changed.
type TagsUpdatedMsg struct {
	Unique int
	Total  uint64
}

// SessionUpdatedMsg is forwarded to the tabs after a session transition.
type SessionUpdatedMsg struct {
	Session models.CaptureSession
}

// AddNotificationMsg requests adding a notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removing a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg delivers the subscription channel to the model.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a different tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg requests toggling the help overlay.
type ToggleHelpMsg struct{}
