package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rfid-console/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadSnapshotCmd returns a command that reads the current service state.
func loadSnapshotCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return SnapshotLoadedMsg{
			Session:  mgr.Session(),
			Scenario: mgr.Scenario(),
			Metrics:  mgr.Metrics(),
			Labels:   mgr.Labels(),
		}
	}
}

// connectCmd returns a command that connects the reader. The connect
// timeout is applied by the session controller.
func connectCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		err := mgr.Connect(context.Background())
		return CommandResultMsg{Action: "Connect", Error: err}
	}
}

// disconnectCmd returns a command that disconnects the reader.
func disconnectCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: "Disconnect", Error: mgr.Disconnect()}
	}
}

// toggleCaptureCmd returns a command that starts or stops a capture.
func toggleCaptureCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: "Capture", Error: mgr.ToggleCapture()}
	}
}

// toggleTriggerCmd returns a command that presses or releases the trigger.
func toggleTriggerCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		held, err := mgr.ToggleTrigger()
		return TriggerToggledMsg{Held: held, Error: err}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationSuccess,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: QuickNotificationDuration,
		}
	}
}

// Commands provides a public interface to the command functions.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Tick returns a tick command with the specified interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// Connect returns a command that connects the reader.
func (c *Commands) Connect() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return connectCmd(c.manager)
}

// Disconnect returns a command that disconnects the reader.
func (c *Commands) Disconnect() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return disconnectCmd(c.manager)
}

// ToggleCapture returns a command that starts or stops a capture.
func (c *Commands) ToggleCapture() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return toggleCaptureCmd(c.manager)
}

// ToggleTrigger returns a command that presses or releases the trigger.
func (c *Commands) ToggleTrigger() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return toggleTriggerCmd(c.manager)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}
