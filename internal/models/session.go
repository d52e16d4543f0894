package models

import "time"

// SessionState is the lifecycle state of a capture session.
type SessionState int

const (
	// SessionIdle means no reader connection exists.
	SessionIdle SessionState = iota
	// SessionConnecting means a connection attempt is in progress.
	SessionConnecting
	// SessionConnected means the reader is connected but not capturing.
	SessionConnected
	// SessionCapturing means inventory is running and reads are aggregated.
	SessionCapturing
	// SessionStopped means inventory ended; the table is retained.
	SessionStopped
	// SessionDisconnected means the reader dropped or was disconnected.
	SessionDisconnected
)

// String returns the display name for a session state.
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "Idle"
	case SessionConnecting:
		return "Connecting"
	case SessionConnected:
		return "Connected"
	case SessionCapturing:
		return "Capturing"
	case SessionStopped:
		return "Stopped"
	case SessionDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// IsConnected reports whether the reader link is up in this state.
func (s SessionState) IsConnected() bool {
	return s == SessionConnected || s == SessionCapturing || s == SessionStopped
}

// CaptureSession describes the current (or last) capture session.
type CaptureSession struct {
	ID          string
	Host        string
	State       SessionState
	StartedAt   time.Time
	StoppedAt   time.Time
	UniqueTags  int
	TotalReads  uint64
	EngineTotal int
}

// Duration returns how long the capture ran, or has been running.
func (c CaptureSession) Duration() time.Duration {
	if c.StartedAt.IsZero() {
		return 0
	}
	if c.StoppedAt.IsZero() {
		return time.Since(c.StartedAt)
	}
	return c.StoppedAt.Sub(c.StartedAt)
}
