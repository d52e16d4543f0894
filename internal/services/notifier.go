package services

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/rfid-console/internal/models"
)

// Notifier delivers desktop notifications.
type Notifier interface {
	Notify(title, body string) error
}

type beeepNotifier struct{}

func (beeepNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) error { return nil }

// sessionNotification decides whether a session transition deserves a
// desktop alert. It returns ok=false when it does not.
func sessionNotification(prev, next models.CaptureSession) (title, body string, ok bool) {
	switch {
	case prev.State == models.SessionCapturing && next.State == models.SessionStopped:
		title = fmt.Sprintf("Capture complete: %s", next.Host)
		body = fmt.Sprintf("%d unique tags, %d reads in %s",
			next.UniqueTags, next.TotalReads, next.Duration().Round(100*time.Millisecond))
		return title, body, true

	case prev.State.IsConnected() && next.State == models.SessionDisconnected:
		title = fmt.Sprintf("Reader disconnected: %s", next.Host)
		body = "The reader connection was lost."
		if prev.State == models.SessionCapturing {
			body = fmt.Sprintf("Capture interrupted after %d unique tags.", next.UniqueTags)
		}
		return title, body, true
	}
	return "", "", false
}
