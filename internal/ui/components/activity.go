package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// ActivitySpinner animates while the reader is busy and names what it is
// doing. It renders nothing for sessions at rest.
type ActivitySpinner struct {
	spinner spinner.Model
	label   lipgloss.Style
}

// NewActivitySpinner creates an activity spinner.
func NewActivitySpinner() ActivitySpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return ActivitySpinner{
		spinner: s,
		label:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
}

func (a ActivitySpinner) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update advances the animation on its own tick messages.
func (a ActivitySpinner) Update(msg tea.Msg) (ActivitySpinner, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

// ActivityLabel describes the in-flight activity of a session, or "" when
// the session is at rest.
func ActivityLabel(s models.CaptureSession) string {
	switch s.State {
	case models.SessionConnecting:
		if s.Host == "" {
			return "Connecting..."
		}
		return "Connecting to " + s.Host + "..."
	case models.SessionCapturing:
		return "Capturing"
	default:
		return ""
	}
}

// View renders the spinner frame and activity label for s.
func (a ActivitySpinner) View(s models.CaptureSession) string {
	label := ActivityLabel(s)
	if label == "" {
		return ""
	}
	return a.spinner.View() + " " + a.label.Render(label)
}
