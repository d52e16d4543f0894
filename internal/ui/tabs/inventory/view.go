package inventory

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/ui/components"
	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// View renders the inventory tab.
func (m *Model) View() string {
	// Rows may be stale if the table changed while another tab was active.
	if m.revision != m.state.Revision() {
		m.syncRows()
	}

	sections := []string{
		m.renderStatus(),
		m.renderCounters(),
		m.renderSession(),
		"",
	}

	if m.state.UniqueCount() == 0 {
		sections = append(sections, m.renderEmpty())
	} else {
		sections = append(sections, m.table.View())
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStatus() string {
	session := m.state.GetSession()
	status := styles.SubTitleStyle.Render("Status: ") + styles.ValueStyle.Render(m.state.GetStatus())

	switch session.State {
	case models.SessionConnecting:
		return m.spinner.View(session)
	case models.SessionCapturing:
		return m.spinner.View(session) + "  " + status
	default:
		return status
	}
}

func (m *Model) renderCounters() string {
	engine := "-"
	if n, ok := m.state.EngineTotal(); ok {
		engine = fmt.Sprintf("%d", n)
	}

	trigger := styles.HelpStyle.Render("released")
	if m.state.TriggerHeld() {
		trigger = styles.WarningTextStyle.Render("held")
	}

	sep := styles.HelpStyle.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top,
		counter("Unique Tags", fmt.Sprintf("%d", m.state.UniqueCount())), sep,
		counter("Reads", fmt.Sprintf("%d", m.state.TotalReads())), sep,
		counter("Engine Total", engine), sep,
		counter("Trigger", trigger),
	)
}

func counter(label, value string) string {
	return styles.HelpStyle.Render(" "+label+" ") + styles.CounterStyle.Render(value)
}

func (m *Model) renderSession() string {
	session := m.state.GetSession()

	id := "-"
	if session.ID != "" {
		id = session.ID[:min(8, len(session.ID))]
	}

	line := fmt.Sprintf("Session %s  %s  sort: %s",
		id, session.Duration().Round(time.Second), m.sort)

	spark := components.RenderSparkline(m.state.GetTrend().ReadsPerFlush, 30)
	if spark != "" {
		line += "  reads/refresh " + styles.InfoTextStyle.Render(spark)
	}

	return styles.HelpStyle.Render(line)
}

func (m *Model) renderEmpty() string {
	var hint string
	switch m.state.GetSession().State {
	case models.SessionIdle, models.SessionDisconnected:
		hint = "Press c to connect a reader."
	case models.SessionConnected, models.SessionStopped:
		hint = "Press space or t to start a capture."
	case models.SessionCapturing:
		hint = "Waiting for reads..."
	default:
		hint = ""
	}
	return styles.CardStyle.Width(max(m.width-8, 30)).Render(
		styles.HelpStyle.Render("No tags in the table. " + hint),
	)
}
