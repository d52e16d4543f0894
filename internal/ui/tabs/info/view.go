package info

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rfid-console/internal/ui/styles"
	"github.com/j-veylop/rfid-console/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderScenarioCard(),
		m.renderMetricsCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, reader scenario and capture metrics")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderCard(title string, rows ...string) string {
	content := append([]string{styles.CardTitleStyle.Render(title)}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (m *Model) renderConfigCard() string {
	if m.config == nil {
		return m.renderCard("Configuration", styles.HelpStyle.Render("Configuration not loaded"))
	}

	metricsAddr := m.config.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = "disabled"
	}
	selfTest := "off"
	if m.config.SelfTestDuration > 0 {
		selfTest = m.config.SelfTestDuration.String()
	}

	return m.renderCard("Configuration",
		renderRow("Scenario", m.config.ScenarioPath),
		renderRow("Catalog", m.config.CatalogPath),
		renderRow("Log File", m.config.LogFile),
		renderRow("Log Level", m.config.LogLevel),
		renderRow("Refresh Interval", m.config.RefreshInterval.String()),
		renderRow("Connect Timeout", m.config.ConnectTimeout.String()),
		renderRow("Self Test", selfTest),
		renderRow("Metrics Endpoint", metricsAddr),
		renderRow("Notifications", strconv.FormatBool(m.config.Notifications)),
	)
}

func (m *Model) renderScenarioCard() string {
	sc := m.state.GetScenario()
	if sc.Host == "" {
		return m.renderCard("Reader", styles.HelpStyle.Render("Scenario not loaded"))
	}

	connect := "ok"
	if sc.FailConnect {
		connect = styles.ErrorTextStyle.Render("fails")
	}

	return m.renderCard("Reader",
		renderRow("Host", sc.Host),
		renderRow("Connect", fmt.Sprintf("%s after %s", connect, sc.ConnectDelay)),
		renderRow("Producers", strconv.Itoa(sc.Producers)),
		renderRow("Batches", fmt.Sprintf("%d entries every %s", sc.BatchSize, sc.BatchInterval)),
		renderRow("Population", fmt.Sprintf("%d listed, %d generated", len(sc.Tags), sc.RandomTags)),
		renderRow("Malformed Rate", fmt.Sprintf("%.1f%%", sc.MalformedRate*100)),
		renderRow("Catalog Labels", strconv.Itoa(m.state.LabelCount())),
	)
}

func (m *Model) renderMetricsCard() string {
	v := m.state.GetMetrics()

	return m.renderCard("Capture Metrics",
		renderRow("Sessions", strconv.FormatUint(v.Sessions, 10)),
		renderRow("Reads", strconv.FormatUint(v.Reads, 10)),
		renderRow("Batches", fmt.Sprintf("%d (mean %.1f entries)", v.Batches, v.MeanBatch)),
		renderRow("Dropped Entries", strconv.FormatUint(v.Dropped, 10)),
		renderRow("Unique Tags", strconv.Itoa(v.UniqueTags)),
		renderRow("Snapshots", strconv.FormatUint(v.Snapshots, 10)),
		renderRow("Snapshot p50/p99", fmt.Sprintf("%s / %s",
			v.SnapshotP50.Round(time.Microsecond), v.SnapshotP99.Round(time.Microsecond))),
	)
}

func (m *Model) renderAboutCard() string {
	return m.renderCard("About RFID Console",
		renderRow("Version", version.GetVersion()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	)
}

func renderRow(label, value string) string {
	return styles.LabelStyle.Render(label+":") + " " + styles.ValueStyle.Render(value)
}
