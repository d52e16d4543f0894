package trend

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/ui/components"
	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// View renders the trend tab.
func (m *Model) View() string {
	trend := m.state.GetTrend()

	var sections []string
	sections = append(sections, m.renderTitle(len(trend.Unique)))

	if len(trend.Unique) == 0 {
		sections = append(sections, styles.CenterHorizontal(
			styles.HelpStyle.Render("No refreshes yet. Start a capture to see the trend."),
			m.chartWidth(),
		))
	} else {
		chartHeight := max((m.height-12)/3, 3)
		sections = append(sections,
			m.renderChart("Unique tags", trend.Unique, chartHeight, components.ChartUniqueColor),
			m.renderChart("Reads per refresh", trend.ReadsPerFlush, chartHeight, components.ChartReadsColor),
			m.renderTopTags(),
		)
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle(points int) string {
	title := styles.TitleStyle.Render("Trend")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("Last %d refreshes of the current capture", points))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) chartWidth() int {
	return max(m.width-16, 20)
}

func (m *Model) renderChart(caption string, data []float64, height int, color asciigraph.AnsiColor) string {
	return components.RenderLineChart(data, m.chartWidth(), height, caption, color) + "\n"
}

func (m *Model) renderTopTags() string {
	entries := m.state.GetEntries()
	slices.SortStableFunc(entries, func(a, b models.TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	entries = entries[:min(len(entries), m.topN)]

	values := make([]float64, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		values[i] = float64(e.Count)
		labels[i] = e.ID
		if label := m.state.Label(e.ID); label != "" {
			labels[i] = label
		}
	}

	header := styles.SubTitleStyle.Render(fmt.Sprintf("Top %d tags by reads", len(entries)))
	return lipgloss.JoinVertical(lipgloss.Left, header, components.RenderBarChart(values, labels, m.chartWidth()))
}
