package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// toastTop is the first screen row used by toasts, below the navbar.
const toastTop = 2

type viewStyles struct {
	tabBar      lipgloss.Style
	activeTab   lipgloss.Style
	inactiveTab lipgloss.Style
	content     lipgloss.Style
	title       lipgloss.Style
	subtle      lipgloss.Style
	section     lipgloss.Style
	toasts      map[NotificationType]lipgloss.Style
}

func newStyles() viewStyles {
	toast := func(c lipgloss.TerminalColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Padding(0, 1)
	}

	return viewStyles{
		tabBar: lipgloss.NewStyle().Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(styles.Subtle),
		activeTab:   lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2),
		inactiveTab: lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 2),
		content:     lipgloss.NewStyle().Padding(1, 2),
		title:       lipgloss.NewStyle().Bold(true).Foreground(styles.Primary),
		subtle:      lipgloss.NewStyle().Foreground(styles.TextMuted),
		section:     lipgloss.NewStyle().Foreground(styles.Secondary),
		toasts: map[NotificationType]lipgloss.Style{
			NotificationSuccess: toast(styles.Success),
			NotificationError:   toast(styles.Error).Bold(true),
			NotificationWarning: toast(styles.Warning),
			NotificationInfo:    toast(styles.Info),
			NotificationLoading: toast(styles.Info),
		},
	}
}

var toastPrefixes = map[NotificationType]string{
	NotificationSuccess: "[OK]",
	NotificationError:   "[ERR]",
	NotificationWarning: "[WARN]",
	NotificationInfo:    "[INFO]",
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.content.Render(m.spinner.View() + " Loading..."))
		return b.String()
	}

	if tab := m.currentTab(); tab != nil {
		b.WriteString(tab.View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	screen := b.String()

	if m.showHelp {
		help := m.renderHelp()
		x := (m.width - lipgloss.Width(help)) / 2
		y := (m.height - lipgloss.Height(help)) / 2
		screen = overlay(screen, help, x, y)
	}

	if toasts := m.renderToasts(); toasts != "" {
		screen = overlay(screen, toasts, m.width-lipgloss.Width(toasts)-2, toastTop)
	}

	return screen
}

func (m *Model) currentTab() Tab {
	if int(m.activeTab) < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return nil
}

// overlay draws top over base with its top-left corner at column x, row y.
// Rows of top that fall below base are dropped.
func overlay(base, top string, x, y int) string {
	x, y = max(x, 0), max(y, 0)
	width := lipgloss.Width(top)
	baseLines := strings.Split(base, "\n")

	for i, line := range strings.Split(top, "\n") {
		row := y + i
		if row >= len(baseLines) {
			break
		}

		under := baseLines[row]
		left := ansi.Truncate(under, x, "")
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ansi.TruncateLeft(under, x+width, "")

		baseLines[row] = left + line + right
	}

	return strings.Join(baseLines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(m.tabNames))
	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.activeTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
			continue
		}
		tabs = append(tabs, m.styles.inactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	session := m.state.GetSession()
	badge := styles.GetSessionStyle(session.State).Render("● " + session.State.String())
	if session.Host != "" {
		badge += m.styles.subtle.Render(" " + session.Host)
	}

	gap := max(m.width-lipgloss.Width(tabBar)-lipgloss.Width(badge)-4, 1)
	return m.styles.tabBar.Width(m.width).Render(tabBar + strings.Repeat(" ", gap) + badge)
}

// renderToasts stacks active notifications right-aligned, newest last.
// It returns "" when there is nothing to show.
func (m *Model) renderToasts() string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return ""
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		prefix, ok := toastPrefixes[n.Type]
		if !ok {
			prefix = m.spinner.View()
		}
		body := m.styles.toasts[n.Type].Render(prefix + " " + n.Message)
		toasts = append(toasts, styles.ToastStyle.Render(body))
	}

	return lipgloss.JoinVertical(lipgloss.Right, toasts...)
}

func (m *Model) renderHelp() string {
	lines := []string{m.styles.title.Render("Keyboard Shortcuts"), ""}

	section := func(title string, bindings []key.Binding) {
		if len(bindings) == 0 {
			return
		}
		lines = append(lines, m.styles.section.Render(title))
		for _, b := range bindings {
			lines = append(lines, fmt.Sprintf("  %-12s %s", b.Help().Key, b.Help().Desc))
		}
		lines = append(lines, "")
	}

	km := m.keymap
	section("Navigation", []key.Binding{km.Tab1, km.Tab2, km.Tab3, km.NextTab, km.PrevTab})
	section("Reader", []key.Binding{km.Connect, km.Disconnect, km.Capture, km.Trigger})
	section("General", []key.Binding{km.Help, km.Quit})
	if tab := m.currentTab(); tab != nil {
		section(m.activeTab.String()+" Tab", tab.ShortHelp())
	}

	lines = append(lines, m.styles.subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	return m.styles.content.Render(fmt.Sprintf("Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.activeTab,
		m.styles.subtle.Render("This tab is not available."),
	))
}
