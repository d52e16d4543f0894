// Package trend provides the capture trend tab: unique tag growth, reads per
// refresh and the most-read tags.
package trend

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rfid-console/internal/app"
)

// defaultTopN is how many tags the bar chart shows.
const defaultTopN = 8

type keyMap struct {
	MoreTags  key.Binding
	FewerTags key.Binding
	Up        key.Binding
	Down      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		MoreTags: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more top tags"),
		),
		FewerTags: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer top tags"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the trend tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	viewport viewport.Model
	topN     int
	width    int
	height   int
}

// New creates a new trend model.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		topN:     defaultTopN,
	}
}

// Init initializes the trend tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the trend tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.MoreTags):
		m.topN = min(m.topN+2, 30)
	case key.Matches(keyMsg, m.keys.FewerTags):
		m.topN = max(m.topN-2, 2)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

// SetSize sets the available size for the trend tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.MoreTags, m.keys.FewerTags, m.keys.Up, m.keys.Down}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.MoreTags, m.keys.FewerTags},
		{m.keys.Up, m.keys.Down},
	}
}
