// Package inventory provides the live tag table tab.
package inventory

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rfid-console/internal/app"
	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/ui/components"
	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// headerHeight is the number of lines rendered above the table.
const headerHeight = 7

// sortMode selects the table ordering.
type sortMode int

const (
	sortRecent sortMode = iota
	sortCount
)

func (s sortMode) String() string {
	if s == sortCount {
		return "count"
	}
	return "most recent"
}

// keyMap defines the key bindings specific to the inventory tab.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Sort   key.Binding
}

// defaultKeyMap returns the default key bindings for the inventory tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first tag"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last tag"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort by recent/count"),
		),
	}
}

// Model represents the inventory tab state.
type Model struct {
	state    *app.State
	table    table.Model
	spinner  components.ActivitySpinner
	keys     keyMap
	sort     sortMode
	revision uint64
	width    int
	height   int
}

// New creates a new inventory model.
func New(state *app.State) *Model {
	// Space belongs to the capture toggle.
	km := table.DefaultKeyMap()
	km.PageDown.SetKeys("f", "pgdown")

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithKeyMap(km),
	)

	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle.Padding(0, 1)
	s.Selected = styles.TableSelectedStyle
	t.SetStyles(s)

	return &Model{
		state:   state,
		table:   t,
		spinner: components.NewActivitySpinner(),
		keys:    defaultKeyMap(),
	}
}

// columns sizes the table columns for the given width. The label column
// takes whatever the fixed columns leave.
func columns(width int) []table.Column {
	const (
		idxW   = 5
		epcW   = 26
		countW = 9
		seenW  = 7
	)
	// Each cell carries one column of padding on both sides.
	labelW := max(width-idxW-epcW-countW-2*seenW-12-4, 8)

	return []table.Column{
		{Title: "#", Width: idxW},
		{Title: "EPC", Width: epcW},
		{Title: "Label", Width: labelW},
		{Title: "Count", Width: countW},
		{Title: "First", Width: seenW},
		{Title: "Last", Width: seenW},
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.TagsUpdatedMsg:
		m.syncRows()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Sort) {
			m.toggleSort()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) toggleSort() {
	if m.sort == sortRecent {
		m.sort = sortCount
	} else {
		m.sort = sortRecent
	}
	m.syncRows()
}

// syncRows rebuilds the table rows from the shared state.
func (m *Model) syncRows() {
	m.revision = m.state.Revision()
	entries := m.state.GetEntries()

	if m.sort == sortCount {
		slices.SortStableFunc(entries, func(a, b models.TagCount) int {
			return cmp.Compare(b.Count, a.Count)
		})
	}

	rows := make([]table.Row, 0, len(entries))
	for i, e := range entries {
		label := m.state.Label(e.ID)
		if label == "" {
			label = "-"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			e.ID,
			label,
			strconv.FormatUint(e.Count, 10),
			strconv.FormatUint(e.FirstSeen, 10),
			strconv.FormatUint(e.LastSeen, 10),
		})
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width - 4)
	m.table.SetHeight(max(height-headerHeight, 3))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.Bottom, m.keys.Sort}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Up, m.keys.Down},
		{m.keys.Top, m.keys.Bottom},
		{m.keys.Sort},
	}
}
