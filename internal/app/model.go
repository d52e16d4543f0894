// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rfid-console/internal/models"
	"github.com/j-veylop/rfid-console/internal/services"
	"github.com/j-veylop/rfid-console/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabInventory is the ID for the live tag table.
	TabInventory TabID = iota
	// TabTrend is the ID for the capture trend charts.
	TabTrend
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabInventory:
		return "Inventory"
	case TabTrend:
		return "Trend"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1       key.Binding
	Tab2       key.Binding
	Tab3       key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	Capture    key.Binding
	Trigger    key.Binding
	Help       key.Binding
	Quit       key.Binding
	Escape     key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setReaderKeys(km)
	km = setActionKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "inventory"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "trend"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info"))
	k.NextTab = key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab"))
	return k
}

func setReaderKeys(k KeyMap) KeyMap {
	k.Connect = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect"))
	k.Disconnect = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect"))
	k.Capture = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/stop capture"))
	k.Trigger = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "hold/release trigger"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.Connect, k.Disconnect, k.Capture, k.Trigger},
		{k.Help, k.Quit},
	}
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	// Shared state
	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   viewStyles

	// UI components
	spinner spinner.Model

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabInventory,
		tabNames:  []string{"Inventory", "Trend", "Info"},
		tabs:      make([]Tab, 3), // set by SetTabs
		state:     NewState(),
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    newStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		m.state.SetLoadingNotification("Loading...")
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadSnapshotCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, tea.KeyMsg, spinner.TickMsg:
		if cmd := m.handleTeaMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleTeaMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	}
	return nil
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		cmds = append(cmds, m.handleTick()...)
	case SnapshotLoadedMsg:
		m.handleSnapshot(msg)
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEventMsg(msg)...)
	case CommandResultMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("%s failed: %v", msg.Action, msg.Error)))
		}
	case TriggerToggledMsg:
		cmds = append(cmds, m.handleTriggerToggled(msg))
	case AddNotificationMsg:
		cmds = append(cmds, m.handleAddNotification(msg)...)
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleSpinnerTick(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

func (m *Model) handleTick() []tea.Cmd {
	m.state.ClearExpiredNotifications()
	cmds := []tea.Cmd{defaultTickCmd()}
	if m.services != nil {
		cmds = append(cmds, loadSnapshotCmd(m.services))
	}
	return cmds
}

func (m *Model) handleSnapshot(msg SnapshotLoadedMsg) {
	m.state.ClearLoadingNotification()
	m.state.SetScenario(msg.Scenario)
	m.state.SetMetrics(msg.Metrics)
	m.state.SetLabels(msg.Labels)

	// A snapshot read before a transition must not undo the transition.
	if cur := m.state.GetSession(); cur.State == msg.Session.State {
		m.state.SetSession(msg.Session)
	}
}

func (m *Model) handleServiceEventMsg(msg ServiceEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.eventChannel != nil {
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	}
	return cmds
}

func (m *Model) handleTriggerToggled(msg TriggerToggledMsg) tea.Cmd {
	if msg.Error != nil {
		return notifyErrorCmd(fmt.Sprintf("Trigger failed: %v", msg.Error))
	}
	m.state.SetTriggerHeld(msg.Held)
	if msg.Held {
		return notifyInfoCmd("Trigger held")
	}
	return notifyInfoCmd("Trigger released")
}

func (m *Model) handleAddNotification(msg AddNotificationMsg) []tea.Cmd {
	var cmds []tea.Cmd
	id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
	if msg.Duration > 0 {
		cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) switchTab(id TabID) {
	m.activeTab = id
	m.updateTabSizes()
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	for i, binding := range []key.Binding{m.keymap.Tab1, m.keymap.Tab2, m.keymap.Tab3} {
		if key.Matches(msg, binding) {
			m.switchTab(TabID(i))
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false
		return nil

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		}
		return nil

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		}
		return nil

	case key.Matches(msg, m.keymap.Connect):
		return m.commands.Connect()

	case key.Matches(msg, m.keymap.Disconnect):
		return m.commands.Disconnect()

	case key.Matches(msg, m.keymap.Capture):
		return m.commands.ToggleCapture()

	case key.Matches(msg, m.keymap.Trigger):
		return m.commands.ToggleTrigger()
	}

	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.StatusEvent:
		m.state.SetStatus(e.Text)

	case services.TagsRefreshedEvent:
		m.state.SetEntries(e.Entries, e.Total)
		return tagsUpdated(len(e.Entries), e.Total)

	case services.ClearedEvent:
		m.state.ClearTags()
		return tagsUpdated(0, 0)

	case services.TotalCountEvent:
		m.state.SetEngineTotal(e.Total)

	case services.SessionChangedEvent:
		return m.handleSessionChanged(e.Session)

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func (m *Model) handleSessionChanged(next models.CaptureSession) tea.Cmd {
	prev := m.state.GetSession()
	m.state.SetSession(next)

	cmds := []tea.Cmd{func() tea.Msg { return SessionUpdatedMsg{Session: next} }}

	switch {
	case prev.State == models.SessionCapturing && next.State == models.SessionStopped:
		cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Capture complete: %d unique tags", next.UniqueTags)))
	case prev.State.IsConnected() && next.State == models.SessionDisconnected:
		cmds = append(cmds, notifyWarningCmd("Reader disconnected"))
	case next.State == models.SessionConnected && prev.State == models.SessionConnecting:
		cmds = append(cmds, notifySuccessCmd("Connected to "+next.Host))
	}

	return tea.Batch(cmds...)
}

func tagsUpdated(unique int, total uint64) tea.Cmd {
	return func() tea.Msg {
		return TagsUpdatedMsg{Unique: unique, Total: total}
	}
}
