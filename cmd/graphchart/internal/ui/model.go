// Package ui implements the terminal inspector: a node list over a graph
// file where selecting a node shows the same two-hop highlight the chart
// page would.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/recera/graphchart/pkg/highlight"
	"github.com/recera/graphchart/pkg/render"
)

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Clear  key.Binding
	Filter key.Binding
	Quit   key.Binding
	Help   key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "highlight"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc", "c"),
		key.WithHelp("esc/c", "clear"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// Model represents the inspector state
type Model struct {
	// Window dimensions
	width  int
	height int

	title  string
	labels map[render.NodeID]string
	ids    []render.NodeID

	// Nodes matching the filter, in graph order
	visible []render.NodeID
	cursor  int

	engine *highlight.Engine
	colors map[render.NodeID]string

	filter    textinput.Model
	filtering bool

	keys     KeyMap
	showHelp bool
	quitting bool
}

// NewModel creates an inspector over data
func NewModel(title string, data *render.GraphData) Model {
	if data == nil {
		data = &render.GraphData{}
	}

	labels := make(map[render.NodeID]string, len(data.Nodes))
	for _, n := range data.Nodes {
		labels[n.ID] = n.Label
	}

	filter := textinput.New()
	filter.Placeholder = "node id or label"
	filter.Prompt = "/ "
	filter.CharLimit = 128

	engine := highlight.NewEngine(highlight.NewGraph(data))
	ids := data.NodeIDs()

	return Model{
		width:   80,
		height:  24,
		title:   title,
		labels:  labels,
		ids:     ids,
		visible: ids,
		engine:  engine,
		colors:  engine.Reset(),
		filter:  filter,
		keys:    DefaultKeyMap,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Select):
			if len(m.visible) > 0 {
				m.colors = m.engine.DoubleClick(m.visible[m.cursor])
			}

		case key.Matches(msg, m.keys.Clear):
			m.colors = m.engine.DoubleClick("")

		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, m.filter.Focus()

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		m.visible = m.ids
	} else {
		m.visible = nil
		for _, id := range m.ids {
			if strings.Contains(strings.ToLower(string(id)), q) ||
				strings.Contains(strings.ToLower(m.labels[id]), q) {
				m.visible = append(m.visible, id)
			}
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the highlighted node, if any
func (m Model) Selected() (render.NodeID, bool) {
	return m.engine.Selected()
}

// Colors returns the current color of every node
func (m Model) Colors() map[render.NodeID]string {
	return m.colors
}

// Run starts the inspector
func Run(title string, data *render.GraphData) error {
	_, err := tea.NewProgram(NewModel(title, data), tea.WithAltScreen()).Run()
	return err
}
