// Package tui is the interactive cluster browser.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/elonfeng/clusterboard/internal/render"
	"github.com/elonfeng/clusterboard/pkg/rank"
)

// Pane is what the lower half of the screen shows.
type Pane int

const (
	PaneNone Pane = iota
	PaneDetail
	PaneAggregate
)

// Model implements tea.Model.
type Model struct {
	board      *rank.Board
	highlights []rank.Highlight
	view       rank.View
	rows       []rank.Row
	showHidden bool

	cursor   int
	pane     Pane
	selected rank.ClusterDetail
	status   string

	help          help.Model
	width, height int
	quitting      bool
}

// New creates a browser over b. The highlight set is computed once; it
// does not follow the sort order.
func New(b *rank.Board, mode rank.SortMode, top rank.TopOptions, showHidden bool) (Model, error) {
	view, err := b.Order(mode)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		board:      b,
		highlights: b.Highlights(top),
		view:       view,
		showHidden: showHidden,
		help:       help.New(),
	}
	m.refreshRows()
	return m, nil
}

// Run starts the browser and blocks until it exits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.Escape):
			m.pane = PaneNone
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Top):
			m.cursor = 0
		case key.Matches(msg, keys.Bottom):
			m.cursor = max(len(m.rows)-1, 0)
		case key.Matches(msg, keys.Enter):
			m.selectCurrent()
		case key.Matches(msg, keys.Aggregate):
			if m.pane == PaneAggregate {
				m.pane = PaneNone
			} else {
				m.pane = PaneAggregate
			}
		case key.Matches(msg, keys.ToggleHidden):
			m.showHidden = !m.showHidden
			m.refreshRows()
		default:
			for _, sc := range sortControls {
				if key.Matches(msg, *sc.binding) {
					m.applyControl(sc.control)
					break
				}
			}
		}
	}
	return m, nil
}

// applyControl reorders the list for the control that was triggered,
// keeping the cursor on the same cluster when it is still listed.
func (m *Model) applyControl(controlID string) {
	view, err := m.board.OrderByControl(controlID)
	if err != nil {
		m.status = err.Error()
		return
	}
	current, hadCurrent := m.currentID()
	m.view = view
	m.status = ""
	m.refreshRows()

	m.cursor = 0
	if hadCurrent {
		for i, r := range m.rows {
			if r.ID == current {
				m.cursor = i
				break
			}
		}
	}
}

func (m *Model) selectCurrent() {
	id, ok := m.currentID()
	if !ok {
		return
	}
	d, err := m.board.SelectCluster(id)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.selected = d
	m.pane = PaneDetail
}

func (m *Model) refreshRows() {
	var rows []rank.Row
	for _, r := range m.view.Rows() {
		if r.Visible || m.showHidden {
			rows = append(rows, r)
		}
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) currentID() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return 0, false
	}
	return m.rows[m.cursor].ID, true
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(render.Highlights(m.highlights))
	b.WriteString(render.Notice(m.board.Warning()))
	b.WriteString("\n")

	b.WriteString(render.Header.Render("Clusters (sorted by " + string(m.view.Mode) + ")"))
	b.WriteString("\n")
	for i, r := range m.rows {
		line := render.Row(r)
		if i == m.cursor {
			line = render.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	switch m.pane {
	case PaneDetail:
		b.WriteString("\n")
		b.WriteString(render.Detail(m.selected))
	case PaneAggregate:
		b.WriteString("\n")
		b.WriteString(render.Aggregate(m.board.Aggregate().AggregatePoints, m.board.AggregateDetail()))
		b.WriteString(render.Method(m.board.Method()))
	}

	if m.status != "" {
		b.WriteString(render.ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// Cursor returns the current cursor position.
func (m Model) Cursor() int { return m.cursor }

// Mode returns the active sort mode.
func (m Model) Mode() rank.SortMode { return m.view.Mode }

// RowIDs returns the ids of the listed rows in order.
func (m Model) RowIDs() []int {
	ids := make([]int, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r.ID
	}
	return ids
}

// Pane returns the open pane.
func (m Model) Pane() Pane { return m.pane }

// Selected returns the last selected cluster.
func (m Model) Selected() rank.ClusterDetail { return m.selected }
