package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Enter        key.Binding
	Escape       key.Binding
	SortNumber   key.Binding
	SortPoints   key.Binding
	SortNonZero  key.Binding
	ToggleHidden key.Binding
	Aggregate    key.Binding
	Help         key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Top:          key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
	Bottom:       key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
	Enter:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Escape:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	SortNumber:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "by number")),
	SortPoints:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "by points")),
	SortNonZero:  key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "non-zero")),
	ToggleHidden: key.NewBinding(key.WithKeys("."), key.WithHelp(".", "show hidden")),
	Aggregate:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "aggregate")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// sortControls binds each sort key to the id of the control it stands for.
var sortControls = []struct {
	binding *key.Binding
	control string
}{
	{&keys.SortNumber, rank.ControlSortNumber},
	{&keys.SortPoints, rank.ControlSortPoints},
	{&keys.SortNonZero, rank.ControlSortNonZero},
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.SortNumber, k.SortPoints, k.SortNonZero, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Enter, k.Escape, k.Aggregate},
		{k.SortNumber, k.SortPoints, k.SortNonZero, k.ToggleHidden},
		{k.Help, k.Quit},
	}
}
