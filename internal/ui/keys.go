package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Play        key.Binding
	Next        key.Binding
	Prev        key.Binding
	Select      key.Binding
	Up          key.Binding
	Down        key.Binding
	Remove      key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	VolUp       key.Binding
	VolDown     key.Binding
	VolUpMore   key.Binding
	VolDownMore key.Binding
	Search      key.Binding
	Open        key.Binding
	Retry       key.Binding
	Save        key.Binding
	Shuffle     key.Binding
	Clear       key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Play: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "play/pause"),
	),
	Next: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next"),
	),
	Prev: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "previous"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "play selected"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Remove: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "remove"),
	),
	SeekBack: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "seek -10s"),
	),
	SeekForward: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "seek +10s"),
	),
	VolUp: key.NewBinding(
		key.WithKeys("="),
		key.WithHelp("=/+", "volume up"),
	),
	VolDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-/_", "volume down"),
	),
	VolUpMore: key.NewBinding(
		key.WithKeys("+"),
	),
	VolDownMore: key.NewBinding(
		key.WithKeys("_"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open URL"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save copy"),
	),
	Shuffle: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "shuffle"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear history"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Next, k.Prev, k.Search, k.Open, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Next, k.Prev, k.Select},
		{k.Up, k.Down, k.Remove, k.Shuffle},
		{k.SeekBack, k.SeekForward, k.VolUp, k.VolDown},
		{k.Search, k.Open, k.Retry, k.Save},
		{k.Clear, k.Help, k.Quit},
	}
}

// resultKeys are active while browsing search results.
type resultKeys struct {
	Add    key.Binding
	AddAll key.Binding
	Back   key.Binding
}

var resultKeyMap = resultKeys{
	Add: key.NewBinding(
		key.WithKeys("enter", "a"),
		key.WithHelp("enter/a", "add"),
	),
	AddAll: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "add all"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc", "back"),
	),
}

func (k resultKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.AddAll, k.Back}
}

func (k resultKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func isForceQuit(msg tea.KeyMsg) bool {
	return msg.String() == "ctrl+c"
}
