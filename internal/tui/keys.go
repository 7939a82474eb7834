package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Grab     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Refresh  key.Binding
	Reload   key.Binding
	More     key.Binding
	New      key.Binding
	Delete   key.Binding
	Detail   key.Binding
	FocusBtn key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/l", "board")),
		Right:    key.NewBinding(key.WithKeys("l", "right")),
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "lead")),
		Down:     key.NewBinding(key.WithKeys("j", "down")),
		Grab:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "grab")),
		Drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		Cancel:   key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "cancel")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Reload:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh all")),
		More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new lead")),
		Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Detail:   key.NewBinding(key.WithKeys("i", "tab"), key.WithHelp("i", "details")),
		FocusBtn: key.NewBinding(key.WithKeys("tab", "shift+tab", "left", "right")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// browseHelp and dragHelp implement help.KeyMap for the two board modes.
type browseHelp struct{ k keyMap }

func (h browseHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Left, h.k.Up, h.k.Grab, h.k.New, h.k.Delete, h.k.Detail, h.k.Refresh, h.k.More, h.k.Quit}
}

func (h browseHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type dragHelp struct{ k keyMap }

func (h dragHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Left, h.k.Up, h.k.Drop, h.k.Cancel}
}

func (h dragHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }
