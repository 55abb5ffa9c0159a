package ui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"tally/internal/app"
	"tally/internal/config"
)

// KeyMap turns raw key events into commands for the current mode.
type KeyMap struct {
	Down   key.Binding
	Up     key.Binding
	First  key.Binding
	Last   key.Binding
	Toggle key.Binding
	Delete key.Binding
	Add    key.Binding
	Quit   key.Binding

	Save      key.Binding
	Cancel    key.Binding
	Backspace key.Binding
	Interrupt key.Binding
}

func NewKeyMap(k config.Keymap) KeyMap {
	return KeyMap{
		Down:   binding(k.Down, "down"),
		Up:     binding(k.Up, "up"),
		First:  binding(k.First, "first"),
		Last:   binding(k.Last, "last"),
		Toggle: binding(k.Toggle, "toggle"),
		Delete: binding(k.Delete, "delete"),
		Add:    binding(k.Add, "add"),
		Quit:   binding(k.Quit, "quit"),

		Save:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Backspace: key.NewBinding(key.WithKeys("backspace")),
		Interrupt: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func binding(keys []string, desc string) key.Binding {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = keyLabel(k)
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(labels, "/"), desc))
}

func keyLabel(k string) string {
	switch k {
	case " ":
		return "space"
	case "down":
		return "↓"
	case "up":
		return "↑"
	default:
		return k
	}
}

// Resolve maps msg to a command. The second result is false when the key
// means nothing in mode.
func (k KeyMap) Resolve(msg tea.KeyMsg, mode app.Mode) (app.Command, bool) {
	if key.Matches(msg, k.Interrupt) {
		return app.Cmd(app.CmdQuit), true
	}
	if _, ok := mode.(app.Inserting); ok {
		return k.resolveInserting(msg)
	}
	return k.resolveNavigation(msg)
}

func (k KeyMap) resolveNavigation(msg tea.KeyMsg) (app.Command, bool) {
	switch {
	case key.Matches(msg, k.Quit):
		return app.Cmd(app.CmdQuit), true
	case key.Matches(msg, k.Down):
		return app.Cmd(app.CmdMoveDown), true
	case key.Matches(msg, k.Up):
		return app.Cmd(app.CmdMoveUp), true
	case key.Matches(msg, k.First):
		return app.Cmd(app.CmdJumpFirst), true
	case key.Matches(msg, k.Last):
		return app.Cmd(app.CmdJumpLast), true
	case key.Matches(msg, k.Toggle):
		return app.Cmd(app.CmdToggleSelected), true
	case key.Matches(msg, k.Delete):
		return app.Cmd(app.CmdDeleteSelected), true
	case key.Matches(msg, k.Add):
		return app.Cmd(app.CmdEnterInsert), true
	}
	return app.Command{}, false
}

func (k KeyMap) resolveInserting(msg tea.KeyMsg) (app.Command, bool) {
	switch {
	case key.Matches(msg, k.Save):
		return app.Cmd(app.CmdConfirm), true
	case key.Matches(msg, k.Cancel):
		return app.Cmd(app.CmdCancel), true
	case key.Matches(msg, k.Backspace):
		return app.Cmd(app.CmdBackspace), true
	}
	switch msg.Type {
	case tea.KeySpace:
		return app.InsertChar(' '), true
	case tea.KeyRunes:
		if msg.Alt {
			return app.Command{}, false
		}
		text := sanitizeRunes(msg.Runes)
		if text == "" {
			return app.Command{}, false
		}
		return app.InsertText(text), true
	}
	return app.Command{}, false
}

// sanitizeRunes keeps pasted text on one line: line breaks and tabs become
// spaces and other control characters are dropped.
func sanitizeRunes(rs []rune) string {
	var b strings.Builder
	for _, r := range rs {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ShortHelp implements help.KeyMap for Navigation mode.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.First, k.Last, k.Toggle, k.Delete, k.Add, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// insertHelp is the help.KeyMap shown while composing a task.
type insertHelp struct {
	KeyMap
}

func (k insertHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Cancel}
}

func (k insertHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
