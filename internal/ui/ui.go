package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"tally/internal/app"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	inputStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("3")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Model is the Bubble Tea controller: one key event resolves to at most one
// command, which is applied to the state before the next frame is drawn.
type Model struct {
	ctx    context.Context
	state  *app.State
	keys   KeyMap
	help   help.Model
	log    zerolog.Logger
	status string
	width  int
}

func New(ctx context.Context, state *app.State, keys KeyMap, log zerolog.Logger) Model {
	return Model{
		ctx:   ctx,
		state: state,
		keys:  keys,
		help:  help.New(),
		log:   log,
	}
}

// Run drives the program until a quit command is applied.
func Run(ctx context.Context, state *app.State, keys KeyMap, log zerolog.Logger) error {
	program := tea.NewProgram(New(ctx, state, keys, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, ok := m.keys.Resolve(msg, m.state.Mode())
	if !ok {
		return m, nil
	}
	if err := m.state.Apply(m.ctx, cmd); err != nil {
		m.log.Error().Err(err).Str("command", cmd.Kind.String()).Msg("command failed")
		m.status = fmt.Sprintf("error: %v", err)
		return m, nil
	}
	m.status = ""
	if m.state.Quitting() {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	snap := m.state.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Task Manager"))
	b.WriteString("\n\n")

	if len(snap.Tasks) == 0 {
		b.WriteString("No tasks yet. Press 'a' to add one.")
		b.WriteString("\n")
	} else {
		b.WriteString(renderTaskList(snap))
	}

	b.WriteString("\n")
	if snap.Inserting() {
		b.WriteString(m.renderInput(snap.Draft))
		b.WriteString("\n")
		b.WriteString(m.help.View(insertHelp{m.keys}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func renderTaskList(snap app.Snapshot) string {
	var b strings.Builder
	for i, t := range snap.Tasks {
		cursor := "  "
		if i == snap.Selected && !snap.Inserting() {
			cursor = cursorStyle.Render("▶ ")
		}

		checkbox := "[ ]"
		style := pendingStyle
		if t.Completed {
			checkbox = "[x]"
			style = doneStyle
		}

		b.WriteString(cursor)
		b.WriteString(style.Render(fmt.Sprintf("%s %s", checkbox, t.Text)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderInput(draft string) string {
	style := inputStyle
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(fmt.Sprintf("New task: %s▏", draft))
}
