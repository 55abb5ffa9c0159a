package app

// Mode is the UI mode. It is one of Navigation or Inserting, so a draft only
// exists while inserting.
type Mode interface {
	isMode()
}

// Navigation moves the selection and acts on the selected task.
type Navigation struct{}

// Inserting composes the text of a new task.
type Inserting struct {
	Draft string
}

func (Navigation) isMode() {}
func (Inserting) isMode()  {}

// CommandKind names a normalized user intent.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdMoveDown
	CmdMoveUp
	CmdJumpFirst
	CmdJumpLast
	CmdToggleSelected
	CmdDeleteSelected
	CmdEnterInsert
	CmdQuit
	CmdInsertChar
	CmdBackspace
	CmdConfirm
	CmdCancel
)

var commandNames = map[CommandKind]string{
	CmdNone:           "none",
	CmdMoveDown:       "move-down",
	CmdMoveUp:         "move-up",
	CmdJumpFirst:      "jump-first",
	CmdJumpLast:       "jump-last",
	CmdToggleSelected: "toggle",
	CmdDeleteSelected: "delete",
	CmdEnterInsert:    "enter-insert",
	CmdQuit:           "quit",
	CmdInsertChar:     "insert-char",
	CmdBackspace:      "backspace",
	CmdConfirm:        "save",
	CmdCancel:         "cancel",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is a CommandKind plus the typed text for CmdInsertChar. Text holds
// more than one rune only when a single key event carried several, as with
// a paste.
type Command struct {
	Kind CommandKind
	Text string
}

// Cmd builds a command without a payload.
func Cmd(kind CommandKind) Command {
	return Command{Kind: kind}
}

// InsertChar builds the command that appends r to the draft.
func InsertChar(r rune) Command {
	return InsertText(string(r))
}

func InsertText(text string) Command {
	return Command{Kind: CmdInsertChar, Text: text}
}
