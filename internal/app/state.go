// Package app holds the in-memory task list, the selection cursor and the UI
// mode, and applies commands to them while keeping the persistent store in
// step.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tally/internal/storage"
)

// ErrEmptyText is returned by ValidateText for drafts that are blank after
// trimming.
var ErrEmptyText = errors.New("task text is empty")

// Store is the persistence the state machine drives.
type Store interface {
	ListAll(ctx context.Context) ([]storage.Task, error)
	Create(ctx context.Context, text string) (storage.Task, error)
	Toggle(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// State mirrors the store's task list plus the selection and mode. It is
// owned by a single goroutine; nothing in it is safe for concurrent use.
type State struct {
	store    Store
	log      zerolog.Logger
	tasks    []storage.Task
	selected int
	mode     Mode
	quitting bool
}

// Load builds the initial state from every task in store.
func Load(ctx context.Context, store Store, log zerolog.Logger) (*State, error) {
	tasks, err := store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return &State{
		store: store,
		log:   log,
		tasks: tasks,
		mode:  Navigation{},
	}, nil
}

func (s *State) Mode() Mode {
	return s.mode
}

// Quitting reports whether a quit command has been applied.
func (s *State) Quitting() bool {
	return s.quitting
}

// Apply runs one command. A returned error is a storage failure the caller
// should surface; the state is left as it was before the command.
func (s *State) Apply(ctx context.Context, cmd Command) error {
	if cmd.Kind == CmdQuit {
		s.quitting = true
		return nil
	}
	switch mode := s.mode.(type) {
	case Inserting:
		return s.applyInserting(ctx, mode, cmd)
	default:
		return s.applyNavigation(ctx, cmd)
	}
}

func (s *State) applyNavigation(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CmdMoveDown:
		s.selected = clampCursor(s.selected+1, len(s.tasks))
	case CmdMoveUp:
		s.selected = clampCursor(s.selected-1, len(s.tasks))
	case CmdJumpFirst:
		s.selected = 0
	case CmdJumpLast:
		s.selected = clampCursor(len(s.tasks)-1, len(s.tasks))
	case CmdToggleSelected:
		return s.toggleSelected(ctx)
	case CmdDeleteSelected:
		return s.deleteSelected(ctx)
	case CmdEnterInsert:
		s.mode = Inserting{}
	}
	return nil
}

func (s *State) applyInserting(ctx context.Context, mode Inserting, cmd Command) error {
	switch cmd.Kind {
	case CmdInsertChar:
		s.mode = Inserting{Draft: mode.Draft + cmd.Text}
	case CmdBackspace:
		if mode.Draft == "" {
			return nil
		}
		_, size := utf8.DecodeLastRuneInString(mode.Draft)
		s.mode = Inserting{Draft: mode.Draft[:len(mode.Draft)-size]}
	case CmdConfirm:
		return s.save(ctx, mode.Draft)
	case CmdCancel:
		s.mode = Navigation{}
	}
	return nil
}

func (s *State) save(ctx context.Context, draft string) error {
	text, err := ValidateText(draft)
	if err != nil {
		s.log.Debug().Msg("discarding empty draft")
		s.mode = Navigation{}
		return nil
	}
	task, err := s.store.Create(ctx, text)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.tasks = append(s.tasks, task)
	s.selected = len(s.tasks) - 1
	s.mode = Navigation{}
	return nil
}

func (s *State) toggleSelected(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return nil
	}
	idx := s.selected
	err := s.store.Toggle(ctx, s.tasks[idx].ID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.reconcile(ctx, s.tasks[idx].ID)
	}
	if err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	s.tasks[idx].Completed = !s.tasks[idx].Completed
	return nil
}

func (s *State) deleteSelected(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return nil
	}
	idx := s.selected
	err := s.store.Delete(ctx, s.tasks[idx].ID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.reconcile(ctx, s.tasks[idx].ID)
	}
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.tasks = slices.Delete(s.tasks, idx, idx+1)
	s.selected = clampCursor(idx, len(s.tasks))
	return nil
}

// reconcile replaces the in-memory list with the store's after a command hit
// an id the store no longer has.
func (s *State) reconcile(ctx context.Context, staleID int64) error {
	tasks, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.log.Info().Int64("task_id", staleID).Int("tasks", len(tasks)).Msg("selection was stale, reloaded tasks")
	s.tasks = tasks
	s.selected = clampCursor(s.selected, len(s.tasks))
	return nil
}

// ValidateText trims text and rejects it when nothing is left.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}
	return trimmed, nil
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
