package app

// TaskView is the read-only projection of one task.
type TaskView struct {
	ID        int64
	Text      string
	Completed bool
}

// Snapshot is everything a renderer needs to draw the current state.
type Snapshot struct {
	Tasks    []TaskView
	Selected int
	Mode     Mode
	// Draft is the text being composed; empty outside Inserting.
	Draft string
}

func (s Snapshot) Inserting() bool {
	_, ok := s.Mode.(Inserting)
	return ok
}

// Snapshot copies the current state so later mutations do not leak into a
// frame being rendered.
func (s *State) Snapshot() Snapshot {
	views := make([]TaskView, len(s.tasks))
	for i, t := range s.tasks {
		views[i] = TaskView{ID: t.ID, Text: t.Text, Completed: t.Completed}
	}
	snap := Snapshot{
		Tasks:    views,
		Selected: clampCursor(s.selected, len(s.tasks)),
		Mode:     s.mode,
	}
	if ins, ok := s.mode.(Inserting); ok {
		snap.Draft = ins.Draft
	}
	return snap
}
