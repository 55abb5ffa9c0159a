package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tasks.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = os.Stat(path)
	require.NoError(t, err, "database file should exist")

	tasks, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	junk := strings.Repeat("this is not a sqlite database\n", 64)
	require.NoError(t, os.WriteFile(path, []byte(junk), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, IsCorruptionError(err), "expected corruption error, got %v", err)
}

func TestOpen_IncompatibleSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (id INTEGER PRIMARY KEY, title TEXT NOT NULL);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.ErrorIs(t, err, ErrIncompatibleSchema)
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
}

func TestOpen_ReadOnlyFile(t *testing.T) {
	skipIfRoot(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Create(ctx, "existing")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, os.Chmod(path, 0o444))

	_, err = Open(path)
	require.ErrorIs(t, err, ErrNotWritable)
}

func TestOpen_ReadOnlyDir(t *testing.T) {
	skipIfRoot(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err = Open(path)
	require.ErrorIs(t, err, ErrNotWritable)
}

func TestOpen_LeavesNoWriteCheckFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	matches, err := filepath.Glob(filepath.Join(dir, ".tally-write-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestOpen_ReopenKeepsTasks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := Open(path)
	require.NoError(t, err)
	first, err := s.Create(ctx, "survives restart")
	require.NoError(t, err)
	require.NoError(t, s.Toggle(ctx, first.ID))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, Task{ID: first.ID, Text: "survives restart", Completed: true}, tasks[0])
}

func TestStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)

	a, err := s.Create(ctx, "first")
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, "first", a.Text)
	assert.False(t, a.Completed)

	b, err := s.Create(ctx, "second")
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID, "ids should be monotonic")

	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Task{a, b}, tasks)
}

func TestStore_IDsNotReused(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)

	a, err := s.Create(ctx, "a")
	require.NoError(t, err)
	b, err := s.Create(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, b.ID))

	c, err := s.Create(ctx, "c")
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID)
	assert.Greater(t, c.ID, a.ID)
}

func TestStore_ToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)

	task, err := s.Create(ctx, "flip me")
	require.NoError(t, err)

	require.NoError(t, s.Toggle(ctx, task.ID))
	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)

	require.NoError(t, s.Toggle(ctx, task.ID))
	tasks, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.False(t, tasks[0].Completed)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)

	keep, err := s.Create(ctx, "keep")
	require.NoError(t, err)
	drop, err := s.Create(ctx, "drop")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, drop.ID))

	tasks, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Task{keep}, tasks)
}

func TestStore_MissingIDs(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)

	tests := []struct {
		name string
		fn   func(id int64) error
	}{
		{name: "toggle", fn: func(id int64) error { return s.Toggle(ctx, id) }},
		{name: "delete", fn: func(id int64) error { return s.Delete(ctx, id) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(42)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ClosedIsIOError(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Create(ctx, "late")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestIsCorruptionError(t *testing.T) {
	assert.False(t, IsCorruptionError(nil))
	assert.False(t, IsCorruptionError(ErrNotFound))
	assert.True(t, IsCorruptionError(sqlErr("file is not a database")))
}

type sqlErr string

func (e sqlErr) Error() string { return string(e) }
