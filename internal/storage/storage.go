package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned by Toggle and Delete when no row has the given id.
	ErrNotFound = errors.New("task not found")
	// ErrIncompatibleSchema is returned by Open when the file holds a tasks
	// table that is missing required columns.
	ErrIncompatibleSchema = errors.New("incompatible tasks schema")
	// ErrNotWritable is returned by Open when the database file or its
	// directory cannot be written.
	ErrNotWritable = errors.New("database is not writable")
)

type Task struct {
	ID        int64
	Text      string
	Completed bool
}

// Store is a durable task table in a single SQLite file. Every mutating call
// has committed by the time it returns.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at dbPath and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := checkWritable(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// checkWritable fails when the file exists but cannot be opened for writing,
// or when the directory cannot hold the rollback journal. SQLite would open
// either case read-only and only fail on the first mutation.
func checkWritable(dbPath string) error {
	if strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	switch {
	case err == nil:
		_ = f.Close()
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".tally-write-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0
);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return s.checkColumns(ctx)
}

// checkColumns verifies a pre-existing tasks table carries the columns this
// package reads and writes.
func (s *Store) checkColumns(ctx context.Context) error {
	required := []string{"id", "text", "completed"}
	existing := map[string]struct{}{}
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(tasks);`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	for _, col := range required {
		if _, ok := existing[col]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrIncompatibleSchema, col)
		}
	}
	return nil
}

// ListAll returns every task ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, completed FROM tasks ORDER BY id ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a pending task. Callers reject blank text before calling.
func (s *Store) Create(ctx context.Context, text string) (Task, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks (text, completed) VALUES (?, 0);`, text)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return Task{ID: id, Text: text}, nil
}

// Toggle flips the completed flag of the task with the given id.
func (s *Store) Toggle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = NOT completed WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("toggle task %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// IsCorruptionError reports whether err means the file is not a usable
// SQLite database.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CORRUPT ||
			code == sqlite3.SQLITE_NOTADB
	}
	errStr := err.Error()
	return strings.Contains(errStr, "database disk image is malformed") ||
		strings.Contains(errStr, "file is not a database")
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Add("_pragma", "busy_timeout(5000)")
	// FULL fsyncs on every commit so a crash after a returned call keeps its effect.
	q.Add("_pragma", "synchronous(FULL)")
	u.RawQuery = q.Encode()
	return u.String()
}
