// Package tasksqlite provides a SQLite-backed core.TaskStore so queued work
// and results survive process restarts. It uses the pure-Go modernc.org
// driver and is a drop-in replacement for the default in-memory store.
package tasksqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kpiflow/kpiflow/core"
)

// Interface compliance (compile-time assertion)
var _ core.TaskStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	agent_id     TEXT NOT NULL,
	payload      BLOB NOT NULL,
	status       TEXT NOT NULL,
	result       BLOB,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	started_at   INTEGER NOT NULL DEFAULT 0,
	completed_at INTEGER NOT NULL DEFAULT 0,
	timeout_ns   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, seq);
`

// Store persists task records in a single SQLite database. The seq column
// records arrival order so NextQueued preserves FIFO semantics across
// restarts. A single mutex serializes writes, which matches the pipeline's
// single-writer concurrency model.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for an ephemeral store in tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tasksqlite: open %q: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("tasksqlite: enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tasksqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a new task record.
func (s *Store) Insert(t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, agent_id, payload, status, result, error, created_at, started_at, completed_at, timeout_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentID, []byte(t.Payload), string(t.Status), resultBytes(t.Result), t.Error,
		t.CreatedAt.UnixNano(), nanos(t.StartedAt), nanos(t.CompletedAt), int64(t.Timeout),
	)
	if err != nil {
		return fmt.Errorf("tasksqlite: insert task %q: %w", t.ID, err)
	}
	return nil
}

// Get returns a copy of the task or a TaskNotFoundError.
func (s *Store) Get(id string) (*core.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, agent_id, payload, status, result, error, created_at, started_at, completed_at, timeout_ns
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row, id)
}

// NextQueued returns a copy of the oldest queued task, or core.ErrQueueEmpty.
func (s *Store) NextQueued() (*core.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, agent_id, payload, status, result, error, created_at, started_at, completed_at, timeout_ns
		 FROM tasks WHERE status = ? ORDER BY seq LIMIT 1`, string(core.TaskQueued))

	t, err := scanTask(row, "")
	if err != nil {
		var nf *core.TaskNotFoundError
		if errors.As(err, &nf) {
			return nil, core.ErrQueueEmpty
		}
		return nil, err
	}
	return t, nil
}

// Update overwrites the stored record for t.ID.
func (s *Store) Update(t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE tasks SET agent_id = ?, payload = ?, status = ?, result = ?, error = ?, started_at = ?, completed_at = ?, timeout_ns = ?
		 WHERE id = ?`,
		t.AgentID, []byte(t.Payload), string(t.Status), resultBytes(t.Result), t.Error,
		nanos(t.StartedAt), nanos(t.CompletedAt), int64(t.Timeout), t.ID,
	)
	if err != nil {
		return fmt.Errorf("tasksqlite: update task %q: %w", t.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tasksqlite: rows affected: %w", err)
	}
	if n == 0 {
		return &core.TaskNotFoundError{TaskID: t.ID}
	}
	return nil
}

// Counts returns the number of tasks per status.
func (s *Store) Counts() (map[core.TaskStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("tasksqlite: count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("tasksqlite: scan count: %w", err)
		}
		counts[core.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanTask(row *sql.Row, id string) (*core.Task, error) {
	var (
		t                               core.Task
		status                          string
		payload, result                 []byte
		created, started, completed, ns int64
	)

	err := row.Scan(&t.ID, &t.AgentID, &payload, &status, &result, &t.Error, &created, &started, &completed, &ns)
	if err == sql.ErrNoRows {
		return nil, &core.TaskNotFoundError{TaskID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("tasksqlite: scan task: %w", err)
	}

	t.Status = core.TaskStatus(status)
	t.Payload = core.Payload(payload)
	if len(result) > 0 {
		t.Result = core.Result(result)
	}
	t.CreatedAt = time.Unix(0, created)
	t.StartedAt = fromNanos(started)
	t.CompletedAt = fromNanos(completed)
	t.Timeout = time.Duration(ns)
	return &t, nil
}

func resultBytes(r core.Result) []byte {
	if r == nil {
		return nil
	}
	return []byte(r)
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
