package core

import (
	"encoding/json"
	"errors"
	"time"
)

// Payload is the opaque structured input handed to an agent. It is carried
// as raw JSON so it round-trips through every store unchanged.
type Payload = json.RawMessage

// Result is the opaque structured output produced by an agent.
type Result = json.RawMessage

// TaskStatus enumerates the task lifecycle states. Transitions are monotonic:
// queued → running → completed|failed. A task never re-enters queued;
// re-submission creates a new task with a new identifier.
type TaskStatus string

const (
	// TaskQueued means the task is waiting in the FIFO queue.
	TaskQueued TaskStatus = "queued"
	// TaskRunning means the orchestrator has dequeued the task and the
	// target agent is executing it.
	TaskRunning TaskStatus = "running"
	// TaskCompleted means the agent returned a result.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed means the agent returned an error, the task timed out, or
	// it was cancelled before completion.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status is one of the two end states.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is one unit of queued work. The task manager owns these records
// exclusively; the orchestrator reads and mutates them only through the
// manager's API.
type Task struct {
	ID      string     `json:"id"`
	AgentID string     `json:"agent_id"`
	Payload Payload    `json:"payload"`
	Status  TaskStatus `json:"status"`
	Result  Result     `json:"result,omitempty"`
	Error   string     `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Timeout is the wall-clock limit applied while the task is running.
	Timeout time.Duration `json:"timeout"`
}

// Clone returns a deep copy so callers can never mutate store-owned state.
func (t *Task) Clone() *Task {
	c := *t
	if t.Payload != nil {
		c.Payload = append(Payload(nil), t.Payload...)
	}
	if t.Result != nil {
		c.Result = append(Result(nil), t.Result...)
	}
	return &c
}

// ErrQueueEmpty is returned by TaskStore.NextQueued when no task is waiting.
var ErrQueueEmpty = errors.New("task queue is empty")

// TaskStore persists task records. Implementations must be safe for
// concurrent reads interleaved with the single writing orchestrator; a
// single mutex around mutating operations is sufficient.
type TaskStore interface {
	// Insert stores a new task record.
	Insert(t *Task) error

	// Get returns a copy of the task or a TaskNotFoundError.
	Get(id string) (*Task, error)

	// NextQueued returns a copy of the oldest queued task, or ErrQueueEmpty.
	NextQueued() (*Task, error)

	// Update overwrites the stored record for t.ID.
	Update(t *Task) error

	// Counts returns the number of tasks per status.
	Counts() (map[TaskStatus]int, error)
}
