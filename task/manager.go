package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/logging"
)

// DefaultTimeout is the wall-clock limit applied to tasks enqueued without
// an explicit override.
const DefaultTimeout = 120 * time.Second

// Options configures a Manager.
type Options struct {
	// Store holds the task records. Defaults to NewInMemoryStore.
	Store core.TaskStore

	// DefaultTimeout is applied to every enqueued task.
	DefaultTimeout time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// QueueStats is a point-in-time summary of the queue, mirroring what status
// dashboards poll for.
type QueueStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Manager owns task records and enforces their lifecycle. All state changes
// flow through its API: Enqueue creates records in the queued state, and the
// orchestrator advances them via ClaimNext, Complete and Fail. Status and
// Result are safe to call concurrently with the running orchestrator loop.
type Manager struct {
	store    core.TaskStore
	registry core.AgentRegistry
	timeout  time.Duration
	logger   logging.Logger

	// mu serializes lifecycle transitions (ClaimNext, Complete, Fail) so a
	// caller-side Cancel and the orchestrator cannot both pass the terminal
	// check and overwrite each other's write.
	mu sync.Mutex

	// wake is signalled (non-blocking) on every enqueue so the orchestrator
	// can sleep between bursts instead of busy-polling.
	wake chan struct{}
}

// NewManager constructs a Manager bound to the given registry. The registry
// is consulted eagerly at enqueue time: a task addressed to an unknown agent
// is rejected with a ValidationError and never created.
func NewManager(registry core.AgentRegistry, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Store:          NewInMemoryStore(),
		DefaultTimeout: DefaultTimeout,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}

	return &Manager{
		store:    opts.Store,
		registry: registry,
		timeout:  opts.DefaultTimeout,
		logger:   opts.Logger,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue validates the target agent and creates a new task in the queued
// state, returning its identifier. An unknown agent id fails with a
// ValidationError before any record is created.
func (m *Manager) Enqueue(agentID string, payload core.Payload) (string, error) {
	if agentID == "" {
		return "", &core.ValidationError{Field: "agent_id", Message: "must be a non-empty string"}
	}
	if _, err := m.registry.Get(agentID); err != nil {
		return "", &core.ValidationError{Field: "agent_id", Message: fmt.Sprintf("unknown agent %q", agentID)}
	}

	t := &core.Task{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Payload:   payload,
		Status:    core.TaskQueued,
		CreatedAt: time.Now(),
		Timeout:   m.timeout,
	}

	if err := m.store.Insert(t); err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}

	m.logger.Info("task enqueued", "task_id", t.ID, "agent_id", agentID)

	// Non-blocking wake: a pending signal already covers this enqueue.
	select {
	case m.wake <- struct{}{}:
	default:
	}

	return t.ID, nil
}

// Wake returns the channel signalled on enqueue. The orchestrator selects on
// it to drain the queue promptly without busy-polling.
func (m *Manager) Wake() <-chan struct{} {
	return m.wake
}

// ClaimNext dequeues the oldest queued task and transitions it to running.
// It is called exclusively by the orchestrator, the only component allowed
// to move a task out of queued. Returns core.ErrQueueEmpty when nothing is
// waiting.
func (m *Manager) ClaimNext() (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.store.NextQueued()
	if err != nil {
		return nil, err
	}

	t.Status = core.TaskRunning
	t.StartedAt = time.Now()
	if err := m.store.Update(t); err != nil {
		return nil, fmt.Errorf("failed to mark task running: %w", err)
	}

	m.logger.Debug("task claimed", "task_id", t.ID, "agent_id", t.AgentID)
	return t, nil
}

// Complete transitions a running task to completed with its result.
func (m *Manager) Complete(taskID string, result core.Result) error {
	return m.finish(taskID, func(t *core.Task) {
		t.Status = core.TaskCompleted
		t.Result = result
	})
}

// Fail transitions a running or queued task to failed with a human-readable
// cause. Terminal tasks are left untouched: once completed or failed the
// status never changes again.
func (m *Manager) Fail(taskID string, cause error) error {
	return m.finish(taskID, func(t *core.Task) {
		t.Status = core.TaskFailed
		t.Error = cause.Error()
	})
}

// finish applies a terminal transition under the lifecycle lock, so the
// terminal check and the write are one atomic step.
func (m *Manager) finish(taskID string, apply func(t *core.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.store.Get(taskID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %q is already terminal (%s)", taskID, t.Status)
	}

	apply(t)
	t.CompletedAt = time.Now()

	if err := m.store.Update(t); err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}

	m.logger.Info("task finished", "task_id", taskID, "status", string(t.Status))
	return nil
}

// Status returns the task's current lifecycle state.
func (m *Manager) Status(taskID string) (core.TaskStatus, error) {
	t, err := m.store.Get(taskID)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// Result returns the terminal outcome of a task. While the task is still
// queued or running it fails with a ResultNotReadyError; a failed task
// yields its failure payload as a TaskFailedError.
func (m *Manager) Result(taskID string) (core.Result, error) {
	t, err := m.store.Get(taskID)
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case core.TaskCompleted:
		return t.Result, nil
	case core.TaskFailed:
		return nil, &core.TaskFailedError{TaskID: taskID, Message: t.Error}
	default:
		return nil, &core.ResultNotReadyError{TaskID: taskID, Status: t.Status}
	}
}

// Get returns a copy of the full task record.
func (m *Manager) Get(taskID string) (*core.Task, error) {
	return m.store.Get(taskID)
}

// Stats summarises the queue by status.
func (m *Manager) Stats() (QueueStats, error) {
	counts, err := m.store.Counts()
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{
		Queued:    counts[core.TaskQueued],
		Running:   counts[core.TaskRunning],
		Completed: counts[core.TaskCompleted],
		Failed:    counts[core.TaskFailed],
	}, nil
}
