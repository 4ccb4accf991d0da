// Package orchestrator drives task execution. A single worker loop claims
// queued tasks in FIFO order, dispatches each to its registered agent under
// a per-task timeout and records the outcome through the task manager.
// Completed results are additionally published to the result cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/logging"
	"github.com/kpiflow/kpiflow/task"
)

// ErrCancelled is recorded as the failure cause of tasks cancelled before or
// during execution.
var ErrCancelled = errors.New("task cancelled")

// DefaultPollInterval bounds how long the loop sleeps between queue checks
// when no wake signal arrives.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultResultTTL is how long completed task results stay in the cache.
const DefaultResultTTL = 15 * time.Minute

// Orchestrator owns the single worker loop. Tasks run one at a time in
// arrival order; there is no concurrent task execution.
type Orchestrator struct {
	manager  *task.Manager
	registry core.AgentRegistry
	cache    core.ResultCache
	logger   *logging.PipelineLogger

	pollInterval time.Duration
	resultTTL    time.Duration

	mu            sync.Mutex
	currentTask   string
	currentCancel context.CancelFunc
}

// Options configure orchestrator construction.
type Options struct {
	// Cache receives completed task results under "result:<task id>" keys.
	// Nil disables result caching.
	Cache core.ResultCache

	// PollInterval is the fallback queue check period.
	PollInterval time.Duration

	// ResultTTL is the cache lifetime of completed results.
	ResultTTL time.Duration

	Logger *logging.PipelineLogger
}

// New constructs an orchestrator over the given manager and registry.
func New(manager *task.Manager, registry core.AgentRegistry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		PollInterval: DefaultPollInterval,
		ResultTTL:    DefaultResultTTL,
		Logger:       logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}

	return &Orchestrator{
		manager:      manager,
		registry:     registry,
		cache:        opts.Cache,
		logger:       opts.Logger.WithComponent("orchestrator"),
		pollInterval: opts.PollInterval,
		resultTTL:    opts.ResultTTL,
	}
}

// Run blocks processing tasks until ctx is cancelled. It drains the queue
// whenever the manager signals an enqueue and otherwise wakes periodically
// to catch anything missed.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started")
	defer o.logger.Info("orchestrator stopped")

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Drain anything queued before Run was called.
	o.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.manager.Wake():
			o.drain(ctx)
		case <-ticker.C:
			o.drain(ctx)
		}
	}
}

// drain claims and executes queued tasks until the queue is empty or ctx is
// done.
func (o *Orchestrator) drain(ctx context.Context) {
	for ctx.Err() == nil {
		t, err := o.manager.ClaimNext()
		if err != nil {
			if !errors.Is(err, core.ErrQueueEmpty) {
				o.logger.Error("failed to claim task", "error", err)
			}
			return
		}
		o.execute(ctx, t)
	}
}

// execute runs one claimed task to a terminal state.
func (o *Orchestrator) execute(ctx context.Context, t *core.Task) {
	agent, err := o.registry.Get(t.AgentID)
	if err != nil {
		o.fail(t, err)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	o.setCurrent(t.ID, cancel)
	defer func() {
		o.clearCurrent()
		cancel()
	}()

	start := time.Now()
	result, err := agent.Invoke(taskCtx, t.Payload)
	dur := time.Since(start)

	// The deadline check comes before the success check: an agent that
	// ignores its context and returns a result after the wall-clock limit
	// is still a timeout, never a completion.
	switch {
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		timeoutErr := &core.TimeoutError{TaskID: t.ID, Limit: t.Timeout}
		o.fail(t, timeoutErr)
		o.logger.LogTaskExecution(t.ID, t.AgentID, dur, string(core.TaskFailed), timeoutErr)

	case errors.Is(taskCtx.Err(), context.Canceled) && ctx.Err() == nil:
		o.fail(t, ErrCancelled)
		o.logger.LogTaskExecution(t.ID, t.AgentID, dur, string(core.TaskFailed), ErrCancelled)

	case err == nil:
		if cErr := o.manager.Complete(t.ID, result); cErr != nil {
			// Terminal already, e.g. cancelled while running.
			o.logger.Warn("could not complete task", "task_id", t.ID, "error", cErr)
			return
		}
		if o.cache != nil {
			o.cache.Put(resultKey(t.ID), result, o.resultTTL)
		}
		o.logger.LogTaskExecution(t.ID, t.AgentID, dur, string(core.TaskCompleted), nil)

	default:
		o.fail(t, err)
		o.logger.LogTaskExecution(t.ID, t.AgentID, dur, string(core.TaskFailed), err)
	}
}

// Cancel stops a task. A queued task fails immediately without running; the
// currently running task has its context cancelled and fails once the agent
// returns. Terminal tasks cannot be cancelled.
func (o *Orchestrator) Cancel(taskID string) error {
	t, err := o.manager.Get(taskID)
	if err != nil {
		return err
	}

	switch t.Status {
	case core.TaskQueued:
		return o.manager.Fail(taskID, ErrCancelled)
	case core.TaskRunning:
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.currentTask == taskID && o.currentCancel != nil {
			o.currentCancel()
			return nil
		}
		// Running but not held by this orchestrator; mark failed directly.
		return o.manager.Fail(taskID, ErrCancelled)
	default:
		return fmt.Errorf("task %q is already terminal (%s)", taskID, t.Status)
	}
}

func (o *Orchestrator) fail(t *core.Task, cause error) {
	if err := o.manager.Fail(t.ID, cause); err != nil {
		o.logger.Warn("could not fail task", "task_id", t.ID, "error", err)
	}
}

func (o *Orchestrator) setCurrent(taskID string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentTask = taskID
	o.currentCancel = cancel
}

func (o *Orchestrator) clearCurrent() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentTask = ""
	o.currentCancel = nil
}

func resultKey(taskID string) string { return "result:" + taskID }
