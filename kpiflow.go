// Package kpiflow provides a high-level façade over the agent registry, task
// manager, result cache and orchestrator that make up the KPI telemetry core.
// Most applications interact with this package by:
//  1. Creating an App via New() (optionally overriding the default in-memory
//     store and cache)
//  2. Registering one or more agents (forecasting, insight, custom)
//  3. Starting the orchestrator loop with Run and submitting tasks
//
// The façade delegates execution to orchestrator.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; durable deployments supply the SQLite task store and a structured
// logger.
package kpiflow

import (
	"context"
	"time"

	"github.com/kpiflow/kpiflow/cache"
	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/logging"
	"github.com/kpiflow/kpiflow/orchestrator"
	"github.com/kpiflow/kpiflow/registry"
	"github.com/kpiflow/kpiflow/task"
)

// Options configures the App instance.
type Options struct {
	// TaskStore persists task records. Defaults to the in-memory store;
	// supply tasksqlite.New for durability across restarts.
	TaskStore core.TaskStore

	// Cache holds completed task results. Defaults to an in-memory LRU.
	Cache core.ResultCache

	// TaskTimeout is the wall-clock limit applied to each task.
	TaskTimeout time.Duration

	// ResultTTL is how long completed results stay in the cache.
	ResultTTL time.Duration

	// Logger defaults to a structured logger at info level.
	Logger *logging.PipelineLogger
}

// App is the high-level façade aggregating registry, queue and orchestrator.
type App struct {
	registry     *registry.Registry
	manager      *task.Manager
	cache        core.ResultCache
	orchestrator *orchestrator.Orchestrator
}

// New creates an App with optional overrides. Any unset component is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *App {
	opts := Options{
		TaskStore:   task.NewInMemoryStore(),
		Cache:       cache.NewMemory(),
		TaskTimeout: task.DefaultTimeout,
		ResultTTL:   orchestrator.DefaultResultTTL,
		Logger:      logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New()
	mgr := task.NewManager(reg, func(o *task.Options) {
		o.Store = opts.TaskStore
		o.DefaultTimeout = opts.TaskTimeout
		o.Logger = opts.Logger
	})
	orc := orchestrator.New(mgr, reg, func(o *orchestrator.Options) {
		o.Cache = opts.Cache
		o.ResultTTL = opts.ResultTTL
		o.Logger = opts.Logger
	})

	return &App{
		registry:     reg,
		manager:      mgr,
		cache:        opts.Cache,
		orchestrator: orc,
	}
}

// RegisterAgent adds an agent to the registry. Registering a second agent
// under an existing id fails with a DuplicateAgentError.
func (a *App) RegisterAgent(agent core.Agent) error {
	return a.registry.Register(agent)
}

// Agents lists the registered agents in registration order.
func (a *App) Agents() []core.AgentInfo {
	return a.registry.Snapshot()
}

// Run starts the orchestrator loop and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.orchestrator.Run(ctx)
}

// Submit enqueues a task for the named agent and returns its id immediately.
func (a *App) Submit(agentID string, payload core.Payload) (string, error) {
	return a.manager.Enqueue(agentID, payload)
}

// Status returns the task's current lifecycle state.
func (a *App) Status(taskID string) (core.TaskStatus, error) {
	return a.manager.Status(taskID)
}

// Result returns the outcome of a terminal task. Queued and running tasks
// fail with a ResultNotReadyError; failed tasks yield a TaskFailedError.
func (a *App) Result(taskID string) (core.Result, error) {
	return a.manager.Result(taskID)
}

// Task returns a copy of the full task record.
func (a *App) Task(taskID string) (*core.Task, error) {
	return a.manager.Get(taskID)
}

// Cancel stops a queued or running task.
func (a *App) Cancel(taskID string) error {
	return a.orchestrator.Cancel(taskID)
}

// Stats summarises the task queue by status.
func (a *App) Stats() (task.QueueStats, error) {
	return a.manager.Stats()
}

// CachedResult looks up a completed task result in the cache without
// touching the task store.
func (a *App) CachedResult(taskID string) (core.Result, bool) {
	v, ok := a.cache.Get("result:" + taskID)
	if !ok {
		return nil, false
	}
	r, ok := v.(core.Result)
	return r, ok
}
