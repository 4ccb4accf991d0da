package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiflow/kpiflow/cache"
	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/registry"
	"github.com/kpiflow/kpiflow/task"
)

// stubAgent records invocations and replies with a configurable function.
type stubAgent struct {
	core.StatusTracker
	id     string
	invoke func(ctx context.Context, payload core.Payload) (core.Result, error)

	mu    sync.Mutex
	calls []string
}

func (s *stubAgent) ID() string { return s.id }
func (s *stubAgent) Name() string { return "stub " + s.id }
func (s *stubAgent) Capabilities() []string { return []string{"stub"} }

func (s *stubAgent) Invoke(ctx context.Context, payload core.Payload) (core.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, string(payload))
	s.mu.Unlock()
	return s.invoke(ctx, payload)
}

func (s *stubAgent) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func echoAgent(id string) *stubAgent {
	return &stubAgent{id: id, invoke: func(_ context.Context, p core.Payload) (core.Result, error) {
		return core.Result(p), nil
	}}
}

func newFixture(t *testing.T, agents ...core.Agent) (*task.Manager, *Orchestrator, *cache.Memory) {
	t.Helper()
	reg := registry.New()
	for _, a := range agents {
		require.NoError(t, reg.Register(a))
	}
	mgr := task.NewManager(reg, func(o *task.Options) {
		o.DefaultTimeout = 2 * time.Second
	})
	c := cache.NewMemory()
	orc := New(mgr, reg, func(o *Options) {
		o.Cache = c
		o.PollInterval = 10 * time.Millisecond
	})
	return mgr, orc, c
}

func runLoop(t *testing.T, orc *Orchestrator) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitTerminal(t *testing.T, mgr *task.Manager, id string) core.TaskStatus {
	t.Helper()
	var status core.TaskStatus
	require.Eventually(t, func() bool {
		s, err := mgr.Status(id)
		if err != nil {
			return false
		}
		status = s
		return s.Terminal()
	}, 3*time.Second, 5*time.Millisecond)
	return status
}

func TestOrchestratorCompletesTask(t *testing.T) {
	agent := echoAgent("echo")
	mgr, orc, c := newFixture(t, agent)
	runLoop(t, orc)

	id, err := mgr.Enqueue("echo", core.Payload(`{"ping":true}`))
	require.NoError(t, err)

	status := waitTerminal(t, mgr, id)
	assert.Equal(t, core.TaskCompleted, status)

	result, err := mgr.Result(id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":true}`, string(result))

	cached, ok := c.Get("result:" + id)
	require.True(t, ok)
	assert.JSONEq(t, `{"ping":true}`, string(cached.(core.Result)))
}

func TestOrchestratorFIFOOrder(t *testing.T) {
	agent := echoAgent("echo")
	mgr, orc, _ := newFixture(t, agent)

	var ids []string
	for _, p := range []string{`"first"`, `"second"`, `"third"`} {
		id, err := mgr.Enqueue("echo", core.Payload(p))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runLoop(t, orc)
	for _, id := range ids {
		assert.Equal(t, core.TaskCompleted, waitTerminal(t, mgr, id))
	}

	assert.Equal(t, []string{`"first"`, `"second"`, `"third"`}, agent.callLog())
}

func TestOrchestratorFailedAgent(t *testing.T) {
	boom := &stubAgent{id: "boom", invoke: func(context.Context, core.Payload) (core.Result, error) {
		return nil, errors.New("model exploded")
	}}
	mgr, orc, _ := newFixture(t, boom)
	runLoop(t, orc)

	id, err := mgr.Enqueue("boom", core.Payload(`{}`))
	require.NoError(t, err)

	assert.Equal(t, core.TaskFailed, waitTerminal(t, mgr, id))

	_, err = mgr.Result(id)
	var fErr *core.TaskFailedError
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "model exploded")
}

func TestOrchestratorTaskTimeout(t *testing.T) {
	slow := &stubAgent{id: "slow", invoke: func(ctx context.Context, _ core.Payload) (core.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	reg := registry.New()
	require.NoError(t, reg.Register(slow))
	mgr := task.NewManager(reg, func(o *task.Options) {
		o.DefaultTimeout = 30 * time.Millisecond
	})
	orc := New(mgr, reg, func(o *Options) {
		o.PollInterval = 10 * time.Millisecond
	})
	runLoop(t, orc)

	id, err := mgr.Enqueue("slow", core.Payload(`{}`))
	require.NoError(t, err)

	assert.Equal(t, core.TaskFailed, waitTerminal(t, mgr, id))

	_, err = mgr.Result(id)
	var fErr *core.TaskFailedError
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "timeout")
}

func TestOrchestratorTimeoutOverridesLateSuccess(t *testing.T) {
	// Ignores its context entirely: overruns the deadline and still
	// returns a result.
	stubborn := &stubAgent{id: "stubborn", invoke: func(context.Context, core.Payload) (core.Result, error) {
		time.Sleep(150 * time.Millisecond)
		return core.Result(`{"late":true}`), nil
	}}
	reg := registry.New()
	require.NoError(t, reg.Register(stubborn))
	mgr := task.NewManager(reg, func(o *task.Options) {
		o.DefaultTimeout = 30 * time.Millisecond
	})
	c := cache.NewMemory()
	orc := New(mgr, reg, func(o *Options) {
		o.Cache = c
		o.PollInterval = 10 * time.Millisecond
	})
	runLoop(t, orc)

	id, err := mgr.Enqueue("stubborn", core.Payload(`{}`))
	require.NoError(t, err)

	assert.Equal(t, core.TaskFailed, waitTerminal(t, mgr, id))

	_, err = mgr.Result(id)
	var fErr *core.TaskFailedError
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "timeout")

	// The late result must not leak into the cache either.
	_, ok := c.Get("result:" + id)
	assert.False(t, ok)
}

func TestOrchestratorCancelQueuedTask(t *testing.T) {
	agent := echoAgent("echo")
	mgr, orc, _ := newFixture(t, agent)

	// Loop not running yet, so the task stays queued.
	id, err := mgr.Enqueue("echo", core.Payload(`{}`))
	require.NoError(t, err)

	require.NoError(t, orc.Cancel(id))

	status, err := mgr.Status(id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskFailed, status)

	_, err = mgr.Result(id)
	var fErr *core.TaskFailedError
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "cancelled")
}

func TestOrchestratorCancelRunningTask(t *testing.T) {
	started := make(chan struct{})
	slow := &stubAgent{id: "slow", invoke: func(ctx context.Context, _ core.Payload) (core.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	mgr, orc, _ := newFixture(t, slow)
	runLoop(t, orc)

	id, err := mgr.Enqueue("slow", core.Payload(`{}`))
	require.NoError(t, err)

	<-started
	require.NoError(t, orc.Cancel(id))

	assert.Equal(t, core.TaskFailed, waitTerminal(t, mgr, id))
}

func TestOrchestratorCancelTerminalTask(t *testing.T) {
	agent := echoAgent("echo")
	mgr, orc, _ := newFixture(t, agent)
	runLoop(t, orc)

	id, err := mgr.Enqueue("echo", core.Payload(`{}`))
	require.NoError(t, err)
	require.Equal(t, core.TaskCompleted, waitTerminal(t, mgr, id))

	assert.Error(t, orc.Cancel(id))
}
