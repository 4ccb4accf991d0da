package task

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/registry"
)

type stubAgent struct {
	core.StatusTracker
	id string
}

func (a *stubAgent) ID() string { return a.id }
func (a *stubAgent) Name() string { return a.id }
func (a *stubAgent) Capabilities() []string { return nil }
func (a *stubAgent) Invoke(context.Context, core.Payload) (core.Result, error) {
	return core.Result(`{}`), nil
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(&stubAgent{id: "forecasting"}))
	return NewManager(reg)
}

func TestManager_EnqueueUnknownAgentFails(t *testing.T) {
	m := newManager(t)

	_, err := m.Enqueue("nope", core.Payload(`{}`))

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)

	// No task record was created.
	stats, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, QueueStats{}, stats)
}

func TestManager_LifecycleIsMonotonic(t *testing.T) {
	m := newManager(t)

	id, err := m.Enqueue("forecasting", core.Payload(`{"horizon":3}`))
	require.NoError(t, err)

	status, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskQueued, status, "task must be observable as queued before running")

	claimed, err := m.ClaimNext()
	require.NoError(t, err)
	assert.Equal(t, id, claimed.ID)

	status, _ = m.Status(id)
	assert.Equal(t, core.TaskRunning, status)

	require.NoError(t, m.Complete(id, core.Result(`{"ok":true}`)))

	status, _ = m.Status(id)
	assert.Equal(t, core.TaskCompleted, status)

	// A terminal task never changes status again.
	err = m.Fail(id, errors.New("late failure"))
	require.Error(t, err)
	status, _ = m.Status(id)
	assert.Equal(t, core.TaskCompleted, status)
}

func TestManager_ClaimNextIsFIFO(t *testing.T) {
	m := newManager(t)

	first, err := m.Enqueue("forecasting", core.Payload(`{"n":1}`))
	require.NoError(t, err)
	second, err := m.Enqueue("forecasting", core.Payload(`{"n":2}`))
	require.NoError(t, err)

	claimed, err := m.ClaimNext()
	require.NoError(t, err)
	assert.Equal(t, first, claimed.ID)

	claimed, err = m.ClaimNext()
	require.NoError(t, err)
	assert.Equal(t, second, claimed.ID)

	_, err = m.ClaimNext()
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestManager_ResultNotReady(t *testing.T) {
	m := newManager(t)
	id, err := m.Enqueue("forecasting", core.Payload(`{}`))
	require.NoError(t, err)

	_, err = m.Result(id)

	var nr *core.ResultNotReadyError
	require.ErrorAs(t, err, &nr)
	assert.Equal(t, core.TaskQueued, nr.Status)
}

func TestManager_FailedTaskCarriesMessage(t *testing.T) {
	m := newManager(t)
	id, err := m.Enqueue("forecasting", core.Payload(`{}`))
	require.NoError(t, err)

	_, err = m.ClaimNext()
	require.NoError(t, err)
	require.NoError(t, m.Fail(id, errors.New("series contains NaN values")))

	_, err = m.Result(id)
	var tf *core.TaskFailedError
	require.ErrorAs(t, err, &tf)
	assert.Equal(t, "series contains NaN values", tf.Message)
}

func TestManager_UnknownTaskLookups(t *testing.T) {
	m := newManager(t)

	_, err := m.Status("missing")
	var nf *core.TaskNotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = m.Result("missing")
	assert.ErrorAs(t, err, &nf)
}

func TestManager_WakeSignalledOnEnqueue(t *testing.T) {
	m := newManager(t)

	_, err := m.Enqueue("forecasting", core.Payload(`{}`))
	require.NoError(t, err)

	select {
	case <-m.Wake():
	default:
		t.Fatal("expected a wake signal after enqueue")
	}
}

func TestManager_ConcurrentTerminalTransitions(t *testing.T) {
	m := newManager(t)

	id, err := m.Enqueue("forecasting", core.Payload(`{}`))
	require.NoError(t, err)
	_, err = m.ClaimNext()
	require.NoError(t, err)

	// Race Complete against Fail on the same running task. Exactly one
	// transition may win; the loser must see the terminal-state error.
	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = m.Complete(id, core.Result(`{"ok":true}`))
	}()
	go func() {
		defer wg.Done()
		results[1] = m.Fail(id, errors.New("cancelled"))
	}()
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one terminal transition must win")

	status, err := m.Status(id)
	require.NoError(t, err)
	if results[0] == nil {
		assert.Equal(t, core.TaskCompleted, status)
	} else {
		assert.Equal(t, core.TaskFailed, status)
	}
}

func TestManager_Stats(t *testing.T) {
	m := newManager(t)

	a, _ := m.Enqueue("forecasting", core.Payload(`{}`))
	b, _ := m.Enqueue("forecasting", core.Payload(`{}`))
	_, _ = m.Enqueue("forecasting", core.Payload(`{}`))

	_, err := m.ClaimNext()
	require.NoError(t, err)
	require.NoError(t, m.Complete(a, core.Result(`{}`)))
	_, err = m.ClaimNext()
	require.NoError(t, err)
	require.NoError(t, m.Fail(b, errors.New("boom")))

	stats, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queued: 1, Completed: 1, Failed: 1}, stats)
}
