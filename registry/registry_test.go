package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiflow/kpiflow/core"
)

type stubAgent struct {
	core.StatusTracker
	id string
}

func (a *stubAgent) ID() string { return a.id }
func (a *stubAgent) Name() string { return "Stub " + a.id }
func (a *stubAgent) Capabilities() []string { return []string{"stub"} }
func (a *stubAgent) Invoke(context.Context, core.Payload) (core.Result, error) {
	return core.Result(`{}`), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(&stubAgent{id: "forecasting"}))

	a, err := r.Get("forecasting")
	require.NoError(t, err)
	assert.Equal(t, "forecasting", a.ID())
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubAgent{id: "forecasting"}))

	err := r.Register(&stubAgent{id: "forecasting"})

	var dup *core.DuplicateAgentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "forecasting", dup.AgentID)
}

func TestRegistry_UnknownLookupFails(t *testing.T) {
	r := New()

	_, err := r.Get("missing")

	var nf *core.AgentNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.AgentID)
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(&stubAgent{id: id}))
	}

	var ids []string
	for _, a := range r.List() {
		ids = append(ids, a.ID())
	}

	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubAgent{id: "forecasting"}))

	infos := r.Snapshot()

	require.Len(t, infos, 1)
	assert.Equal(t, "forecasting", infos[0].ID)
	assert.Equal(t, core.AgentIdle, infos[0].Status)
	assert.Equal(t, []string{"stub"}, infos[0].Capabilities)
}
