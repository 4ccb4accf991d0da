// Package registry implements the process-wide agent registry: a mapping
// from agent identifier to live agent instance plus metadata. Agents are
// registered once at startup and live for the process lifetime.
package registry

import (
	"sync"

	"github.com/kpiflow/kpiflow/core"
)

// Interface compliance (compile-time assertion)
var _ core.AgentRegistry = (*Registry)(nil)

// Registry is a mutex-guarded id→agent map. Enumeration order is the
// registration order, kept in a side slice so listing is deterministic.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	order  []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]core.Agent)}
}

// Register adds an agent under its identifier. Registering an id twice fails
// with a DuplicateAgentError; agents are not hot-swapped mid-task.
func (r *Registry) Register(a core.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.agents[id]; exists {
		return &core.DuplicateAgentError{AgentID: id}
	}

	r.agents[id] = a
	r.order = append(r.order, id)
	return nil
}

// Get resolves an agent by id, failing with an AgentNotFoundError when the
// id is unregistered.
func (r *Registry) Get(id string) (core.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, &core.AgentNotFoundError{AgentID: id}
	}
	return a, nil
}

// List returns all registered agents in registration order.
func (r *Registry) List() []core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Snapshot returns per-agent metadata in registration order, suitable for
// health reporting.
func (r *Registry) Snapshot() []core.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.AgentInfo, 0, len(r.order))
	for _, id := range r.order {
		a := r.agents[id]
		out = append(out, core.AgentInfo{
			ID:           a.ID(),
			Name:         a.Name(),
			Capabilities: a.Capabilities(),
			Status:       a.Status(),
		})
	}
	return out
}
