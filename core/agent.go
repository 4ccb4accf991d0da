package core

import (
	"context"
	"sync"
)

// AgentStatus describes the current activity state of an agent.
type AgentStatus string

const (
	// AgentIdle means the agent is registered and ready to accept work.
	AgentIdle AgentStatus = "idle"
	// AgentBusy means the agent is currently executing a task.
	AgentBusy AgentStatus = "busy"
	// AgentError means the agent's last invocation failed. The state is
	// informational; the next invocation clears it.
	AgentError AgentStatus = "error"
)

// Agent is the contract every analysis unit in the pipeline implements.
//
// Agents are registered once at process startup and live for the process
// lifetime. Invoke is the single entry point: it receives an opaque task
// payload and returns a structured result or a typed failure. Implementations
// must respect context cancellation at coarse checkpoints; the orchestrator
// runs each invocation under a per-task deadline and cannot preempt a
// non-cooperative agent.
type Agent interface {
	// ID returns the stable identifier tasks are addressed to.
	ID() string

	// Name returns the human-readable agent name.
	Name() string

	// Capabilities returns the capability tags used for introspection.
	Capabilities() []string

	// Status reports the agent's current activity state.
	Status() AgentStatus

	// Invoke executes one task payload and returns the result. Errors are
	// surfaced as the task's failure payload, never as a crash of the
	// orchestration loop.
	Invoke(ctx context.Context, payload Payload) (Result, error)
}

// AgentInfo is a point-in-time snapshot of a registered agent, used by
// registry enumeration and health reporting.
type AgentInfo struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Capabilities []string    `json:"capabilities"`
	Status       AgentStatus `json:"status"`
}

// StatusTracker bundles the mutex-guarded status handling agents share.
// Embed it in concrete agent implementations to satisfy the Status method.
type StatusTracker struct {
	mu     sync.Mutex
	status AgentStatus
}

// Status returns the current status, defaulting to AgentIdle before the
// first transition.
func (t *StatusTracker) Status() AgentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == "" {
		return AgentIdle
	}
	return t.status
}

// SetStatus transitions the tracker to the given state.
func (t *StatusTracker) SetStatus(s AgentStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}
