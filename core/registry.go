package core

// AgentRegistry maps agent identifiers to live agent instances. Registration
// happens once during process startup; agents are not hot-swapped mid-task.
type AgentRegistry interface {
	// Register adds an agent, failing with a DuplicateAgentError when the
	// identifier is already taken.
	Register(a Agent) error

	// Get resolves an agent by id or fails with an AgentNotFoundError.
	Get(id string) (Agent, error)

	// List returns all agents in registration order. The ordering is stable
	// so enumeration is deterministic for introspection and tests.
	List() []Agent

	// Snapshot returns per-agent metadata in registration order.
	Snapshot() []AgentInfo
}
