// Package core defines the shared contracts of the kpiflow pipeline: the
// Agent interface every analysis unit implements, the Task record and its
// lifecycle states, the store interfaces backing the task manager, registry
// and result cache, and the typed error taxonomy surfaced to callers.
//
// Concrete implementations live in leaf packages (task, registry, cache,
// orchestrator, agents/*). core never imports them; the dependency arrow
// always points inward.
package core
