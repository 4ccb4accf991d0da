// Package task implements the task manager: the owner of task records and
// their lifecycle. It enqueues work after validating the target agent,
// exposes status and result queries, and enforces the monotonic state
// machine queued → running → completed|failed. Storage is pluggable behind
// core.TaskStore; NewInMemoryStore is the default backend and the tasksqlite
// subpackage provides a persistent one.
package task
