package core

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed request rejected at enqueue time.
// Tasks that fail validation are never created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Message)
}

// DuplicateAgentError reports a second registration under an existing id.
type DuplicateAgentError struct {
	AgentID string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.AgentID)
}

// AgentNotFoundError reports a lookup of an unregistered agent id.
type AgentNotFoundError struct {
	AgentID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q is not registered", e.AgentID)
}

// TaskNotFoundError reports a lookup of an unknown task id.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.TaskID)
}

// ResultNotReadyError reports a result query against a non-terminal task.
type ResultNotReadyError struct {
	TaskID string
	Status TaskStatus
}

func (e *ResultNotReadyError) Error() string {
	return fmt.Sprintf("task %q has no result yet (status %s)", e.TaskID, e.Status)
}

// TimeoutError reports that a running task exceeded its wall-clock limit.
// The underlying agent invocation is cancelled cooperatively, not preempted.
type TimeoutError struct {
	TaskID string
	Limit  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %q exceeded its %s timeout", e.TaskID, e.Limit)
}

// TaskFailedError carries the failure payload of a terminal failed task back
// to result queries. Message is always human-readable; Models lists the
// forecasting models attempted when that is known.
type TaskFailedError struct {
	TaskID  string
	Message string
	Models  []string
}

func (e *TaskFailedError) Error() string {
	if len(e.Models) > 0 {
		return fmt.Sprintf("task %q failed: %s (models attempted: %v)", e.TaskID, e.Message, e.Models)
	}
	return fmt.Sprintf("task %q failed: %s", e.TaskID, e.Message)
}
