package task

import (
	"sync"

	"github.com/kpiflow/kpiflow/core"
)

// Interface compliance (compile-time assertion)
var _ core.TaskStore = (*InMemoryStore)(nil)

// InMemoryStore is a volatile TaskStore keeping task records in a process
// local map plus an arrival-ordered id slice for FIFO dequeue. It is safe
// for concurrent reads interleaved with the single writing orchestrator.
// Each returned task is cloned to prevent external mutation of internal
// state.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*core.Task
	order []string
}

// NewInMemoryStore constructs an empty in-memory task store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[string]*core.Task)}
}

// Insert stores a new task record.
func (s *InMemoryStore) Insert(t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
	s.order = append(s.order, t.ID)
	return nil
}

// Get returns a copy of the task or a TaskNotFoundError.
func (s *InMemoryStore) Get(id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &core.TaskNotFoundError{TaskID: id}
	}
	return t.Clone(), nil
}

// NextQueued returns a copy of the oldest task still in the queued state.
func (s *InMemoryStore) NextQueued() (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if t := s.tasks[id]; t.Status == core.TaskQueued {
			return t.Clone(), nil
		}
	}
	return nil, core.ErrQueueEmpty
}

// Update overwrites the stored record for t.ID.
func (s *InMemoryStore) Update(t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return &core.TaskNotFoundError{TaskID: t.ID}
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Counts returns the number of tasks per status.
func (s *InMemoryStore) Counts() (map[core.TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[core.TaskStatus]int)
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	return counts, nil
}
