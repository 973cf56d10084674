package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/winddown-app/winddown"
)

// MemoryStore implements the winddown.Storage interface using in-memory
// maps. Useful for tests and for ephemeral sessions where persistence is
// not wanted.
type MemoryStore struct {
	mu        sync.RWMutex
	settings  map[string]*winddown.Setting
	tasks     map[string]*winddown.Task
	recurring map[string]*winddown.RecurringTask
	closed    bool

	// failClearAll, when set, makes ClearAll fail without touching any
	// table. Used by tests to exercise the atomicity contract.
	failClearAll error
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:  make(map[string]*winddown.Setting),
		tasks:     make(map[string]*winddown.Task),
		recurring: make(map[string]*winddown.RecurringTask),
	}
}

// GetSetting retrieves a setting by key.
// It returns winddown.ErrNotFound if the setting does not exist.
func (s *MemoryStore) GetSetting(_ context.Context, key string) (*winddown.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, winddown.ErrStorageUnavailable
	}

	setting, ok := s.settings[key]
	if !ok {
		return nil, winddown.ErrNotFound
	}

	copied := *setting
	return &copied, nil
}

// PutSetting inserts or overwrites the setting for key.
func (s *MemoryStore) PutSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return winddown.ErrStorageUnavailable
	}

	s.settings[key] = &winddown.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return nil
}

// ClearSettings removes all settings.
func (s *MemoryStore) ClearSettings(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return winddown.ErrStorageUnavailable
	}

	s.settings = make(map[string]*winddown.Setting)
	return nil
}

// PutTask inserts or overwrites a task by ID.
func (s *MemoryStore) PutTask(_ context.Context, task *winddown.Task) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return winddown.ErrStorageUnavailable
	}

	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// ListTasks returns all tasks in creation order.
func (s *MemoryStore) ListTasks(_ context.Context) ([]*winddown.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, winddown.ErrStorageUnavailable
	}

	tasks := make([]*winddown.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ListTasksDueBy returns incomplete tasks due at or before due.
func (s *MemoryStore) ListTasksDueBy(_ context.Context, due time.Time) ([]*winddown.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, winddown.ErrStorageUnavailable
	}

	var tasks []*winddown.Task
	for _, task := range s.tasks {
		if task.Completed || task.DueAt.IsZero() || task.DueAt.After(due) {
			continue
		}
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].DueAt.Before(tasks[j].DueAt)
	})
	return tasks, nil
}

// PutRecurringTask inserts or overwrites a recurring task by ID.
func (s *MemoryStore) PutRecurringTask(_ context.Context, task *winddown.RecurringTask) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return winddown.ErrStorageUnavailable
	}

	copied := *task
	s.recurring[task.ID] = &copied
	return nil
}

// ListRecurringTasks returns all recurring tasks in creation order.
func (s *MemoryStore) ListRecurringTasks(_ context.Context) ([]*winddown.RecurringTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, winddown.ErrStorageUnavailable
	}

	tasks := make([]*winddown.RecurringTask, 0, len(s.recurring))
	for _, task := range s.recurring {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ClearAll empties all three tables. The whole operation happens under
// one lock: it either completes for every table or, when a failure is
// injected, touches none of them.
func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return winddown.ErrStorageUnavailable
	}

	if s.failClearAll != nil {
		return s.failClearAll
	}

	s.settings = make(map[string]*winddown.Setting)
	s.tasks = make(map[string]*winddown.Task)
	s.recurring = make(map[string]*winddown.RecurringTask)
	return nil
}

// Close marks the store closed; subsequent operations fail with
// winddown.ErrStorageUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
