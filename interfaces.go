// Package winddown defines interfaces for storage, caching, and logging
// used by the local store.
package winddown

import (
	"context"
	"time"
)

// Storage defines the methods required of a persistence backend. It
// covers the settings key-value table plus the two sibling domain
// tables (tasks, recurring tasks) that share the database, and the one
// multi-table transaction the system has: ClearAll.
type Storage interface {
	// GetSetting returns the setting for key, or ErrNotFound.
	GetSetting(ctx context.Context, key string) (*Setting, error)
	// PutSetting inserts or overwrites the setting for key.
	PutSetting(ctx context.Context, key, value string) error
	// ClearSettings removes every row from the settings table.
	ClearSettings(ctx context.Context) error

	// PutTask inserts or overwrites a task by ID.
	PutTask(ctx context.Context, task *Task) error
	// ListTasks returns all tasks.
	ListTasks(ctx context.Context) ([]*Task, error)
	// ListTasksDueBy returns incomplete tasks due at or before due.
	ListTasksDueBy(ctx context.Context, due time.Time) ([]*Task, error)

	// PutRecurringTask inserts or overwrites a recurring task by ID.
	PutRecurringTask(ctx context.Context, task *RecurringTask) error
	// ListRecurringTasks returns all recurring tasks.
	ListRecurringTasks(ctx context.Context) ([]*RecurringTask, error)

	// ClearAll empties the settings, tasks and recurring_tasks tables
	// in a single transaction. On failure no table is modified.
	ClearAll(ctx context.Context) error

	Close() error
}

// Cache defines the methods required of a caching backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
