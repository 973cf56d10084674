// Package winddown defines the core types used by the local store.
package winddown

import (
	"time"
)

// Setting is a single row of the settings key-value table. Values are
// stored stringified even for numeric settings; callers parse them back
// on read.
type Setting struct {
	// Key is the unique identifier for the setting and the table's
	// primary key.
	Key string `json:"key"`
	// Value is the setting's value serialized to a string.
	Value string `json:"value"`
	// UpdatedAt records when the setting was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a one-off task in the user's list. The preference core treats
// tasks as opaque; they matter here only because their table shares the
// database and its bulk-clear transaction with the settings table.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	DueAt     time.Time `json:"due_at,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// RecurringTask is a task template that regenerates on a fixed interval.
type RecurringTask struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	IntervalDays int       `json:"interval_days"`
	NextDue      time.Time `json:"next_due,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Config holds the internal configuration for a Manager instance.
// It is populated by applying functional Options when a new Manager is
// created with New(). Not intended to be instantiated directly.
type Config struct {
	// storage is the persistence backend (SQLite, Postgres, memory).
	storage Storage
	// cache is the optional settings cache.
	cache Cache
	// logger is the logging interface used by the Manager.
	logger Logger
	// writeTimeout bounds each background preference write.
	writeTimeout time.Duration
	// writeRetries is the number of additional attempts a failed
	// background preference write gets before its error is logged.
	writeRetries int
}

// Option configures a Manager instance. Options are passed to New().
type Option func(*Config)

// WithStorage sets the Storage backend used for persisting settings,
// tasks and recurring tasks. Mandatory for a functional Manager.
func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithCache sets an optional Cache used in front of the settings table.
func WithCache(cache Cache) Option {
	return func(c *Config) {
		c.cache = cache
	}
}

// WithLogger sets the Logger implementation. If not set, a default
// logger writing to os.Stderr is used.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithWriteTimeout bounds each background preference write issued by the
// PreferenceStore. Defaults to 5 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithWriteRetries sets how many additional attempts a failed background
// preference write gets. Defaults to 2.
func WithWriteRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.writeRetries = n
		}
	}
}
