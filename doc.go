// Package winddown provides the local persistence and preference core for
// the Winddown offline-first note/task application.
//
// It manages a single validated numeric preference (the user's typical
// sleep-onset time in minutes) in a subscribable in-memory store with
// write-through persistence, and wraps the app's embedded database
// (settings, tasks, recurring tasks) behind a pluggable Storage interface
// with SQLite, PostgreSQL and in-memory backends, plus optional caching
// (Redis, in-memory).
package winddown
