// Package storage provides a SQLite-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/winddown-app/winddown"
)

const (
	// Schema version 1. Creation is idempotent; there is no migration
	// path beyond this.
	sqliteCreateTablesSQL = `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			due_at TIMESTAMP,
			completed BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
		CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);

		CREATE TABLE IF NOT EXISTS recurring_tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			interval_days INTEGER NOT NULL,
			next_due TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_recurring_tasks_next_due ON recurring_tasks(next_due);
	`

	sqliteUpsertSettingSQL = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key)
		DO UPDATE SET value = ?, updated_at = ?
	`

	sqliteSelectSettingSQL = `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = ?
	`

	sqliteUpsertTaskSQL = `
		INSERT INTO tasks (id, title, notes, due_at, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET title = ?, notes = ?, due_at = ?, completed = ?
	`

	sqliteSelectTasksSQL = `
		SELECT id, title, notes, due_at, completed, created_at
		FROM tasks
		ORDER BY created_at
	`

	sqliteSelectTasksDueBySQL = `
		SELECT id, title, notes, due_at, completed, created_at
		FROM tasks
		WHERE due_at IS NOT NULL AND due_at <= ? AND completed = 0
		ORDER BY due_at
	`

	sqliteUpsertRecurringSQL = `
		INSERT INTO recurring_tasks (id, title, interval_days, next_due, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET title = ?, interval_days = ?, next_due = ?
	`

	sqliteSelectRecurringSQL = `
		SELECT id, title, interval_days, next_due, created_at
		FROM recurring_tasks
		ORDER BY created_at
	`
)

// SQLiteStore implements the winddown.Storage interface using SQLite,
// the embedded database the app runs against locally.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// dbPath and applies the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return store, nil
}

// migrate creates the three tables and their indexes.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteCreateTablesSQL)
	return err
}

// GetSetting retrieves a setting by key.
// It returns winddown.ErrNotFound if the setting does not exist.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (*winddown.Setting, error) {
	var setting winddown.Setting

	err := s.db.QueryRowContext(ctx, sqliteSelectSettingSQL, key).Scan(
		&setting.Key,
		&setting.Value,
		&setting.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, winddown.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return &setting, nil
}

// PutSetting inserts or overwrites the setting for key.
func (s *SQLiteStore) PutSetting(ctx context.Context, key, value string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, sqliteUpsertSettingSQL,
		key, value, now,
		value, now,
	)
	if err != nil {
		return fmt.Errorf("failed to put setting: %w", err)
	}
	return nil
}

// ClearSettings removes all rows from the settings table.
func (s *SQLiteStore) ClearSettings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// PutTask inserts or overwrites a task by ID.
func (s *SQLiteStore) PutTask(ctx context.Context, task *winddown.Task) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	dueAt := nullableTime(task.DueAt)
	_, err := s.db.ExecContext(ctx, sqliteUpsertTaskSQL,
		task.ID, task.Title, task.Notes, dueAt, task.Completed, task.CreatedAt,
		task.Title, task.Notes, dueAt, task.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to put task: %w", err)
	}
	return nil
}

// ListTasks returns all tasks in creation order.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*winddown.Task, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectTasksSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer closeRows(rows)

	return scanTasks(rows)
}

// ListTasksDueBy returns incomplete tasks due at or before due.
func (s *SQLiteStore) ListTasksDueBy(ctx context.Context, due time.Time) ([]*winddown.Task, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectTasksDueBySQL, due)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer closeRows(rows)

	return scanTasks(rows)
}

// PutRecurringTask inserts or overwrites a recurring task by ID.
func (s *SQLiteStore) PutRecurringTask(ctx context.Context, task *winddown.RecurringTask) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	nextDue := nullableTime(task.NextDue)
	_, err := s.db.ExecContext(ctx, sqliteUpsertRecurringSQL,
		task.ID, task.Title, task.IntervalDays, nextDue, task.CreatedAt,
		task.Title, task.IntervalDays, nextDue,
	)
	if err != nil {
		return fmt.Errorf("failed to put recurring task: %w", err)
	}
	return nil
}

// ListRecurringTasks returns all recurring tasks in creation order.
func (s *SQLiteStore) ListRecurringTasks(ctx context.Context) ([]*winddown.RecurringTask, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectRecurringSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring tasks: %w", err)
	}
	defer closeRows(rows)

	var tasks []*winddown.RecurringTask
	for rows.Next() {
		var task winddown.RecurringTask
		var nextDue sql.NullTime

		if err := rows.Scan(&task.ID, &task.Title, &task.IntervalDays, &nextDue, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring task: %w", err)
		}
		if nextDue.Valid {
			task.NextDue = nextDue.Time
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// ClearAll empties the settings, tasks and recurring_tasks tables in a
// single transaction. Any failure rolls the whole operation back.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM settings`,
		`DELETE FROM tasks`,
		`DELETE FROM recurring_tasks`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("failed to clear tables: %w (rollback: %v)", err, rbErr)
			}
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTasks(rows *sql.Rows) ([]*winddown.Task, error) {
	var tasks []*winddown.Task
	for rows.Next() {
		var task winddown.Task
		var dueAt sql.NullTime

		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Notes,
			&dueAt,
			&task.Completed,
			&task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if dueAt.Valid {
			task.DueAt = dueAt.Time
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tasks, nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		fmt.Printf("Error closing rows: %v\n", cerr)
	}
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
