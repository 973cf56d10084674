// Package storage provides a PostgreSQL-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/winddown-app/winddown"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	pgCreateTablesSQL = `
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
			completed BOOLEAN NOT NULL DEFAULT FALSE,
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

	pgUpsertSettingSQL = `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $3
	`

	pgSelectSettingSQL = `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = $1
	`

	pgUpsertTaskSQL = `
		INSERT INTO tasks (id, title, notes, due_at, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET title = $2, notes = $3, due_at = $4, completed = $5
	`

	pgSelectTasksSQL = `
		SELECT id, title, notes, due_at, completed, created_at
		FROM tasks
		ORDER BY created_at
	`

	pgSelectTasksDueBySQL = `
		SELECT id, title, notes, due_at, completed, created_at
		FROM tasks
		WHERE due_at IS NOT NULL AND due_at <= $1 AND completed = FALSE
		ORDER BY due_at
	`

	pgUpsertRecurringSQL = `
		INSERT INTO recurring_tasks (id, title, interval_days, next_due, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET title = $2, interval_days = $3, next_due = $4
	`

	pgSelectRecurringSQL = `
		SELECT id, title, interval_days, next_due, created_at
		FROM recurring_tasks
		ORDER BY created_at
	`
)

// PostgresStore implements the winddown.Storage interface using
// PostgreSQL. It exists for self-hosted sync-server deployments; local
// installs use SQLiteStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL using the given DSN and
// applies the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlOpenFunc("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(pgCreateTablesSQL)
	return err
}

// GetSetting retrieves a setting by key.
// It returns winddown.ErrNotFound if the setting does not exist.
func (s *PostgresStore) GetSetting(ctx context.Context, key string) (*winddown.Setting, error) {
	var setting winddown.Setting

	err := s.db.QueryRowContext(ctx, pgSelectSettingSQL, key).Scan(
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
func (s *PostgresStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, pgUpsertSettingSQL, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put setting: %w", err)
	}
	return nil
}

// ClearSettings removes all rows from the settings table.
func (s *PostgresStore) ClearSettings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// PutTask inserts or overwrites a task by ID.
func (s *PostgresStore) PutTask(ctx context.Context, task *winddown.Task) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, pgUpsertTaskSQL,
		task.ID, task.Title, task.Notes, nullableTime(task.DueAt), task.Completed, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put task: %w", err)
	}
	return nil
}

// ListTasks returns all tasks in creation order.
func (s *PostgresStore) ListTasks(ctx context.Context) ([]*winddown.Task, error) {
	rows, err := s.db.QueryContext(ctx, pgSelectTasksSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer closeRows(rows)

	return scanTasks(rows)
}

// ListTasksDueBy returns incomplete tasks due at or before due.
func (s *PostgresStore) ListTasksDueBy(ctx context.Context, due time.Time) ([]*winddown.Task, error) {
	rows, err := s.db.QueryContext(ctx, pgSelectTasksDueBySQL, due)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer closeRows(rows)

	return scanTasks(rows)
}

// PutRecurringTask inserts or overwrites a recurring task by ID.
func (s *PostgresStore) PutRecurringTask(ctx context.Context, task *winddown.RecurringTask) error {
	if task == nil || task.ID == "" {
		return winddown.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, pgUpsertRecurringSQL,
		task.ID, task.Title, task.IntervalDays, nullableTime(task.NextDue), task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put recurring task: %w", err)
	}
	return nil
}

// ListRecurringTasks returns all recurring tasks in creation order.
func (s *PostgresStore) ListRecurringTasks(ctx context.Context) ([]*winddown.RecurringTask, error) {
	rows, err := s.db.QueryContext(ctx, pgSelectRecurringSQL)
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
func (s *PostgresStore) ClearAll(ctx context.Context) error {
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

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
