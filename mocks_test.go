package winddown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockStorage implements the Storage interface for testing.
type MockStorage struct {
	mu        sync.RWMutex
	settings  map[string]*Setting
	tasks     map[string]*Task
	recurring map[string]*RecurringTask
	closed    bool

	putSettingCalls int
	failPutSetting  int   // fail this many upcoming PutSetting calls
	getSettingErr   error // forced error for GetSetting
	clearAllErr     error // forced error for ClearAll
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		settings:  make(map[string]*Setting),
		tasks:     make(map[string]*Task),
		recurring: make(map[string]*RecurringTask),
	}
}

func (m *MockStorage) GetSetting(ctx context.Context, key string) (*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if m.getSettingErr != nil {
		return nil, m.getSettingErr
	}

	setting, exists := m.settings[key]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *setting
	return &copied, nil
}

func (m *MockStorage) PutSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}

	m.putSettingCalls++
	if m.failPutSetting > 0 {
		m.failPutSetting--
		return ErrStorageUnavailable
	}

	m.settings[key] = &Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return nil
}

func (m *MockStorage) ClearSettings(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	m.settings = make(map[string]*Setting)
	return nil
}

func (m *MockStorage) PutTask(ctx context.Context, task *Task) error {
	if task == nil || task.ID == "" {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *MockStorage) ListTasks(ctx context.Context) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}

	tasks := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *MockStorage) ListTasksDueBy(ctx context.Context, due time.Time) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}

	var tasks []*Task
	for _, task := range m.tasks {
		if task.Completed || task.DueAt.IsZero() || task.DueAt.After(due) {
			continue
		}
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueAt.Before(tasks[j].DueAt) })
	return tasks, nil
}

func (m *MockStorage) PutRecurringTask(ctx context.Context, task *RecurringTask) error {
	if task == nil || task.ID == "" {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	copied := *task
	m.recurring[task.ID] = &copied
	return nil
}

func (m *MockStorage) ListRecurringTasks(ctx context.Context) ([]*RecurringTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}

	tasks := make([]*RecurringTask, 0, len(m.recurring))
	for _, task := range m.recurring {
		copied := *task
		tasks = append(tasks, &copied)
	}
	return tasks, nil
}

func (m *MockStorage) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	if m.clearAllErr != nil {
		return m.clearAllErr
	}

	m.settings = make(map[string]*Setting)
	m.tasks = make(map[string]*Task)
	m.recurring = make(map[string]*RecurringTask)
	return nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Seed pre-populates a setting without counting as a PutSetting call.
func (m *MockStorage) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = &Setting{Key: key, Value: value, UpdatedAt: time.Now()}
}

// SetFailPutSetting makes the next n PutSetting calls fail.
func (m *MockStorage) SetFailPutSetting(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPutSetting = n
}

// SetGetSettingError forces GetSetting to return err.
func (m *MockStorage) SetGetSettingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getSettingErr = err
}

// SetClearAllError forces ClearAll to fail without touching any table.
func (m *MockStorage) SetClearAllError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearAllErr = err
}

// PutSettingCalls reports how many times PutSetting has been invoked.
func (m *MockStorage) PutSettingCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.putSettingCalls
}

// SettingValue returns the stored value for key, or "" when absent.
func (m *MockStorage) SettingValue(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if setting, exists := m.settings[key]; exists {
		return setting.Value
	}
	return ""
}

// Counts returns the number of rows in each table.
func (m *MockStorage) Counts() (settings, tasks, recurring int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.settings), len(m.tasks), len(m.recurring)
}

// MockCache implements the Cache interface for testing.
type MockCache struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrCacheUnavailable
	}

	value, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}

	if _, exists := m.data[key]; exists {
		delete(m.data, key)
		return nil
	}
	return ErrNotFound
}

func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Has reports whether key is cached.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.data[key]
	return exists
}

// MockLogger implements the Logger interface for testing.
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("DEBUG", msg, args...) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("INFO", msg, args...) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("WARN", msg, args...) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("ERROR", msg, args...) }

func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, fmt.Sprintf("SET_LEVEL: %v", level))
}

func (m *MockLogger) record(level, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(args) > 0 {
		m.Messages = append(m.Messages, fmt.Sprintf("%s: %s %v", level, msg, args))
		return
	}
	m.Messages = append(m.Messages, fmt.Sprintf("%s: %s", level, msg))
}

// HasLevel reports whether any recorded message carries the level prefix.
func (m *MockLogger) HasLevel(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if len(msg) >= len(level) && msg[:len(level)] == level {
			return true
		}
	}
	return false
}
