// manager.go
package winddown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const settingCacheTTL = 24 * time.Hour

// StartupHook is a callback run exactly once during Manager.Init, before
// the app's UI is expected to read meaningful values. Hooks receive the
// Init context and abort initialization if they fail.
type StartupHook func(ctx context.Context) error

// Manager owns the app's local state: the storage backend, the optional
// settings cache, and the preference store. Construct with New and call
// Init once at startup; there are no package-level singletons.
type Manager struct {
	mu          sync.Mutex
	config      *Config
	prefs       *PreferenceStore
	hooks       []StartupHook
	initialized bool

	cacheMu    sync.Mutex
	cachedKeys map[string]struct{}
}

// New constructs a Manager from the given options. The preference
// store's hydration hook is pre-registered; call Init to run it.
func New(opts ...Option) *Manager {
	cfg := &Config{
		logger:       NewDefaultLogger(),
		writeTimeout: 5 * time.Second,
		writeRetries: 2,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	m := &Manager{
		config:     cfg,
		cachedKeys: make(map[string]struct{}),
	}
	m.prefs = newPreferenceStore(m, cfg)
	m.hooks = append(m.hooks, m.prefs.hydrate)
	return m
}

// Prefs returns the preference store.
func (m *Manager) Prefs() *PreferenceStore {
	return m.prefs
}

// RegisterStartupHook adds a hook to be run by Init. It returns
// ErrAlreadyInitialized once Init has been called.
func (m *Manager) RegisterStartupHook(fn StartupHook) error {
	if fn == nil {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}

	m.hooks = append(m.hooks, fn)
	return nil
}

// Init runs all registered startup hooks in registration order, exactly
// once. Subsequent calls are no-ops. A failing hook aborts Init and
// leaves the Manager uninitialized so a retry is possible.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if m.config.storage == nil {
		return ErrStorageUnavailable
	}

	for _, hook := range m.hooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("startup hook failed: %w", err)
		}
	}

	m.initialized = true
	return nil
}

// GetSetting returns the stored value for key, consulting the cache
// first when one is configured. Returns ErrNotFound when no such
// setting exists.
func (m *Manager) GetSetting(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidInput
	}

	if m.config.cache != nil {
		if data, err := m.config.cache.Get(ctx, settingCacheKey(key)); err == nil {
			return string(data), nil
		}
	}

	setting, err := m.config.storage.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}

	if m.config.cache != nil {
		m.setToCache(ctx, key, setting.Value)
	}

	return setting.Value, nil
}

// PutSetting upserts the value for key and refreshes the cache.
func (m *Manager) PutSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidInput
	}

	if err := m.config.storage.PutSetting(ctx, key, value); err != nil {
		return err
	}

	if m.config.cache != nil {
		m.setToCache(ctx, key, value)
	}

	return nil
}

// ClearAllData empties the settings, tasks and recurring_tasks tables in
// one transaction. Either all three end empty, or a failure leaves every
// table as it was. Errors propagate to the caller; the invoking UI layer
// is expected to surface them.
func (m *Manager) ClearAllData(ctx context.Context) error {
	if err := m.config.storage.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing all data: %w", err)
	}

	if m.config.cache != nil {
		m.dropCachedSettings(ctx)
	}

	return nil
}

// Close flushes pending preference writes and closes the cache and
// storage backends.
func (m *Manager) Close() error {
	m.prefs.Flush()

	var firstErr error
	if m.config.cache != nil {
		if err := m.config.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if m.config.storage != nil {
		if err := m.config.storage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) setToCache(ctx context.Context, key, value string) {
	if err := m.config.cache.Set(ctx, settingCacheKey(key), []byte(value), settingCacheTTL); err != nil {
		m.config.logger.Error("Failed to cache setting", "key", key, "error", err)
		return
	}

	m.cacheMu.Lock()
	m.cachedKeys[key] = struct{}{}
	m.cacheMu.Unlock()
}

// dropCachedSettings invalidates every setting this Manager has cached.
func (m *Manager) dropCachedSettings(ctx context.Context) {
	m.cacheMu.Lock()
	keys := make([]string, 0, len(m.cachedKeys))
	for key := range m.cachedKeys {
		keys = append(keys, key)
	}
	m.cachedKeys = make(map[string]struct{})
	m.cacheMu.Unlock()

	for _, key := range keys {
		if err := m.config.cache.Delete(ctx, settingCacheKey(key)); err != nil {
			m.config.logger.Error("Failed to evict cached setting", "key", key, "error", err)
		}
	}
}

func settingCacheKey(key string) string {
	return "setting:" + key
}
