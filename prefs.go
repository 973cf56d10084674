// prefs.go
package winddown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// KeySleepOnsetMinutes is the settings-table key the sleep onset
// preference is persisted under.
const KeySleepOnsetMinutes = "sleepOnsetMinutes"

// Bounds and default for the sleep onset preference, exported for reuse
// by UI-side validation.
const (
	DefaultSleepOnsetMinutes = 14
	MinSleepOnsetMinutes     = 1
	MaxSleepOnsetMinutes     = 60
)

const persistRetryBackoff = 250 * time.Millisecond

// settingsAPI is the slice of the Manager the preference store needs.
type settingsAPI interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// PreferenceStore holds the sleep onset preference in memory and keeps
// it persisted. The in-memory value is always within
// [MinSleepOnsetMinutes, MaxSleepOnsetMinutes]; out-of-range inputs are
// clamped, not rejected.
//
// Writes to storage happen on a background goroutine with bounded retry.
// A write that still fails after its retries is logged and dropped; the
// caller of SetSleepOnsetMinutes never sees a persistence error.
type PreferenceStore struct {
	mu         sync.RWMutex
	sleepOnset int
	subs       map[int]func(minutes int)
	nextSubID  int

	settings     settingsAPI
	logger       Logger
	writeTimeout time.Duration
	writeRetries int

	// Persistence is serialized through a single writer goroutine that
	// drains pending. A newer set replaces the pending value, so a stale
	// write can never land after a newer one.
	writeMu sync.Mutex
	pending *int
	writing bool
	writes  sync.WaitGroup
}

func newPreferenceStore(settings settingsAPI, cfg *Config) *PreferenceStore {
	return &PreferenceStore{
		sleepOnset:   DefaultSleepOnsetMinutes,
		subs:         make(map[int]func(int)),
		settings:     settings,
		logger:       cfg.logger,
		writeTimeout: cfg.writeTimeout,
		writeRetries: cfg.writeRetries,
	}
}

// SleepOnsetMinutes returns the current in-memory value.
func (p *PreferenceStore) SleepOnsetMinutes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sleepOnset
}

// SetSleepOnsetMinutes clamps minutes to the allowed range, updates the
// in-memory value synchronously, notifies subscribers, and persists the
// clamped value in the background.
func (p *PreferenceStore) SetSleepOnsetMinutes(minutes int) {
	clamped := clamp(minutes, MinSleepOnsetMinutes, MaxSleepOnsetMinutes)
	p.apply(clamped)
	p.persist(clamped)
}

// HydrateSleepOnsetMinutes sets the in-memory value directly, with no
// clamping and no persistence write. It exists so that loading an
// already-valid persisted value at startup does not immediately write
// the same value back. Callers must validate minutes first.
func (p *PreferenceStore) HydrateSleepOnsetMinutes(minutes int) {
	p.apply(minutes)
}

// Subscribe registers fn to be called synchronously with the new value
// on every change. The returned function cancels the subscription.
func (p *PreferenceStore) Subscribe(fn func(minutes int)) (cancel func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Flush blocks until all background preference writes issued so far have
// completed, been superseded by a newer value, or exhausted their
// retries.
func (p *PreferenceStore) Flush() {
	p.writes.Wait()
}

// apply updates the in-memory value and notifies subscribers. Callbacks
// run outside the lock so a subscriber may read the store.
func (p *PreferenceStore) apply(minutes int) {
	p.mu.Lock()
	p.sleepOnset = minutes
	fns := make([]func(int), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(minutes)
	}
}

// persist queues minutes for the background writer. Successive calls
// overwrite the pending slot, so only the most recent value reaches
// storage; there is at most one writer goroutine at a time.
func (p *PreferenceStore) persist(minutes int) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.pending = &minutes
	if p.writing {
		return
	}
	p.writing = true
	p.writes.Add(1)
	go p.drainWrites()
}

// drainWrites runs on the writer goroutine until the pending slot is
// empty.
func (p *PreferenceStore) drainWrites() {
	defer p.writes.Done()

	for {
		minutes, ok := p.takePending()
		if !ok {
			return
		}
		p.writeValue(minutes)
	}
}

func (p *PreferenceStore) takePending() (int, bool) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.pending == nil {
		p.writing = false
		return 0, false
	}
	minutes := *p.pending
	p.pending = nil
	return minutes, true
}

func (p *PreferenceStore) hasPending() bool {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.pending != nil
}

// writeValue persists minutes with bounded retry. Retries are abandoned
// as soon as a newer value is pending; that value's own write supersedes
// this one.
func (p *PreferenceStore) writeValue(minutes int) {
	value := strconv.Itoa(minutes)
	var err error
	for attempt := 0; attempt <= p.writeRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(persistRetryBackoff * time.Duration(attempt))
			if p.hasPending() {
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		err = p.settings.PutSetting(ctx, KeySleepOnsetMinutes, value)
		cancel()
		if err == nil {
			return
		}
	}

	p.logger.Error("Failed to persist sleep onset preference",
		"minutes", minutes, "attempts", p.writeRetries+1, "error", err)
}

// hydrate is the startup hook that loads the persisted preference. A
// missing record keeps the default; a malformed or out-of-range record
// is discarded with a warning and never fails startup. Only a storage
// error aborts.
func (p *PreferenceStore) hydrate(ctx context.Context) error {
	value, err := p.settings.GetSetting(ctx, KeySleepOnsetMinutes)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading sleep onset preference: %w", err)
	}

	minutes, err := strconv.Atoi(value)
	if err != nil || minutes < MinSleepOnsetMinutes || minutes > MaxSleepOnsetMinutes {
		p.logger.Warn("Ignoring invalid persisted sleep onset preference", "value", value)
		return nil
	}

	p.HydrateSleepOnsetMinutes(minutes)
	return nil
}
