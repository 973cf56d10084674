package winddown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *MockStorage, *MockLogger) {
	t.Helper()

	store := NewMockStorage()
	logger := &MockLogger{}
	base := []Option{
		WithStorage(store),
		WithLogger(logger),
		WithWriteTimeout(time.Second),
	}
	return New(append(base, opts...)...), store, logger
}

func TestSetSleepOnsetMinutes_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"below_minimum", 0, 1},
		{"far_below_minimum", -100, 1},
		{"at_minimum", 1, 1},
		{"in_range", 30, 30},
		{"at_maximum", 60, 60},
		{"above_maximum", 61, 60},
		{"far_above_maximum", 500, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _, _ := newTestManager(t)
			prefs := mgr.Prefs()

			prefs.SetSleepOnsetMinutes(tt.input)
			assert.Equal(t, tt.want, prefs.SleepOnsetMinutes())
			prefs.Flush()
		})
	}
}

func TestSetSleepOnsetMinutes_WritesThrough(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	prefs.SetSleepOnsetMinutes(30)
	prefs.Flush()

	assert.Equal(t, "30", store.SettingValue(KeySleepOnsetMinutes))
}

func TestSetSleepOnsetMinutes_ClampedValueIsPersisted(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	prefs.SetSleepOnsetMinutes(200)
	prefs.Flush()

	assert.Equal(t, 60, prefs.SleepOnsetMinutes())
	assert.Equal(t, "60", store.SettingValue(KeySleepOnsetMinutes))
}

func TestSetSleepOnsetMinutes_Idempotent(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	prefs.SetSleepOnsetMinutes(30)
	prefs.SetSleepOnsetMinutes(30)
	prefs.Flush()

	assert.Equal(t, 30, prefs.SleepOnsetMinutes())
	assert.Equal(t, "30", store.SettingValue(KeySleepOnsetMinutes))
}

func TestSetSleepOnsetMinutes_LastSetWinsInStorage(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	prefs.SetSleepOnsetMinutes(61) // clamped to 60
	prefs.SetSleepOnsetMinutes(30)
	prefs.Flush()

	assert.Equal(t, 30, prefs.SleepOnsetMinutes())
	assert.Equal(t, "30", store.SettingValue(KeySleepOnsetMinutes))
}

func TestSetSleepOnsetMinutes_RapidSetsPersistLatest(t *testing.T) {
	for i := 0; i < 20; i++ {
		mgr, store, _ := newTestManager(t)
		prefs := mgr.Prefs()

		for minutes := 1; minutes <= 10; minutes++ {
			prefs.SetSleepOnsetMinutes(minutes)
		}
		prefs.Flush()

		assert.Equal(t, "10", store.SettingValue(KeySleepOnsetMinutes))
	}
}

func TestPersist_StaleRetryIsSuperseded(t *testing.T) {
	mgr, store, logger := newTestManager(t, WithWriteRetries(1))
	prefs := mgr.Prefs()

	// The first write fails once. Whether its retry is abandoned for the
	// newer value or the newer value is picked up directly, storage must
	// end holding 30.
	store.SetFailPutSetting(1)
	prefs.SetSleepOnsetMinutes(60)
	prefs.SetSleepOnsetMinutes(30)
	prefs.Flush()

	assert.Equal(t, "30", store.SettingValue(KeySleepOnsetMinutes))
	assert.False(t, logger.HasLevel("ERROR"), "superseded write should not be reported, got %v", logger.Messages)
}

func TestSetSleepOnsetMinutes_InMemoryUpdateIsSynchronous(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	// Even with storage rejecting every write, the in-memory value must
	// already reflect the set.
	store.SetFailPutSetting(10)
	prefs.SetSleepOnsetMinutes(42)
	assert.Equal(t, 42, prefs.SleepOnsetMinutes())
	prefs.Flush()
}

func TestPersist_FailureIsLoggedNotSurfaced(t *testing.T) {
	mgr, store, logger := newTestManager(t, WithWriteRetries(1))
	prefs := mgr.Prefs()

	store.SetFailPutSetting(10)
	prefs.SetSleepOnsetMinutes(25)
	prefs.Flush()

	// Initial attempt plus one retry, then the error is logged.
	assert.Equal(t, 2, store.PutSettingCalls())
	assert.True(t, logger.HasLevel("ERROR"), "expected a logged persistence error, got %v", logger.Messages)
	assert.Equal(t, 25, prefs.SleepOnsetMinutes())
}

func TestPersist_RetrySucceeds(t *testing.T) {
	mgr, store, logger := newTestManager(t, WithWriteRetries(2))
	prefs := mgr.Prefs()

	store.SetFailPutSetting(1)
	prefs.SetSleepOnsetMinutes(25)
	prefs.Flush()

	assert.Equal(t, "25", store.SettingValue(KeySleepOnsetMinutes))
	assert.False(t, logger.HasLevel("ERROR"), "no error expected after successful retry, got %v", logger.Messages)
}

func TestHydrate_PersistedValue(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	store.Seed(KeySleepOnsetMinutes, "45")

	require.NoError(t, mgr.Init(context.Background()))

	assert.Equal(t, 45, mgr.Prefs().SleepOnsetMinutes())
	// Hydration must not write the value back.
	assert.Equal(t, 0, store.PutSettingCalls())
}

func TestHydrate_AbsentKeepsDefault(t *testing.T) {
	mgr, store, _ := newTestManager(t)

	require.NoError(t, mgr.Init(context.Background()))

	assert.Equal(t, DefaultSleepOnsetMinutes, mgr.Prefs().SleepOnsetMinutes())
	assert.Equal(t, 0, store.PutSettingCalls())
}

func TestHydrate_MalformedValueDiscarded(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"unparsable", "abc"},
		{"empty", ""},
		{"out_of_range_high", "200"},
		{"out_of_range_low", "0"},
		{"negative", "-3"},
		{"float", "14.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, store, logger := newTestManager(t)
			store.Seed(KeySleepOnsetMinutes, tt.value)

			require.NoError(t, mgr.Init(context.Background()))

			assert.Equal(t, DefaultSleepOnsetMinutes, mgr.Prefs().SleepOnsetMinutes())
			assert.True(t, logger.HasLevel("WARN"), "malformed value should be logged, got %v", logger.Messages)
			assert.Equal(t, 0, store.PutSettingCalls())
		})
	}
}

func TestHydrate_StorageErrorAbortsInit(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	store.SetGetSettingError(ErrStorageUnavailable)

	err := mgr.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestHydrateSleepOnsetMinutes_NoClampNoWrite(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	prefs := mgr.Prefs()

	prefs.HydrateSleepOnsetMinutes(45)

	assert.Equal(t, 45, prefs.SleepOnsetMinutes())
	assert.Equal(t, 0, store.PutSettingCalls())
}

func TestSubscribe(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	prefs := mgr.Prefs()

	var seen []int
	cancel := prefs.Subscribe(func(minutes int) {
		seen = append(seen, minutes)
	})

	prefs.SetSleepOnsetMinutes(0) // clamped to 1
	prefs.HydrateSleepOnsetMinutes(45)
	cancel()
	prefs.SetSleepOnsetMinutes(30)
	prefs.Flush()

	assert.Equal(t, []int{1, 45}, seen)
}

func TestSubscriberMayReadStore(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	prefs := mgr.Prefs()

	var observed int
	cancel := prefs.Subscribe(func(int) {
		observed = prefs.SleepOnsetMinutes()
	})
	defer cancel()

	prefs.SetSleepOnsetMinutes(22)
	prefs.Flush()

	assert.Equal(t, 22, observed)
}

func TestDefaults(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	assert.Equal(t, 14, DefaultSleepOnsetMinutes)
	assert.Equal(t, 1, MinSleepOnsetMinutes)
	assert.Equal(t, 60, MaxSleepOnsetMinutes)
	assert.Equal(t, "sleepOnsetMinutes", KeySleepOnsetMinutes)
	assert.Equal(t, DefaultSleepOnsetMinutes, mgr.Prefs().SleepOnsetMinutes())
}
