package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/shared"
)

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func TestCycle_TriggerNow_SingleFlight(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var runs atomic.Int32

	cycle := NewCycle("test", time.Hour, "", "", &memSettings{}, func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	require.NoError(t, cycle.TriggerNow())
	<-started
	assert.True(t, cycle.InFlight())

	// A second trigger while the first run is still going is rejected
	err := cycle.TriggerNow()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool { return !cycle.InFlight() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	// Released, the next trigger is accepted again
	assert.NoError(t, cycle.TriggerNow())
}

func TestCycle_TriggerNow_BeforeStart(t *testing.T) {
	cycle := NewCycle("test", time.Hour, "", "", &memSettings{}, func(ctx context.Context) error {
		return nil
	}, zap.NewNop())

	err := cycle.TriggerNow()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestCycle_TriggerNow_RunOutlivesTriggerCall(t *testing.T) {
	release := make(chan struct{})
	ctxErr := make(chan error, 1)

	cycle := NewCycle("test", time.Hour, "", "", &memSettings{}, func(ctx context.Context) error {
		<-release
		ctxErr <- ctx.Err()
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	require.NoError(t, cycle.TriggerNow())

	// The trigger call has long returned; the run's context must still be live
	close(release)
	select {
	case err := <-ctxErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manual run did not finish")
	}
}

func TestCycle_Stop_CancelsManualRun(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	cycle := NewCycle("test", time.Hour, "", "", &memSettings{}, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	require.NoError(t, cycle.TriggerNow())
	<-started

	require.NoError(t, cycle.Stop(ctx))
	select {
	case <-cancelled:
	default:
		t.Fatal("Stop did not cancel the manual run")
	}
}

func TestCycle_TimerFiresOnInterval(t *testing.T) {
	var runs atomic.Int32
	cycle := NewCycle("test", 10*time.Millisecond, "", "", &memSettings{}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestCycle_SettingsDisableSkipsTicks(t *testing.T) {
	settings := &memSettings{values: map[string]string{"cycle.enabled": "false"}}
	var runs atomic.Int32
	cycle := NewCycle("test", 10*time.Millisecond, "cycle.enabled", "", settings, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	// Flipping the toggle takes effect without a restart
	require.NoError(t, settings.Save(ctx, "cycle.enabled", "true"))
	require.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, 5*time.Millisecond)
}

func TestCycle_IntervalOverride(t *testing.T) {
	settings := &memSettings{values: map[string]string{"cycle.interval": "10ms"}}
	var runs atomic.Int32
	cycle := NewCycle("test", time.Hour, "", "cycle.interval", settings, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestCycle_StopWaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})

	cycle := NewCycle("test", time.Hour, "", "", &memSettings{}, func(ctx context.Context) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		close(finished)
		return nil
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	require.NoError(t, cycle.TriggerNow())
	<-started

	require.NoError(t, cycle.Stop(ctx))
	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the in-flight run finished")
	}
}

func TestCycle_PanicIsContained(t *testing.T) {
	var runs atomic.Int32
	cycle := NewCycle("test", 10*time.Millisecond, "", "", &memSettings{}, func(ctx context.Context) error {
		runs.Add(1)
		panic("boom")
	}, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, cycle.Start(ctx))
	defer cycle.Stop(ctx)

	// The loop survives a panicking run and keeps firing
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
