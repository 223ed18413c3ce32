package sync_test

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/nhle/laundry-notifications/internal/sync"
)

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type tickers struct {
	mu       gosync.Mutex
	created  []*manualTicker
	interval time.Duration
}

func (f *tickers) New(d time.Duration) appsync.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	f.created = append(f.created, t)
	f.interval = d
	return t
}

func (f *tickers) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

func TestPoller_DefaultInterval(t *testing.T) {
	p := appsync.New(func(context.Context) error { return nil }, 0, nil)
	assert.Equal(t, 30*time.Second, p.Interval())
}

func TestPoller_RunsImmediatelyThenOnTicks(t *testing.T) {
	var calls atomic.Int32
	f := &tickers{}
	p := appsync.New(func(context.Context) error {
		calls.Add(1)
		return nil
	}, time.Minute, f.New)

	require.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()))
	assert.Equal(t, time.Minute, f.interval)

	p.Wait()
	assert.Equal(t, int32(1), calls.Load())

	f.last().ch <- time.Now()
	f.last().ch <- time.Now()
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.True(t, f.last().stopped.Load())
	assert.False(t, p.Running())
	p.Stop()
}

func TestPoller_ErrorsAreRecordedNotFatal(t *testing.T) {
	var calls atomic.Int32
	f := &tickers{}
	p := appsync.New(func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("boom")
		}
		return nil
	}, time.Minute, f.New)

	p.Start(context.Background())
	defer p.Stop()
	p.Wait()

	st := p.Status()
	assert.Equal(t, appsync.StateError, st.State)
	assert.EqualError(t, st.LastError, "boom")
	assert.True(t, st.LastOK.IsZero())

	f.last().ch <- time.Now()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	p.Wait()

	st = p.Status()
	assert.Equal(t, appsync.StateIdle, st.State)
	assert.NoError(t, st.LastError)
	assert.Equal(t, 2, st.Runs)
	assert.False(t, st.LastOK.IsZero())
}

func TestPoller_SlowRunDoesNotBlockTicks(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	f := &tickers{}
	p := appsync.New(func(context.Context) error {
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	}, time.Minute, f.New)

	p.Start(context.Background())
	f.last().ch <- time.Now()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		st := p.Status()
		return st.InFlight == 1 && st.State == appsync.StateRunning
	}, time.Second, 5*time.Millisecond)

	close(release)
	p.Stop()
	p.Wait()
	assert.Equal(t, 0, p.Status().InFlight)
}

func TestPoller_RestartAfterStop(t *testing.T) {
	f := &tickers{}
	p := appsync.New(func(context.Context) error { return nil }, time.Minute, f.New)

	require.True(t, p.Start(context.Background()))
	p.Stop()
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.created, 2)
}

func TestPoller_ContextCancelStopsLoop(t *testing.T) {
	f := &tickers{}
	p := appsync.New(func(context.Context) error { return nil }, time.Minute, f.New)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, f.last().stopped.Load, time.Second, 5*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", appsync.StateIdle.String())
	assert.Equal(t, "syncing", appsync.StateRunning.String())
	assert.Equal(t, "error", appsync.StateError.String())
}
