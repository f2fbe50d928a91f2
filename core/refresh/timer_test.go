package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

func countingRefresh(calls *int32) func(context.Context) error {
	return func(context.Context) error {
		atomic.AddInt32(calls, 1)
		return nil
	}
}

func callsEqual(calls *int32, want int32) func() bool {
	return func() bool { return atomic.LoadInt32(calls) == want }
}

func TestTimer_FiresOncePerIntervalAndStopsWhenDisabled(t *testing.T) {
	mock := clock.NewMock()
	var calls int32
	tm := New(Config{Interval: 15 * time.Second, Enabled: true, OnRefresh: countingRefresh(&calls)}, WithClock(mock))
	defer tm.Stop()

	mock.Add(14999 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	mock.Add(time.Millisecond)
	assert.Eventually(t, callsEqual(&calls, 1), waitFor, tick)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	tm.SetEnabled(false)
	assert.False(t, tm.Enabled())
	for i := 0; i < 10; i++ {
		mock.Add(time.Hour)
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTimer_DisabledAtStart(t *testing.T) {
	mock := clock.NewMock()
	var calls int32
	tm := New(Config{Interval: 15 * time.Second, OnRefresh: countingRefresh(&calls)}, WithClock(mock))
	defer tm.Stop()

	mock.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	tm.SetEnabled(true)
	mock.Add(15 * time.Second)
	assert.Eventually(t, callsEqual(&calls, 1), waitFor, tick)
}

func TestTimer_DoesNotOverlap(t *testing.T) {
	mock := clock.NewMock()
	var calls, running, maxRunning int32
	release := make(chan struct{})
	tm := New(Config{
		Interval: 15 * time.Second,
		Enabled:  true,
		OnRefresh: func(context.Context) error {
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			atomic.AddInt32(&calls, 1)
			<-release
			atomic.AddInt32(&running, -1)
			return nil
		},
	}, WithClock(mock))
	defer tm.Stop()

	mock.Add(15 * time.Second)
	assert.Eventually(t, callsEqual(&calls, 1), waitFor, tick)

	// the refresh is still running
	for i := 0; i < 5; i++ {
		mock.Add(15 * time.Second)
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	close(release)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 0 }, waitFor, tick)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "ticks fired during a refresh must be dropped")
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))

	mock.Add(15 * time.Second)
	assert.Eventually(t, callsEqual(&calls, 2), waitFor, tick)
}

func TestTimer_KeepsTickingAfterFailure(t *testing.T) {
	mock := clock.NewMock()
	var calls int32
	tm := New(Config{
		Interval: time.Second,
		Enabled:  true,
		OnRefresh: func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("network down")
		},
	}, WithClock(mock))
	defer tm.Stop()

	for want := int32(1); want <= 3; want++ {
		mock.Add(time.Second)
		assert.Eventually(t, callsEqual(&calls, want), waitFor, tick)
	}
}

func TestTimer_SetInterval(t *testing.T) {
	mock := clock.NewMock()
	var calls int32
	tm := New(Config{Interval: 15 * time.Second, Enabled: true, OnRefresh: countingRefresh(&calls)}, WithClock(mock))
	defer tm.Stop()

	tm.SetInterval(5 * time.Second)
	assert.Equal(t, 5*time.Second, tm.Interval())

	mock.Add(5 * time.Second)
	assert.Eventually(t, callsEqual(&calls, 1), waitFor, tick)
	mock.Add(5 * time.Second)
	assert.Eventually(t, callsEqual(&calls, 2), waitFor, tick)

	tm.SetInterval(0)
	assert.Equal(t, DefaultInterval, tm.Interval())
}

func TestTimer_StopCancelsRunningRefresh(t *testing.T) {
	mock := clock.NewMock()
	started := make(chan struct{})
	var cancelled int32
	tm := New(Config{
		Interval: time.Second,
		Enabled:  true,
		OnRefresh: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			atomic.StoreInt32(&cancelled, 1)
			return ctx.Err()
		},
	}, WithClock(mock))

	mock.Add(time.Second)
	<-started
	tm.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))

	// stopped timers cannot be re-enabled
	tm.SetEnabled(true)
	assert.False(t, tm.Enabled())
	assert.NotPanics(t, tm.Stop)
}
