// Package refresh drives periodic refreshes of a mounted view.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/trezcool/gradebook/core"
)

const DefaultInterval = 15 * time.Second

type Config struct {
	Interval  time.Duration
	Enabled   bool
	OnRefresh func(ctx context.Context) error
}

type Option func(*Timer)

// WithClock sets the time source, clock.NewMock() in tests.
func WithClock(clk clock.Clock) Option {
	return func(t *Timer) { t.clock = clk }
}

func WithLogger(logger core.Logger) Option {
	return func(t *Timer) { t.logger = logger }
}

// Timer calls OnRefresh every Interval while enabled.
// Invocations never overlap: ticks firing while OnRefresh runs are dropped.
//
// Timer methods block until a running OnRefresh returns, so OnRefresh must not call them.
type Timer struct {
	mu        sync.Mutex
	clock     clock.Clock
	logger    core.Logger
	onRefresh func(ctx context.Context) error
	interval  time.Duration
	enabled   bool
	stopped   bool

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, opts ...Option) *Timer {
	t := &Timer{
		clock:     clock.New(),
		logger:    core.NopLogger(),
		onRefresh: cfg.OnRefresh,
		interval:  cfg.Interval,
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.onRefresh == nil {
		t.onRefresh = func(context.Context) error { return nil }
	}
	for _, opt := range opts {
		opt(t)
	}
	if cfg.Enabled {
		t.enabled = true
		t.start()
	}
	return t
}

func (t *Timer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetEnabled starts or cancels the timer. Once it returns false, no tick fires anymore.
func (t *Timer) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.enabled == enabled {
		return
	}
	t.enabled = enabled
	if enabled {
		t.start()
	} else {
		t.halt()
	}
}

// SetInterval changes the period; a running timer restarts with it.
// A non positive d resets the interval to DefaultInterval.
func (t *Timer) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval == d {
		return
	}
	t.interval = d
	if t.enabled && !t.stopped {
		t.halt()
		t.start()
	}
}

// Stop tears the timer down for good. It is safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.enabled {
		t.halt()
	}
	t.enabled = false
}

// start must be called with mu held.
func (t *Timer) start() {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := t.clock.Ticker(t.interval) // created before returning so that a mocked clock sees it
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go t.loop(ctx, ticker, done)
}

// halt must be called with mu held.
func (t *Timer) halt() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}

func (t *Timer) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if err := t.onRefresh(ctx); err != nil && ctx.Err() == nil {
				t.logger.Error("refresh: tick failed", err)
			}
			// drop the tick that fired while refreshing
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}
