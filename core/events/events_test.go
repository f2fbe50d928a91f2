package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordLogger) Debug(string, ...interface{}) {}
func (l *recordLogger) Info(string, ...interface{})  {}
func (l *recordLogger) Warn(string, ...interface{})  {}
func (l *recordLogger) Fatal(string, ...interface{}) {}
func (l *recordLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestBus_EmitIsolatesFailures(t *testing.T) {
	tests := []struct {
		name  string
		first Handler
	}{
		{name: "error", first: func(Event) error { return errors.New("boom") }},
		{name: "panic", first: func(Event) error { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordLogger{}
			bus := New(logger)

			var calls []string
			bus.Subscribe(GradeDeletedEvent, func(evt Event) error {
				calls = append(calls, "first")
				return tt.first(evt)
			})
			var got Payload
			bus.Subscribe(GradeDeletedEvent, func(evt Event) error {
				calls = append(calls, "second")
				got = evt.Payload
				return nil
			})

			bus.Emit(GradeDeletedEvent, GradeDeleted{GradeID: 7})

			assert.Equal(t, []string{"first", "second"}, calls)
			assert.Equal(t, GradeDeleted{GradeID: 7}, got)
			assert.Len(t, logger.errors, 1)
		})
	}
}

func TestBus_RegistrationOrderAndNames(t *testing.T) {
	bus := New(nil)

	var calls []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.Subscribe(GradeCreatedEvent, func(Event) error {
			calls = append(calls, i)
			return nil
		})
	}
	var otherCalled bool
	bus.Subscribe(GradeUpdatedEvent, func(Event) error {
		otherCalled = true
		return nil
	})

	bus.Publish(GradeCreated{StudentID: 1})

	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.False(t, otherCalled)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := New(nil)

	var first, second int
	unsub := bus.Subscribe(GradeUpdatedEvent, func(Event) error {
		first++
		return nil
	})
	bus.Subscribe(GradeUpdatedEvent, func(Event) error {
		second++
		return nil
	})

	unsub()
	assert.NotPanics(t, unsub)
	assert.Equal(t, 1, bus.Len(GradeUpdatedEvent))

	bus.Publish(GradeUpdated{GradeID: 1, StudentID: 1})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBus_UnsubscribeDuringEmit(t *testing.T) {
	bus := New(nil)

	var calls []string
	var unsubSecond func()
	unsubFirst := bus.Subscribe(GradeDeletedEvent, func(Event) error {
		calls = append(calls, "first")
		unsubSecond()
		return nil
	})
	unsubSecond = bus.Subscribe(GradeDeletedEvent, func(Event) error {
		calls = append(calls, "second")
		return nil
	})
	bus.Subscribe(GradeDeletedEvent, func(Event) error {
		calls = append(calls, "third")
		// subscribing from a handler must not deadlock nor join the running emit
		bus.Subscribe(GradeDeletedEvent, func(Event) error {
			calls = append(calls, "late")
			return nil
		})
		return nil
	})

	bus.Emit(GradeDeletedEvent, GradeDeleted{GradeID: 1})
	assert.Equal(t, []string{"first", "third"}, calls)

	unsubFirst()
	calls = nil
	bus.Emit(GradeDeletedEvent, GradeDeleted{GradeID: 2})
	assert.Equal(t, []string{"third", "late"}, calls)
}

func TestBus_Concurrent(t *testing.T) {
	bus := New(nil)

	var (
		mu    sync.Mutex
		count int
	)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(GradeCreatedEvent, func(Event) error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
			bus.Publish(GradeCreated{StudentID: 1})
			unsub()
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.Len(GradeCreatedEvent))
	assert.GreaterOrEqual(t, count, 20)
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
