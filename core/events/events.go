// Package events implements the in-process publish/subscribe bus used to
// tell every mounted grade view that a grade changed.
package events

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

type Name string

// Grade event names
const (
	GradeCreatedEvent Name = "GRADE_CREATED"
	GradeUpdatedEvent Name = "GRADE_UPDATED"
	GradeDeletedEvent Name = "GRADE_DELETED"
)

// Payload is the closed set of event payloads.
type Payload interface {
	EventName() Name
	payload()
}

type (
	GradeCreated struct {
		StudentID int `json:"student_id"`
	}

	GradeUpdated struct {
		GradeID   int `json:"grade_id"`
		StudentID int `json:"student_id"`
	}

	GradeDeleted struct {
		GradeID int `json:"grade_id"`
	}
)

func (GradeCreated) EventName() Name { return GradeCreatedEvent }
func (GradeUpdated) EventName() Name { return GradeUpdatedEvent }
func (GradeDeleted) EventName() Name { return GradeDeletedEvent }

func (GradeCreated) payload() {}
func (GradeUpdated) payload() {}
func (GradeDeleted) payload() {}

type Event struct {
	Name    Name
	Payload Payload
}

// Handler reacts to an event. A returned error is logged and does not stop the other handlers.
type Handler func(evt Event) error

type subscription struct {
	name    Name
	handler Handler
	active  bool
}

type Bus struct {
	mu     sync.Mutex
	subs   map[Name][]*subscription
	logger core.Logger
}

func New(logger core.Logger) *Bus {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Bus{
		subs:   make(map[Name][]*subscription),
		logger: logger,
	}
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = New(nil)
	})
	return defaultBus
}

// Subscribe registers handler for name and returns the func removing exactly this registration.
// The returned func may be called any number of times.
func (b *Bus) Subscribe(name Name, handler Handler) (unsubscribe func()) {
	sub := &subscription{name: name, handler: handler, active: true}

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub.active = false
	subs := b.subs[sub.name]
	for i, s := range subs {
		if s == sub {
			// copy so that snapshots taken by running emits stay untouched
			rest := make([]*subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			if len(rest) == 0 {
				delete(b.subs, sub.name)
			} else {
				b.subs[sub.name] = rest
			}
			return
		}
	}
}

// Len returns the number of handlers registered for name.
func (b *Bus) Len(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Emit synchronously calls every handler registered for name, in registration order.
// Handlers may subscribe or unsubscribe while it runs; one removed meanwhile is not called.
func (b *Bus) Emit(name Name, payload Payload) {
	b.mu.Lock()
	snapshot := b.subs[name]
	b.mu.Unlock()

	evt := Event{Name: name, Payload: payload}
	for _, sub := range snapshot {
		if !b.isActive(sub) {
			continue
		}
		if err := b.call(sub.handler, evt); err != nil {
			b.logger.Error(fmt.Sprintf("events: %s handler failed", name), err)
		}
	}
}

// Publish emits payload under its own event name.
func (b *Bus) Publish(payload Payload) {
	b.Emit(payload.EventName(), payload)
}

func (b *Bus) isActive(sub *subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sub.active
}

func (b *Bus) call(handler Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return handler(evt)
}
