package testutil

import (
	"sync"

	"github.com/trezcool/gradebook/core"
)

type Notification struct {
	Message string
	Level   core.NotificationLevel
}

// NotificationRecorder is a core.Notifier keeping what it is told.
type NotificationRecorder struct {
	mu    sync.Mutex
	items []Notification
}

var _ core.Notifier = (*NotificationRecorder)(nil)

func (r *NotificationRecorder) Notify(message string, level core.NotificationLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Message: message, Level: level})
}

func (r *NotificationRecorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification{}, r.items...)
}

// Last returns the last notification, or a zero one.
func (r *NotificationRecorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

func (r *NotificationRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// LogRecorder is a core.Logger keeping the messages it logs, by level.
type LogRecorder struct {
	mu   sync.Mutex
	logs map[string][]string
}

var _ core.Logger = (*LogRecorder)(nil)

func (l *LogRecorder) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logs == nil {
		l.logs = make(map[string][]string)
	}
	l.logs[level] = append(l.logs[level], msg)
}

func (l *LogRecorder) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *LogRecorder) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *LogRecorder) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *LogRecorder) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *LogRecorder) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func (l *LogRecorder) Logs(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.logs[level]...)
}
