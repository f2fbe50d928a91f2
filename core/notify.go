package core

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelInfo    NotificationLevel = "info"
)

// Notifier is any sink for user facing notifications (toasts, banners, terminal lines...).
// Notify is fire-and-forget.
type Notifier interface {
	Notify(message string, level NotificationLevel)
}

// NotifierFunc adapts a plain function to a Notifier.
type NotifierFunc func(message string, level NotificationLevel)

func (fn NotifierFunc) Notify(message string, level NotificationLevel) { fn(message, level) }
