package notifysvc

import (
	"fmt"
	"io"
	"sync"

	"github.com/trezcool/gradebook/core"
)

var levelPrefixes = map[core.NotificationLevel]string{
	core.LevelSuccess: "[ok]",
	core.LevelError:   "[error]",
	core.LevelInfo:    "[info]",
}

// ConsoleNotifier prints notifications, one per line, and logs the errors.
type ConsoleNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger core.Logger
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(out io.Writer, logger core.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &ConsoleNotifier{out: out, logger: logger}
}

func (n *ConsoleNotifier) Notify(message string, level core.NotificationLevel) {
	prefix, ok := levelPrefixes[level]
	if !ok {
		prefix = "[" + string(level) + "]"
	}

	n.mu.Lock()
	_, _ = fmt.Fprintln(n.out, prefix, message)
	n.mu.Unlock()

	if level == core.LevelError {
		n.logger.Warn("notified: " + message)
	}
}
