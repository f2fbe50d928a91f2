package notifysvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/tests"
)

func TestConsoleNotifier_Notify(t *testing.T) {
	var buf bytes.Buffer
	logger := &testutil.LogRecorder{}
	n := NewConsoleNotifier(&buf, logger)

	n.Notify("Grade updated successfully", core.LevelSuccess)
	n.Notify("Failed to load grades: timeout", core.LevelError)
	n.Notify("Refreshing", core.LevelInfo)
	n.Notify("odd", "custom")

	assert.Equal(t, "[ok] Grade updated successfully\n"+
		"[error] Failed to load grades: timeout\n"+
		"[info] Refreshing\n"+
		"[custom] odd\n", buf.String())
	assert.Equal(t, []string{"notified: Failed to load grades: timeout"}, logger.Logs("warn"))
}
