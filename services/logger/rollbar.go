package logsvc

import (
	"log"
	"os"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/gradebook/core"
)

// RollbarLogger prints to a std logger and mirrors every message to Rollbar when enabled.
// Debug messages are dropped unless the app runs in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// New returns a RollbarLogger printing to stderr, e.g. New("API : ", conf).
func New(prefix string, conf *core.Config) *RollbarLogger {
	return NewRollbarLogger(log.New(os.Stderr, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Instructor
func (l RollbarLogger) prepare(msg string, args []interface{}) (rbArgs, stdArgs []interface{}) {
	var personSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	stdArgs = make([]interface{}, 0, len(args))
	for _, arg := range args {
		ins, ok := arg.(core.Instructor)
		if !ok {
			rbArgs = append(rbArgs, arg)
			stdArgs = append(stdArgs, arg)
			continue
		}
		if !personSet { // only set one person
			rollbar.SetPerson(strconv.Itoa(ins.ID), ins.Name, "")
			personSet = true
		}
		stdArgs = append(stdArgs, "instructor #"+strconv.Itoa(ins.ID))
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return rbArgs, stdArgs
}

func (l RollbarLogger) log(report func(...interface{}), level, msg string, args []interface{}) {
	rbArgs, stdArgs := l.prepare(msg, args)
	report(rbArgs...)
	l.std.Println(level + " " + msg)
	for _, arg := range stdArgs {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.log(rollbar.Debug, "DEBUG", msg, args)
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.Info, "INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.Warning, "WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.Error, "ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.Critical, "FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
