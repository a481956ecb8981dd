// Package logging sets up the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps enabled. The writer defaults to
// [os.Stderr].
func New(w io.Writer, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "playlistarr",
	})
	logger.SetLevel(lvl)
	return logger, nil
}

// Discard returns a logger that drops everything, for tests and optional loggers.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component returns a child logger tagged with the component name.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", name)
}

// CronLogger adapts a [log.Logger] to the logger interface expected by robfig/cron.
type CronLogger struct {
	L *log.Logger
}

// Info logs routine scheduler messages at debug level.
func (c CronLogger) Info(msg string, keysAndValues ...any) {
	c.L.Debug(msg, keysAndValues...)
}

// Error logs scheduler errors.
func (c CronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.L.Error(msg, append(keysAndValues, "err", err)...)
}
