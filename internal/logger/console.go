package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes levelled key-value logs through charmbracelet/log
type ConsoleLogger struct {
	logger *log.Logger
}

// NewConsoleLogger creates a console logger. An empty or unknown level
// falls back to info; a nil writer means stderr.
func NewConsoleLogger(w io.Writer, level string) *ConsoleLogger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return &ConsoleLogger{
		logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           lvl,
		}),
	}
}

func (c *ConsoleLogger) Debug(msg string, keyvals ...any) { c.logger.Debug(msg, keyvals...) }
func (c *ConsoleLogger) Info(msg string, keyvals ...any)  { c.logger.Info(msg, keyvals...) }
func (c *ConsoleLogger) Warn(msg string, keyvals ...any)  { c.logger.Warn(msg, keyvals...) }
func (c *ConsoleLogger) Error(msg string, keyvals ...any) { c.logger.Error(msg, keyvals...) }
