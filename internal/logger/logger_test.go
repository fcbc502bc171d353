package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "warn")

	l.Info("hidden", "k", "v")
	assert.Empty(t, buf.String())

	l.Warn("shown", "entity", "person_1")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "person_1")
}

func TestConsoleLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "chatty")

	l.Debug("hidden")
	assert.Empty(t, buf.String())
	l.Info("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetLoggerNilFallsBackToNoop(t *testing.T) {
	prev := DefaultLogger
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	assert.IsType(t, &NoopLogger{}, DefaultLogger)
	Error("nothing happens")
}
