package logger

// Logger defines the interface for logging
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// NoopLogger implements a no-op logger
type NoopLogger struct{}

func (l *NoopLogger) Debug(msg string, keyvals ...any) {}
func (l *NoopLogger) Info(msg string, keyvals ...any)  {}
func (l *NoopLogger) Warn(msg string, keyvals ...any)  {}
func (l *NoopLogger) Error(msg string, keyvals ...any) {}

// DefaultLogger is the default logger instance
var DefaultLogger Logger = &NoopLogger{}

// SetLogger sets the default logger
func SetLogger(l Logger) {
	if l == nil {
		l = &NoopLogger{}
	}
	DefaultLogger = l
}

// Debug logs at debug level using the default logger
func Debug(msg string, keyvals ...any) {
	DefaultLogger.Debug(msg, keyvals...)
}

// Info logs at info level using the default logger
func Info(msg string, keyvals ...any) {
	DefaultLogger.Info(msg, keyvals...)
}

// Warn logs at warn level using the default logger
func Warn(msg string, keyvals ...any) {
	DefaultLogger.Warn(msg, keyvals...)
}

// Error logs at error level using the default logger
func Error(msg string, keyvals ...any) {
	DefaultLogger.Error(msg, keyvals...)
}
