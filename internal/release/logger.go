package release

// Logger provides structured logging for install operations.
// The method set matches github.com/charmbracelet/log so a *log.Logger can
// be passed directly.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg interface{}, keyvals ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg interface{}, keyvals ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg interface{}, keyvals ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg interface{}, keyvals ...interface{})
}

// noopLogger is the default logger used when none is provided.
type noopLogger struct{}

func (n *noopLogger) Debug(msg interface{}, keyvals ...interface{}) {}
func (n *noopLogger) Info(msg interface{}, keyvals ...interface{})  {}
func (n *noopLogger) Warn(msg interface{}, keyvals ...interface{})  {}
func (n *noopLogger) Error(msg interface{}, keyvals ...interface{}) {}

func defaultLogger() Logger {
	return &noopLogger{}
}
