// Package logger defines the small logging interface the rest of the
// module depends on, so packages never import zap directly.
package logger

// Logger is a leveled, key/value logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Nop discards everything. Useful as a default and in tests.
type Nop struct{}

var _ Logger = Nop{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
