package kvault

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is the leveled sink every adapter writes to. The log/zap, log/slog
// and log/logrus packages wrap the usual stacks. Options.WithDefaults swaps a
// nil Logger for NopLogger, so adapters never nil-check it.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
