package types

// Logger defines the structured logging methods the library emits through.
//
// The signature matches zap.SugaredLogger's key-value style, so a sugared
// zap logger (or the slog adapter shipped with the library) satisfies it
// directly. Keys must be strings; values may be anything printable.
type Logger interface {
	// Debug logs fine-grained allocation and pipeline detail.
	Debug(msg string, keysAndValues ...any)

	// Info logs notable lifecycle events such as state transitions and
	// routing changes.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable problems, e.g. a failed lease renewal or a
	// dropped shard report.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures that need operator attention.
	Error(msg string, keysAndValues ...any)

	// Fatal logs the message and then terminates the process. The library
	// itself never calls it; it completes the surface so callers can pass
	// their full logger through unchanged.
	Fatal(msg string, keysAndValues ...any)
}
