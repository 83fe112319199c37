package core

// Logger is any leveled logger that can ship errors to an error tracker.
// Implementations may inspect args for known types (eg. a logged-in account)
// to enrich reports.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
