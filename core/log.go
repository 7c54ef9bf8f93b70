package core

// Logger is any leveled logger.
// Implementations may inspect args for known types (eg. a logged-in staff
// account) and report them to an error tracker.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
