package interfaces

import "context"

// Logger is the leveled logger handed to repositories, the publisher, the
// live server and command handlers. Messages are event names such as
// "posts.load.completed"; args are alternating key/value pairs.
// The method set matches github.com/goliatone/go-logger.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out loggers by module name, e.g. "freeze.posts".
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can carry persistent fields
// such as the collection or route being processed.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
