package hooks

import "time"

// DirectiveEvent describes one directive's application for logging.
type DirectiveEvent struct {
	Unit       string
	Kind       Kind
	Key        string
	ScopeLevel int
	Duration   time.Duration
	Err        error
}

// Logger records directive events.
type Logger interface {
	LogDirective(DirectiveEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(DirectiveEvent)

// LogDirective implements Logger.
func (f LoggerFunc) LogDirective(event DirectiveEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogDirective(DirectiveEvent) {}
