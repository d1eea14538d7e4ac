package canister

import "time"

// Event is a container lifecycle notification. Concrete event types in this
// package are the only implementations; a Logger switches on them.
type Event interface {
	event()
}

// ProvidedEvent is emitted once per successful registration.
type ProvidedEvent struct {
	// Keys lists every type/qualifier the registration offers.
	Keys []string

	// Groups lists the value groups the registration feeds, if any.
	Groups []string

	// Lifetime is "singleton", "transient" or "scoped".
	Lifetime string

	// Origin is the constructor's source location, or "value".
	Origin string
}

// ResolvedEvent is emitted each time a constructor runs. Cache hits do not
// emit events.
type ResolvedEvent struct {
	// Key is the registration's primary key in display form.
	Key string

	// Scope names the owning scope, empty for the container root.
	Scope string

	// Duration covers the constructor call and its dependency resolution.
	Duration time.Duration

	// Err is the failure, if the constructor or a dependency failed.
	Err error
}

// StartedEvent is emitted after an instance's start hooks run.
type StartedEvent struct {
	Key      string
	Duration time.Duration
	Err      error
}

// StoppedEvent is emitted after an instance's stop hooks and closers run.
type StoppedEvent struct {
	Key      string
	Duration time.Duration
	Err      error
}

// ScopeCreatedEvent is emitted by Container.NewScope and Scope.NewScope.
type ScopeCreatedEvent struct {
	Scope string
}

// ScopeClosedEvent is emitted when a scope is closed.
type ScopeClosedEvent struct {
	Scope string
	Err   error
}

func (ProvidedEvent) event()     {}
func (ResolvedEvent) event()     {}
func (StartedEvent) event()      {}
func (StoppedEvent) event()      {}
func (ScopeCreatedEvent) event() {}
func (ScopeClosedEvent) event()  {}

// Logger receives container events. Implementations must be safe for
// concurrent use and must not call back into the container.
type Logger interface {
	LogEvent(Event)
}

// NopLogger discards all events. It is the default.
type NopLogger struct{}

// LogEvent implements Logger.
func (NopLogger) LogEvent(Event) {}

type teeLogger struct {
	loggers []Logger
}

// TeeLogger fans every event out to each of the given loggers, in order.
func TeeLogger(loggers ...Logger) Logger {
	return teeLogger{loggers: loggers}
}

// LogEvent implements Logger.
func (t teeLogger) LogEvent(e Event) {
	for _, l := range t.loggers {
		l.LogEvent(e)
	}
}
