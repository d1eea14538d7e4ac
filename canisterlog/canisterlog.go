// Package canisterlog bridges canister container events into zerolog.
// Registration and build events log at debug level, lifecycle transitions at
// info, and anything carrying an error at error level.
package canisterlog

import (
	"github.com/rs/zerolog"

	"canister"
)

type zeroLogger struct {
	log zerolog.Logger
}

// New returns a canister.Logger that writes container events through the
// given zerolog logger:
//
//	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	c := canister.New(canister.WithLogger(canisterlog.New(log)))
func New(log zerolog.Logger) canister.Logger {
	return zeroLogger{log: log}
}

// LogEvent implements canister.Logger.
func (l zeroLogger) LogEvent(e canister.Event) {
	switch ev := e.(type) {
	case canister.ProvidedEvent:
		l.log.Debug().
			Strs("keys", ev.Keys).
			Strs("groups", ev.Groups).
			Str("lifetime", ev.Lifetime).
			Str("origin", ev.Origin).
			Msg("component provided")
	case canister.ResolvedEvent:
		evt := l.log.Debug()
		if ev.Err != nil {
			evt = l.log.Error().Err(ev.Err)
		}
		if ev.Scope != "" {
			evt = evt.Str("scope", ev.Scope)
		}
		evt.Str("key", ev.Key).
			Dur("duration", ev.Duration).
			Msg("component built")
	case canister.StartedEvent:
		evt := l.log.Info()
		if ev.Err != nil {
			evt = l.log.Error().Err(ev.Err)
		}
		evt.Str("key", ev.Key).
			Dur("duration", ev.Duration).
			Msg("component started")
	case canister.StoppedEvent:
		evt := l.log.Info()
		if ev.Err != nil {
			evt = l.log.Error().Err(ev.Err)
		}
		evt.Str("key", ev.Key).
			Dur("duration", ev.Duration).
			Msg("component stopped")
	case canister.ScopeCreatedEvent:
		l.log.Debug().Str("scope", ev.Scope).Msg("scope created")
	case canister.ScopeClosedEvent:
		evt := l.log.Debug()
		if ev.Err != nil {
			evt = l.log.Error().Err(ev.Err)
		}
		evt.Str("scope", ev.Scope).Msg("scope closed")
	}
}
