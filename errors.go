package canister

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrStarted is returned when an operation requires a container that has
	// not been started yet (Provide, Apply, Start) but Start already ran.
	ErrStarted = errors.New("canister: container already started")

	// ErrClosed is returned from any operation on a container (or a scope
	// belonging to one) after Close.
	ErrClosed = errors.New("canister: container closed")

	// ErrScopeClosed is returned from any operation on a closed scope.
	ErrScopeClosed = errors.New("canister: scope closed")
)

// Path records the chain of keys that led to a resolution failure, outermost
// request first. It is embedded in resolution errors so the message can show
// where a missing or cyclic dependency was needed.
type Path []string

// String renders the path as "a -> b -> c".
func (p Path) String() string { return strings.Join(p, " -> ") }

func (p Path) suffix() string {
	if len(p) == 0 {
		return ""
	}
	return " (path: " + p.String() + ")"
}

// RegistrationError reports an invalid Provide or ProvideValue call: a
// malformed constructor signature, a bad option combination, or an invalid
// lifecycle hook. It is returned eagerly, at registration time.
type RegistrationError struct {
	// Origin is the constructor's source location when known.
	Origin string

	// Reason describes what was wrong.
	Reason string
}

// Error implements the error interface.
func (e RegistrationError) Error() string {
	if e.Origin == "" {
		return "canister: invalid registration: " + e.Reason
	}
	return "canister: invalid registration (" + e.Origin + "): " + e.Reason
}

// DuplicateError is returned when a registration offers a key (type plus
// qualifier) that an earlier registration already provides, or when a second
// registration for a type is marked Primary.
type DuplicateError struct {
	// Key is the conflicting type/qualifier in display form.
	Key string

	// Prior is the source location of the earlier registration.
	Prior string
}

// Error implements the error interface.
func (e DuplicateError) Error() string {
	msg := "canister: duplicate provider for " + e.Key
	if e.Prior != "" {
		msg += " (first registered at " + e.Prior + ")"
	}
	return msg
}

// MissingError is returned when no registration can satisfy a requested key.
type MissingError struct {
	// Key is the requested type/qualifier in display form.
	Key string

	// Path is the resolution chain that required the key.
	Path Path
}

// Error implements the error interface.
func (e MissingError) Error() string {
	return "canister: no provider for " + e.Key + e.Path.suffix()
}

// AmbiguityError is returned when an unqualified request matches several
// named candidates and none of them is marked Primary.
type AmbiguityError struct {
	// Key is the requested type in display form.
	Key string

	// Candidates lists the qualifiers of the competing registrations.
	Candidates []string

	// Path is the resolution chain that required the key.
	Path Path
}

// Error implements the error interface.
func (e AmbiguityError) Error() string {
	quoted := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		quoted[i] = strconv.Quote(c)
	}
	return "canister: ambiguous request for " + e.Key +
		": candidates " + strings.Join(quoted, ", ") +
		"; qualify the request with a name or mark one candidate Primary" +
		e.Path.suffix()
}

// CycleError is returned when resolution (or Validate) finds a dependency
// cycle. Path holds the full cycle, first key repeated at the end.
type CycleError struct {
	Path Path
}

// Error implements the error interface.
func (e CycleError) Error() string {
	return "canister: dependency cycle: " + e.Path.String()
}

// ScopeError reports a scope misuse: resolving a Scoped registration directly
// from the container root, or a singleton depending on a scoped instance (a
// captive dependency that would outlive its scope).
type ScopeError struct {
	// Key is the scoped registration in display form.
	Key string

	// Reason describes the misuse.
	Reason string

	// Path is the resolution chain, when the error occurred during resolution.
	Path Path
}

// Error implements the error interface.
func (e ScopeError) Error() string {
	return "canister: " + e.Reason + ": " + e.Key + e.Path.suffix()
}

// BuildError wraps an error returned by a constructor during resolution.
type BuildError struct {
	// Key is the registration whose constructor failed.
	Key string

	// Path is the resolution chain that reached the constructor.
	Path Path

	// Err is the constructor's error.
	Err error
}

// Error implements the error interface.
func (e BuildError) Error() string {
	return "canister: build " + e.Key + ": " + e.Err.Error() + e.Path.suffix()
}

// Unwrap exposes the constructor's error to errors.Is / errors.As.
func (e BuildError) Unwrap() error { return e.Err }

// LifecycleError wraps an error from a start hook, stop hook, closer, or
// health check, identifying the instance and the phase that failed.
type LifecycleError struct {
	// Key is the owning registration in display form.
	Key string

	// Phase is one of "start", "stop", "close", "health".
	Phase string

	// Err is the hook's error.
	Err error
}

// Error implements the error interface.
func (e LifecycleError) Error() string {
	return "canister: " + e.Phase + " " + e.Key + ": " + e.Err.Error()
}

// Unwrap exposes the hook's error to errors.Is / errors.As.
func (e LifecycleError) Unwrap() error { return e.Err }
