package canister

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// TestEvents_ProvideAndResolve verifies registration and construction emit
// events, and cache hits stay silent.
func TestEvents_ProvideAndResolve(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	j := &journal{}

	c := New(WithLogger(rec))
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))

	events := rec.snapshot()
	require.Len(t, events, 2)
	pe, ok := events[1].(ProvidedEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"*canister.svcA"}, pe.Keys)
	assert.Equal(t, "singleton", pe.Lifetime)
	assert.Contains(t, pe.Origin, "helpers_test.go")

	_, err := Resolve[*svcA](c)
	require.NoError(t, err)
	_, err = Resolve[*svcA](c)
	require.NoError(t, err)

	resolved := rec.count(func(e Event) bool {
		re, ok := e.(ResolvedEvent)
		return ok && re.Key == "*canister.svcA"
	})
	assert.Equal(t, 1, resolved, "cache hit must not emit a second ResolvedEvent")
}

// TestEvents_ResolveFailure verifies a failed build carries the error on its
// ResolvedEvent.
func TestEvents_ResolveFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := New(WithLogger(rec))
	require.NoError(t, c.Provide(func() (*memCache, error) {
		return nil, assert.AnError
	}))

	_, err := Resolve[*memCache](c)
	require.Error(t, err)

	failures := rec.count(func(e Event) bool {
		re, ok := e.(ResolvedEvent)
		return ok && re.Err != nil
	})
	assert.Equal(t, 1, failures)
}

// TestEvents_Lifecycle verifies start and stop emit one event per instance
// with hooks, and none for hookless instances.
func TestEvents_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	j := &journal{}

	c := New(WithLogger(rec))
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA, Eager()))
	require.NoError(t, c.Provide(newCloserSvc, Eager())) // no hooks, no Starter

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))

	started := rec.count(func(e Event) bool { _, ok := e.(StartedEvent); return ok })
	stopped := rec.count(func(e Event) bool { _, ok := e.(StoppedEvent); return ok })
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)

	for _, e := range rec.snapshot() {
		if se, ok := e.(StartedEvent); ok {
			assert.Equal(t, "*canister.svcA", se.Key)
			assert.NoError(t, se.Err)
		}
	}
}

// TestEvents_Scope verifies scope creation and closing emit named events.
func TestEvents_Scope(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := New(WithLogger(rec))

	s := c.NewScope("request-42")
	require.NoError(t, s.Close(context.Background()))

	var created, closed int
	for _, e := range rec.snapshot() {
		switch ev := e.(type) {
		case ScopeCreatedEvent:
			created++
			assert.Equal(t, "request-42", ev.Scope)
		case ScopeClosedEvent:
			closed++
			assert.Equal(t, "request-42", ev.Scope)
			assert.NoError(t, ev.Err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, closed)
}

// TestEvents_ScopedResolveNamesScope verifies ResolvedEvent carries the scope
// name for scoped builds.
func TestEvents_ScopedResolveNamesScope(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := New(WithLogger(rec))
	require.NoError(t, c.Provide(newMemCache, Scoped()))

	s := c.NewScope("job-1")
	defer s.Close(context.Background())

	_, err := Resolve[*memCache](s)
	require.NoError(t, err)

	scoped := rec.count(func(e Event) bool {
		re, ok := e.(ResolvedEvent)
		return ok && re.Scope == "job-1"
	})
	assert.Equal(t, 1, scoped)
}

// TestTeeLogger verifies fan-out reaches every logger in order.
func TestTeeLogger(t *testing.T) {
	t.Parallel()

	first := &recorder{}
	second := &recorder{}
	tee := TeeLogger(first, second, NopLogger{})

	tee.LogEvent(ScopeCreatedEvent{Scope: "x"})

	require.Len(t, first.snapshot(), 1)
	require.Len(t, second.snapshot(), 1)
	assert.Equal(t, first.snapshot(), second.snapshot())
}
