package canister

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Start
// -----------------------------------------------------------------------------

// TestStart_OrderAndFreeze verifies Start brings instances up in
// instantiation order and freezes registration.
func TestStart_OrderAndFreeze(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))
	require.NoError(t, c.Provide(newSvcB))
	require.NoError(t, c.Provide(newSvcC, Eager()))

	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{
		"build:a", "build:b", "build:c",
		"start:a", "start:b", "start:c",
	}, j.list())

	assert.ErrorIs(t, c.Provide(newMemCache), ErrStarted)
	assert.ErrorIs(t, c.Start(context.Background()), ErrStarted)
}

// TestStart_EagerOnly verifies only Eager singletons build during Start; the
// rest stay lazy.
func TestStart_EagerOnly(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA, Eager()))
	require.NoError(t, c.Provide(newSvcB))

	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{"build:a", "start:a"}, j.list())
}

// TestStart_ValidatesFirst verifies a broken graph fails Start before
// anything is constructed.
func TestStart_ValidatesFirst(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcB, Eager())) // depends on the missing *svcA

	err := c.Start(context.Background())
	var me MissingError
	require.ErrorAs(t, err, &me)
	assert.Empty(t, j.list())
}

// TestStart_HookFailureUnwinds verifies a failing start hook stops the
// already-started prefix in reverse and terminally stops the container.
func TestStart_HookFailureUnwinds(t *testing.T) {
	t.Parallel()

	j := &journal{}
	bErr := errors.New("b refused to start")

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))
	require.NoError(t, c.Provide(func(j *journal, a *svcA) *svcB {
		j.add("build:b")
		return &svcB{lifeTracker: &lifeTracker{name: "b", j: j, startErr: bErr}, a: a}
	}, Eager()))

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, bErr)

	var le LifecycleError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "start", le.Phase)

	assert.Equal(t, []string{"build:a", "build:b", "start:a", "stop:a"}, j.list())

	// The container is spent: it cannot be started again.
	assert.ErrorIs(t, c.Start(context.Background()), ErrStarted)
}

// TestStart_OptionHooksBeforeStarter verifies WithStart hooks run before the
// instance's own Starter method.
func TestStart_OptionHooksBeforeStarter(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA, Eager(), WithStart(func(ctx context.Context, a *svcA) error {
		j.add("hook:a")
		return nil
	})))

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"build:a", "hook:a", "start:a"}, j.list())
}

// TestStart_LazyAfterStart verifies singletons built after Start run their
// start hooks immediately.
func TestStart_LazyAfterStart(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))

	require.NoError(t, c.Start(context.Background()))
	assert.Empty(t, j.list())

	_, err := Resolve[*svcA](c)
	require.NoError(t, err)
	assert.Equal(t, []string{"build:a", "start:a"}, j.list())
}

//
// -----------------------------------------------------------------------------
// Stop
// -----------------------------------------------------------------------------

// TestStop_ReverseOrderAndIdempotent verifies Stop unwinds in reverse and is
// a no-op the second time, or before Start.
func TestStop_ReverseOrderAndIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &journal{}

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))
	require.NoError(t, c.Provide(newSvcB))
	require.NoError(t, c.Provide(newSvcC, Eager()))

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))

	assert.Equal(t, []string{
		"build:a", "build:b", "build:c",
		"start:a", "start:b", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, j.list())
}

// TestStop_BeforeStart verifies stopping a never-started container returns
// nil without side effects.
func TestStop_BeforeStart(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Provide(newMemCache))
	assert.NoError(t, c.Stop(context.Background()))
}

// TestStop_CollectsErrors verifies Stop keeps unwinding past failures and
// joins every error.
func TestStop_CollectsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &journal{}

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(func(j *journal) *svcA {
		return &svcA{lifeTracker: &lifeTracker{name: "a", j: j, stopErr: errors.New("a stuck")}}
	}, Eager()))
	require.NoError(t, c.Provide(func(j *journal, a *svcA) *svcB {
		return &svcB{lifeTracker: &lifeTracker{name: "b", j: j, stopErr: errors.New("b stuck")}, a: a}
	}, Eager()))

	require.NoError(t, c.Start(ctx))

	err := c.Stop(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a stuck")
	assert.Contains(t, err.Error(), "b stuck")
}

//
// -----------------------------------------------------------------------------
// Close and Run
// -----------------------------------------------------------------------------

// TestClose_ReleasesClosers verifies constructor-built io.Closers are closed,
// while provided values and instances with stop handling are left alone.
func TestClose_ReleasesClosers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &journal{}

	ownedByCaller := &closerSvc{j: &journal{}}

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newCloserSvc))
	require.NoError(t, c.ProvideValue(ownedByCaller, Name("external")))

	_, err := Resolve[*closerSvc](c)
	require.NoError(t, err)

	require.NoError(t, c.Close(ctx))

	assert.Equal(t, []string{"close:closer"}, j.list())
	assert.Empty(t, ownedByCaller.j.list())

	// Closed is terminal.
	assert.ErrorIs(t, c.Close(ctx), ErrClosed)
	_, err = Resolve[*closerSvc](c)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Validate(), ErrClosed)
}

// TestClose_SkipsCloserWithStopHook verifies explicit stop handling disables
// the automatic io.Closer pass for that instance.
func TestClose_SkipsCloserWithStopHook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &journal{}

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newCloserSvc, WithStop(func(ctx context.Context, s *closerSvc) error {
		s.j.add("hook-stop:closer")
		return nil
	})))

	require.NoError(t, c.Start(ctx))
	_, err := Resolve[*closerSvc](c)
	require.NoError(t, err)

	require.NoError(t, c.Close(ctx))
	assert.Equal(t, []string{"hook-stop:closer"}, j.list())
}

// TestRun_ContextCancel verifies Run starts, waits for cancellation and shuts
// everything down.
func TestRun_ContextCancel(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New(WithShutdownTimeout(time.Second))
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA, Eager()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Give Run a moment to start, then pull the plug.
	require.Eventually(t, func() bool {
		return len(j.list()) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, []string{"build:a", "start:a", "stop:a"}, j.list())
}

// TestRun_StartFailure verifies Run tears down and reports when Start fails.
func TestRun_StartFailure(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Provide(func(*spareCache) *memCache { return newMemCache() }))

	err := c.Run(context.Background())
	var me MissingError
	require.ErrorAs(t, err, &me)
}

//
// -----------------------------------------------------------------------------
// Health checks
// -----------------------------------------------------------------------------

// TestHealthCheck verifies only constructed instances are polled and failures
// come back joined, naming the instance.
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &journal{}

	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(func(j *journal) *svcA {
		return &svcA{lifeTracker: &lifeTracker{name: "a", j: j, pingErr: errors.New("degraded")}}
	}))

	// Nothing built yet: nothing to poll.
	require.NoError(t, c.HealthCheck(ctx))

	_, err := Resolve[*svcA](c)
	require.NoError(t, err)

	err = c.HealthCheck(ctx)
	require.Error(t, err)
	var le LifecycleError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "health", le.Phase)
	assert.Contains(t, le.Key, "svcA")
}
