package canister

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"reflect"
	"slices"
	"syscall"
	"time"
)

// Starter is detected on constructed instances: Start runs it when the
// container starts, after any WithStart hooks of the same registration.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is detected on constructed instances: Stop and Close run it in
// reverse instantiation order. An instance with a Stopper (or explicit stop
// hooks) is not auto-closed via io.Closer.
type Stopper interface {
	Stop(ctx context.Context) error
}

// HealthChecker is detected on constructed instances and polled by
// Container.HealthCheck.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func asIface[T any](v reflect.Value) (T, bool) {
	var zero T
	if !v.IsValid() || !v.CanInterface() {
		return zero, false
	}
	i, ok := v.Interface().(T)
	return i, ok
}

func callHook(ctx context.Context, hook reflect.Value, instance reflect.Value) error {
	rets := hook.Call([]reflect.Value{reflect.ValueOf(ctx), instance})
	if rets[0].IsNil() {
		return nil
	}
	return rets[0].Interface().(error)
}

// runStartHooks runs WithStart hooks, then the Starter interface, on a
// record's instances. It fails fast: the first error aborts the sequence.
func (c *Container) runStartHooks(ctx context.Context, rec *instanceRecord) error {
	p := rec.prov
	ran := false
	begin := time.Now()
	var err error
	for _, h := range p.startHooks {
		ran = true
		if hookErr := callHook(ctx, h, rec.vals[0]); hookErr != nil {
			err = LifecycleError{Key: p.display(), Phase: "start", Err: hookErr}
			break
		}
	}
	if err == nil {
		for _, v := range rec.vals {
			s, ok := asIface[Starter](v)
			if !ok {
				continue
			}
			ran = true
			if startErr := s.Start(ctx); startErr != nil {
				err = LifecycleError{Key: p.display(), Phase: "start", Err: startErr}
				break
			}
		}
	}
	if ran {
		c.log.LogEvent(StartedEvent{Key: p.display(), Duration: time.Since(begin), Err: err})
	}
	return err
}

// runStopHooks runs WithStop hooks in reverse, then the Stopper interface.
// Unlike start, stopping keeps going on errors and returns them joined.
func (c *Container) runStopHooks(ctx context.Context, rec *instanceRecord) error {
	p := rec.prov
	var errs []error
	ran := false
	begin := time.Now()
	for i := len(p.stopHooks) - 1; i >= 0; i-- {
		ran = true
		if err := callHook(ctx, p.stopHooks[i], rec.vals[0]); err != nil {
			errs = append(errs, LifecycleError{Key: p.display(), Phase: "stop", Err: err})
		}
	}
	for _, v := range rec.vals {
		s, ok := asIface[Stopper](v)
		if !ok {
			continue
		}
		ran = true
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, LifecycleError{Key: p.display(), Phase: "stop", Err: err})
		}
	}
	err := errors.Join(errs...)
	if ran {
		c.log.LogEvent(StoppedEvent{Key: p.display(), Duration: time.Since(begin), Err: err})
	}
	return err
}

// startRecordLocked runs start work for a freshly built instance while the
// resolution lock is held. Only reached for builds that happen after Start.
func (c *Container) startRecordLocked(ctx context.Context, rec *instanceRecord) error {
	if rec.started || rec.stopped {
		return nil
	}
	if err := c.runStartHooks(ctx, rec); err != nil {
		return err
	}
	rec.started = true
	return nil
}

func (c *Container) startRecord(ctx context.Context, rec *instanceRecord) error {
	c.mu.Lock()
	if rec.started || rec.stopped {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if err := c.runStartHooks(ctx, rec); err != nil {
		return err
	}
	c.mu.Lock()
	rec.started = true
	c.mu.Unlock()
	return nil
}

func (c *Container) stopRecord(ctx context.Context, rec *instanceRecord) error {
	c.mu.Lock()
	if rec.stopped {
		c.mu.Unlock()
		return nil
	}
	rec.stopped = true
	wasStarted := rec.started
	rec.started = false
	c.mu.Unlock()
	if !wasStarted {
		return nil
	}
	return c.runStopHooks(ctx, rec)
}

// closeRecord releases constructor-built resources via io.Closer. Instances
// with explicit stop handling (hooks or a Stopper) and provided values are
// left alone.
func (c *Container) closeRecord(rec *instanceRecord) error {
	p := rec.prov
	if p.isValue || len(p.stopHooks) > 0 {
		return nil
	}
	for _, v := range rec.vals {
		if _, ok := asIface[Stopper](v); ok {
			return nil
		}
	}
	var errs []error
	for _, v := range rec.vals {
		cl, ok := asIface[io.Closer](v)
		if !ok {
			continue
		}
		if err := cl.Close(); err != nil {
			errs = append(errs, LifecycleError{Key: p.display(), Phase: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// Start validates the graph, constructs eager singletons, freezes the
// container against further registration, and runs start hooks in
// instantiation order. The first hook failure stops the already-started
// prefix in reverse and is returned.
func (c *Container) Start(ctx context.Context) error {
	c.lcMu.Lock()
	defer c.lcMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started || c.stopped {
		c.mu.Unlock()
		return ErrStarted
	}
	if err := c.validateLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	rc := &resolveCtx{}
	for _, p := range c.providers {
		if !p.eager || p.lifetime != lifetimeSingleton {
			continue
		}
		if _, ok := c.built[p]; ok {
			continue
		}
		if _, err := c.instance(rc, offerRef{prov: p, off: p.offers[0]}, p.display()); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.started = true
	recs := slices.Clone(c.order)
	c.mu.Unlock()

	for i, rec := range recs {
		if err := c.startRecord(ctx, rec); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), c.shutdown)
			for j := i - 1; j >= 0; j-- {
				_ = c.stopRecord(stopCtx, recs[j])
			}
			cancel()
			c.mu.Lock()
			c.started = false
			c.stopped = true
			c.mu.Unlock()
			return err
		}
	}
	return nil
}

// Stop runs stop hooks in reverse instantiation order. Unlike Start it does
// not fail fast: every instance gets its chance to shut down, and the
// failures come back joined. A stopped container cannot be started again.
func (c *Container) Stop(ctx context.Context) error {
	c.lcMu.Lock()
	defer c.lcMu.Unlock()
	return c.stopAll(ctx)
}

func (c *Container) stopAll(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.stopped = true
	recs := slices.Clone(c.order)
	c.mu.Unlock()

	var errs []error
	for i := len(recs) - 1; i >= 0; i-- {
		if err := c.stopRecord(ctx, recs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops the container if needed, closes open scopes, releases
// constructor-built io.Closers in reverse instantiation order, and marks the
// container terminally closed.
func (c *Container) Close(ctx context.Context) error {
	c.lcMu.Lock()
	defer c.lcMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	var errs []error
	if err := c.stopAll(ctx); err != nil {
		errs = append(errs, err)
	}

	c.mu.Lock()
	c.closed = true
	scopes := slices.Clone(c.scopes)
	recs := slices.Clone(c.order)
	c.mu.Unlock()

	for i := len(scopes) - 1; i >= 0; i-- {
		if err := scopes[i].Close(ctx); err != nil && !errors.Is(err, ErrScopeClosed) {
			errs = append(errs, err)
		}
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if err := c.closeRecord(recs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run starts the container, blocks until the context is canceled or the
// process receives SIGINT or SIGTERM, then closes everything within the
// shutdown timeout. It is the main loop of a daemon built on a container.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), c.shutdown)
		defer cancel()
		_ = c.Close(closeCtx)
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), c.shutdown)
	defer cancel()
	return c.Close(closeCtx)
}

// HealthCheck polls every constructed instance implementing HealthChecker
// and returns the failures joined, each wrapped in a LifecycleError naming
// the instance. Instances are polled outside the resolution lock.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	recs := slices.Clone(c.order)
	c.mu.Unlock()

	var errs []error
	for _, rec := range recs {
		for _, v := range rec.vals {
			h, ok := asIface[HealthChecker](v)
			if !ok {
				continue
			}
			if err := h.HealthCheck(ctx); err != nil {
				errs = append(errs, LifecycleError{Key: rec.prov.display(), Phase: "health", Err: err})
			}
		}
	}
	return errors.Join(errs...)
}
