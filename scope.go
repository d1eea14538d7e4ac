package canister

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// Scope is a resolution context with its own cache for Scoped registrations,
// typically one per request, job or session. Scopes share the container's
// registrations and singletons; only Scoped instances live and die with the
// scope. Close releases them in reverse instantiation order.
type Scope struct {
	name     string
	c        *Container
	parent   *Scope
	built    map[*provider]*buildResult
	order    []*instanceRecord
	children []*Scope
	closed   bool
}

// NewScope opens a scope on the container root. An empty name gets a
// generated one. Scopes left open when the container closes are closed with
// it.
func (c *Container) NewScope(name string) *Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newScopeLocked(nil, name)
}

// NewScope opens a nested scope. Nested scopes cache their own Scoped
// instances; nothing is inherited from the parent, and closing the parent
// closes its children first.
func (s *Scope) NewScope(name string) *Scope {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.newScopeLocked(s, name)
}

func (c *Container) newScopeLocked(parent *Scope, name string) *Scope {
	if name == "" {
		c.scopeSeq++
		name = fmt.Sprintf("scope-%d", c.scopeSeq)
	}
	s := &Scope{
		name:   name,
		c:      c,
		parent: parent,
		built:  make(map[*provider]*buildResult),
	}
	if c.closed || (parent != nil && parent.closed) {
		s.closed = true
		return s
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	} else {
		c.scopes = append(c.scopes, s)
	}
	c.log.LogEvent(ScopeCreatedEvent{Scope: name})
	return s
}

// Name returns the scope's name as it appears in events.
func (s *Scope) Name() string { return s.name }

// Invoke implements Resolver against this scope: Scoped dependencies of fn
// resolve into the scope's cache.
func (s *Scope) Invoke(fn any) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed {
		return ErrScopeClosed
	}
	return s.c.invoke(s, fn)
}

func (s *Scope) resolveValue(t reflect.Type, name string) (reflect.Value, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed {
		return reflect.Value{}, ErrScopeClosed
	}
	if s.c.closed {
		return reflect.Value{}, ErrClosed
	}
	rc := &resolveCtx{scope: s}
	return s.c.resolveDep(rc, dep{t: t, name: name})
}

func (s *Scope) groupValues(t reflect.Type, group string) (reflect.Value, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed {
		return reflect.Value{}, ErrScopeClosed
	}
	if s.c.closed {
		return reflect.Value{}, ErrClosed
	}
	rc := &resolveCtx{scope: s}
	return s.c.groupSlice(rc, t, group)
}

// Close closes child scopes first, then stops and releases the scope's own
// instances in reverse instantiation order. Errors are collected, not
// fail-fast. Closing twice returns ErrScopeClosed.
func (s *Scope) Close(ctx context.Context) error {
	c := s.c
	c.mu.Lock()
	if s.closed {
		c.mu.Unlock()
		return ErrScopeClosed
	}
	s.closed = true
	children := slices.Clone(s.children)
	recs := slices.Clone(s.order)
	s.detachLocked()
	c.mu.Unlock()

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(ctx); err != nil && !errors.Is(err, ErrScopeClosed) {
			errs = append(errs, err)
		}
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if err := c.stopRecord(ctx, recs[i]); err != nil {
			errs = append(errs, err)
		}
		if err := c.closeRecord(recs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	c.log.LogEvent(ScopeClosedEvent{Scope: s.name, Err: err})
	return err
}

func (s *Scope) detachLocked() {
	if s.parent != nil {
		s.parent.children = slices.DeleteFunc(s.parent.children, func(x *Scope) bool { return x == s })
		return
	}
	s.c.scopes = slices.DeleteFunc(s.c.scopes, func(x *Scope) bool { return x == s })
}
