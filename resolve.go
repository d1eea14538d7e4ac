package canister

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Resolver is the read side of a container: the container root and every
// Scope implement it. Pass it to code that resolves or invokes but must not
// register anything.
type Resolver interface {
	// Invoke resolves the function's parameters, calls it, and returns the
	// function's error, if it declares one.
	Invoke(fn any) error

	resolveValue(t reflect.Type, name string) (reflect.Value, error)
	groupValues(t reflect.Type, group string) (reflect.Value, error)
}

// Resolve returns the instance registered for T, building it and its
// dependencies on first use.
func Resolve[T any](r Resolver) (T, error) {
	return ResolveNamed[T](r, "")
}

// ResolveNamed returns the instance registered for T under the given
// qualifier.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	v, err := r.resolveValue(reflect.TypeFor[T](), name)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.Interface().(T)
	return out, nil
}

// MustResolve is Resolve that panics on error. Meant for composition roots
// where a resolution failure is fatal anyway.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// MustResolveNamed is ResolveNamed that panics on error.
func MustResolveNamed[T any](r Resolver, name string) T {
	v, err := ResolveNamed[T](r, name)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveGroup collects every registration contributed to the named group,
// in registration order. An unknown group yields an empty slice, not an
// error.
func ResolveGroup[T any](r Resolver, group string) ([]T, error) {
	sv, err := r.groupValues(reflect.TypeFor[T](), group)
	if err != nil {
		return nil, err
	}
	out, _ := sv.Interface().([]T)
	return out, nil
}

// Invoke implements Resolver.
func (c *Container) Invoke(fn any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invoke(nil, fn)
}

func (c *Container) resolveValue(t reflect.Type, name string) (reflect.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reflect.Value{}, ErrClosed
	}
	rc := &resolveCtx{}
	return c.resolveDep(rc, dep{t: t, name: name})
}

func (c *Container) groupValues(t reflect.Type, group string) (reflect.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reflect.Value{}, ErrClosed
	}
	rc := &resolveCtx{}
	return c.groupSlice(rc, t, group)
}

// resolveCtx carries per-resolution state: the scope the request started
// from (nil at the root) and the chain of in-flight providers for cycle
// detection and error paths.
type resolveCtx struct {
	scope *Scope
	path  []pathElem
}

type pathElem struct {
	prov *provider
	disp string
}

func (rc *resolveCtx) current() Path {
	p := make(Path, 0, len(rc.path)+1)
	for _, el := range rc.path {
		p = append(p, el.disp)
	}
	return p
}

func (rc *resolveCtx) pathTo(disp string) Path {
	return append(rc.current(), disp)
}

func attachPath(err error, p Path) error {
	switch e := err.(type) {
	case MissingError:
		e.Path = p
		return e
	case AmbiguityError:
		e.Path = p
		return e
	case ScopeError:
		e.Path = p
		return e
	}
	return err
}

// The functions below assume c.mu is held.

func (c *Container) invoke(s *Scope, fn any) error {
	if c.closed {
		return ErrClosed
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return RegistrationError{Reason: fmt.Sprintf("Invoke requires a function, got %T", fn)}
	}
	origin := ctorOrigin(v)
	if v.Type().IsVariadic() {
		return RegistrationError{Origin: origin, Reason: "variadic functions are not supported"}
	}
	params, err := analyzeParams(v.Type(), origin)
	if err != nil {
		return err
	}
	rc := &resolveCtx{scope: s}
	args, err := c.argsFor(rc, params)
	if err != nil {
		return err
	}
	rets := v.Call(args)
	if n := len(rets); n > 0 && v.Type().Out(n-1) == errType && !rets[n-1].IsNil() {
		return rets[n-1].Interface().(error)
	}
	return nil
}

// selectOffer picks the registration serving a key. Exact matches win; an
// unqualified request falls back to a single candidate, or to the Primary
// one when several qualified candidates exist.
func (c *Container) selectOffer(k key) (offerRef, error) {
	entries := c.byType[k.t]
	if k.name != "" {
		for _, e := range entries {
			if e.off.key.name == k.name {
				return e, nil
			}
		}
		return offerRef{}, MissingError{Key: k.String()}
	}
	for _, e := range entries {
		if e.off.key.name == "" {
			return e, nil
		}
	}
	switch len(entries) {
	case 0:
		return offerRef{}, MissingError{Key: k.String()}
	case 1:
		return entries[0], nil
	}
	if p, ok := c.primaries[k.t]; ok {
		for _, e := range entries {
			if e.prov == p {
				return e, nil
			}
		}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.off.key.name)
	}
	return offerRef{}, AmbiguityError{Key: k.t.String(), Candidates: names}
}

func (c *Container) resolveDep(rc *resolveCtx, d dep) (reflect.Value, error) {
	if d.group != "" {
		return c.groupSlice(rc, d.t, d.group)
	}
	ref, err := c.selectOffer(d.key())
	if err != nil {
		if d.optional {
			if _, missing := err.(MissingError); missing {
				return reflect.Zero(d.t), nil
			}
		}
		return reflect.Value{}, attachPath(err, rc.pathTo(d.String()))
	}
	return c.instance(rc, ref, d.String())
}

func (c *Container) groupSlice(rc *resolveCtx, t reflect.Type, group string) (reflect.Value, error) {
	entries := c.groups[groupKey{t: t, group: group}]
	s := reflect.MakeSlice(reflect.SliceOf(t), 0, len(entries))
	disp := fmt.Sprintf("%s[group %q]", t, group)
	for _, ref := range entries {
		v, err := c.instance(rc, ref, disp)
		if err != nil {
			return reflect.Value{}, err
		}
		s = reflect.Append(s, v)
	}
	return s, nil
}

// instance returns the value the given offer yields, building and caching
// the provider's output according to its lifetime.
func (c *Container) instance(rc *resolveCtx, ref offerRef, disp string) (reflect.Value, error) {
	p := ref.prov

	for _, el := range rc.path {
		if el.prov == p {
			return reflect.Value{}, CycleError{Path: rc.pathTo(disp)}
		}
	}

	switch p.lifetime {
	case lifetimeSingleton:
		if br, ok := c.built[p]; ok {
			return br.extract(ref.off.out), nil
		}
	case lifetimeScoped:
		if rc.scope == nil {
			err := ScopeError{Key: p.display(), Reason: "scoped registration resolved outside a scope"}
			return reflect.Value{}, attachPath(err, rc.pathTo(disp))
		}
		if br, ok := rc.scope.built[p]; ok {
			return br.extract(ref.off.out), nil
		}
	}

	rc.path = append(rc.path, pathElem{prov: p, disp: disp})
	begin := time.Now()
	// A singleton's dependencies resolve against the root even when the
	// request came through a scope; otherwise it would capture scoped
	// instances beyond their lifetime.
	saved := rc.scope
	if p.lifetime == lifetimeSingleton {
		rc.scope = nil
	}
	br, err := c.build(rc, p)
	rc.scope = saved
	rc.path = rc.path[:len(rc.path)-1]

	scopeName := ""
	if p.lifetime == lifetimeScoped {
		scopeName = rc.scope.name
	}
	c.log.LogEvent(ResolvedEvent{Key: p.display(), Scope: scopeName, Duration: time.Since(begin), Err: err})
	if err != nil {
		return reflect.Value{}, err
	}

	switch p.lifetime {
	case lifetimeSingleton:
		c.built[p] = br
		rec := &instanceRecord{prov: p, vals: br.values(p)}
		c.order = append(c.order, rec)
		if c.started {
			if err := c.startRecordLocked(context.Background(), rec); err != nil {
				return reflect.Value{}, err
			}
		}
	case lifetimeScoped:
		rc.scope.built[p] = br
		rec := &instanceRecord{prov: p, vals: br.values(p)}
		rc.scope.order = append(rc.scope.order, rec)
		if err := c.startRecordLocked(context.Background(), rec); err != nil {
			return reflect.Value{}, err
		}
	}
	return br.extract(ref.off.out), nil
}

func (c *Container) build(rc *resolveCtx, p *provider) (*buildResult, error) {
	args, err := c.argsFor(rc, p.params)
	if err != nil {
		return nil, err
	}
	rets := p.ctor.Call(args)
	if p.hasErr {
		last := rets[len(rets)-1]
		if !last.IsNil() {
			return nil, BuildError{Key: p.display(), Path: rc.current(), Err: last.Interface().(error)}
		}
		rets = rets[:len(rets)-1]
	}
	return &buildResult{outs: rets}, nil
}

func (c *Container) argsFor(rc *resolveCtx, params []param) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, len(params))
	for _, pa := range params {
		if pa.fields == nil {
			v, err := c.resolveDep(rc, pa.dep)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			continue
		}
		sv := reflect.New(pa.t).Elem()
		for _, f := range pa.fields {
			v, err := c.resolveDep(rc, f.dep)
			if err != nil {
				return nil, err
			}
			sv.Field(f.index).Set(v)
		}
		args = append(args, sv)
	}
	return args, nil
}
