package canister

import (
	"fmt"
	"reflect"
)

// ProvideOption configures a single registration.
type ProvideOption func(*provideConfig)

type provideConfig struct {
	name       string
	group      string
	as         []reflect.Type
	lifetime   lifetime
	lifetimes  int // how many lifetime options were applied
	eager      bool
	primary    bool
	startHooks []any
	stopHooks  []any
}

// Name qualifies the registration so several providers of the same type can
// coexist. Qualified registrations are resolved with ResolveNamed or a
// `name` field tag.
func Name(name string) ProvideOption {
	return func(cfg *provideConfig) { cfg.name = name }
}

// As rebinds the registration to the given interface types instead of the
// constructor's concrete result. Pass pointers to interfaces:
//
//	c.Provide(postgres.NewArtifactRepo, canister.As(new(repository.ArtifactRepo)))
func As(ifaces ...any) ProvideOption {
	return func(cfg *provideConfig) {
		for _, i := range ifaces {
			t := reflect.TypeOf(i)
			if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
				// nil marks the bad argument; buildConfig rejects it.
				cfg.as = append(cfg.as, nil)
				continue
			}
			cfg.as = append(cfg.as, t.Elem())
		}
	}
}

// Primary marks this registration as the default among several candidates of
// the same type: an unqualified request that would otherwise be ambiguous
// picks the primary one. At most one registration per type may be primary.
func Primary() ProvideOption {
	return func(cfg *provideConfig) { cfg.primary = true }
}

// Group adds the registration's result to a named value group instead of
// binding it directly. The whole group is collected with ResolveGroup or a
// slice field with a `group` tag.
func Group(name string) ProvideOption {
	return func(cfg *provideConfig) { cfg.group = name }
}

// Transient makes every resolution construct a fresh instance. Transient
// instances are not tracked by the container: no caching, no lifecycle
// hooks, no automatic Close.
func Transient() ProvideOption {
	return func(cfg *provideConfig) { cfg.lifetime = lifetimeTransient; cfg.lifetimes++ }
}

// Scoped caches one instance per Scope. Resolving a scoped registration from
// the container root is an error, as is depending on it from a singleton.
func Scoped() ProvideOption {
	return func(cfg *provideConfig) { cfg.lifetime = lifetimeScoped; cfg.lifetimes++ }
}

// Eager instructs Start to construct the singleton up front, in registration
// order, instead of waiting for the first resolution.
func Eager() ProvideOption {
	return func(cfg *provideConfig) { cfg.eager = true }
}

// WithStart attaches a start hook, func(context.Context, T) error, where the
// registration's result is assignable to T. Hooks run during Start in
// instantiation order; for instances built after Start they run immediately.
func WithStart(hook any) ProvideOption {
	return func(cfg *provideConfig) { cfg.startHooks = append(cfg.startHooks, hook) }
}

// WithStop attaches a stop hook, func(context.Context, T) error, run in
// reverse instantiation order during Stop or Close.
func WithStop(hook any) ProvideOption {
	return func(cfg *provideConfig) { cfg.stopHooks = append(cfg.stopHooks, hook) }
}

func buildConfig(opts []ProvideOption) (*provideConfig, error) {
	cfg := &provideConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.lifetimes > 1 {
		return nil, RegistrationError{Reason: "conflicting lifetime options"}
	}
	if cfg.eager && cfg.lifetime != lifetimeSingleton {
		return nil, RegistrationError{Reason: "Eager applies only to singletons"}
	}
	if cfg.name != "" && cfg.group != "" {
		return nil, RegistrationError{Reason: "Name and Group are mutually exclusive"}
	}
	if cfg.primary && cfg.group != "" {
		return nil, RegistrationError{Reason: "Primary does not apply to group registrations"}
	}
	for _, t := range cfg.as {
		if t == nil || t.Kind() != reflect.Interface {
			return nil, RegistrationError{Reason: "As arguments must be pointers to interfaces, like As(new(io.Reader))"}
		}
	}
	return cfg, nil
}

// Provide registers a constructor. The constructor's parameters are resolved
// from other registrations when the result is first needed; its results
// become resolvable keys. Constructors may return (T), (T, error), multiple
// values, or a single Out struct. Registration fails eagerly on malformed
// constructors, duplicate keys, or a container that has already started.
func (c *Container) Provide(ctor any, opts ...ProvideOption) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	p, err := analyzeCtor(ctor, cfg)
	if err != nil {
		return err
	}
	return c.register(p)
}

// ProvideValue registers a ready instance as a singleton. Values accept the
// Name, As, Group, Primary and hook options; lifetime options do not apply.
// Values are never closed automatically: the caller built them, the caller
// owns them. Explicit WithStop hooks still run.
func (c *Container) ProvideValue(value any, opts ...ProvideOption) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	p, err := analyzeValue(value, cfg)
	if err != nil {
		return err
	}
	return c.register(p)
}

func (c *Container) register(p *provider) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started || c.stopped {
		return ErrStarted
	}

	// Reject duplicate keys and duplicate primaries before committing
	// anything.
	for _, o := range p.offers {
		if o.group != "" {
			continue
		}
		for _, e := range c.byType[o.key.t] {
			if e.off.key == o.key {
				return DuplicateError{Key: o.key.String(), Prior: e.prov.origin}
			}
		}
	}
	if p.primary {
		for _, o := range p.offers {
			if prior, ok := c.primaries[o.key.t]; ok {
				return RegistrationError{
					Origin: p.origin,
					Reason: fmt.Sprintf("a primary provider for %s is already registered at %s", o.key.t, prior.origin),
				}
			}
		}
	}

	p.id = c.nextID
	c.nextID++
	c.providers = append(c.providers, p)
	for _, o := range p.offers {
		if o.group != "" {
			gk := groupKey{t: o.key.t, group: o.group}
			c.groups[gk] = append(c.groups[gk], offerRef{prov: p, off: o})
			continue
		}
		c.byType[o.key.t] = append(c.byType[o.key.t], offerRef{prov: p, off: o})
		if p.primary {
			c.primaries[o.key.t] = p
		}
	}

	if p.isValue {
		br := &buildResult{outs: []reflect.Value{p.value}}
		c.built[p] = br
		c.order = append(c.order, &instanceRecord{prov: p, vals: br.values(p)})
	}

	keys, groups := p.offerKeys()
	c.log.LogEvent(ProvidedEvent{
		Keys:     keys,
		Groups:   groups,
		Lifetime: p.lifetime.String(),
		Origin:   p.origin,
	})
	return nil
}
