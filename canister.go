package canister

import (
	"reflect"
	"strconv"
	"sync"
	"time"
)

const defaultShutdownTimeout = 15 * time.Second

// Container holds registrations and the singleton instances built from them.
// Create one with New, register constructors with Provide, then either
// resolve directly or call Start to bring eager instances and lifecycle
// hooks up.
//
// All methods are safe for concurrent use. Resolution is serialized by a
// single lock, so constructors must not call back into the container; they
// receive everything they need as arguments.
type Container struct {
	mu   sync.Mutex // guards registry, caches, records and flags
	lcMu sync.Mutex // serializes Start/Stop/Close/Run

	log      Logger
	shutdown time.Duration

	nextID    int
	providers []*provider
	byType    map[reflect.Type][]offerRef
	groups    map[groupKey][]offerRef
	primaries map[reflect.Type]*provider

	built  map[*provider]*buildResult
	order  []*instanceRecord
	scopes []*Scope

	scopeSeq int
	started  bool
	stopped  bool
	closed   bool
}

// Option configures a Container at construction time.
type Option func(*Container)

// WithLogger routes container events to l. Combine multiple loggers with
// TeeLogger. The default discards events.
func WithLogger(l Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// WithShutdownTimeout bounds the stop phase Run triggers after a termination
// signal. The default is 15 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Container) {
		if d > 0 {
			c.shutdown = d
		}
	}
}

// New returns an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		log:       NopLogger{},
		shutdown:  defaultShutdownTimeout,
		byType:    make(map[reflect.Type][]offerRef),
		groups:    make(map[groupKey][]offerRef),
		primaries: make(map[reflect.Type]*provider),
		built:     make(map[*provider]*buildResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// key identifies a registration: a type plus an optional qualifier.
type key struct {
	t    reflect.Type
	name string
}

func (k key) String() string {
	if k.name == "" {
		return k.t.String()
	}
	return k.t.String() + "[" + strconv.Quote(k.name) + "]"
}

type groupKey struct {
	t     reflect.Type
	group string
}

type lifetime int

const (
	lifetimeSingleton lifetime = iota
	lifetimeTransient
	lifetimeScoped
)

func (l lifetime) String() string {
	switch l {
	case lifetimeTransient:
		return "transient"
	case lifetimeScoped:
		return "scoped"
	default:
		return "singleton"
	}
}

// outPath locates one offered value inside a constructor's return values:
// the return index, and a field index when the return is an Out struct.
type outPath struct {
	ret   int
	field int // -1 for the whole return value
}

// offer is one key a registration publishes, or one group contribution when
// group is non-empty.
type offer struct {
	key   key
	group string
	out   outPath
}

func (o offer) String() string {
	if o.group != "" {
		return o.key.t.String() + "[group " + strconv.Quote(o.group) + "]"
	}
	return o.key.String()
}

// dep is one dependency a registration consumes.
type dep struct {
	t        reflect.Type
	name     string
	group    string
	optional bool
}

func (d dep) key() key { return key{t: d.t, name: d.name} }

func (d dep) String() string {
	if d.group != "" {
		return d.t.String() + "[group " + strconv.Quote(d.group) + "]"
	}
	return d.key().String()
}

// param describes how one constructor argument is assembled: either a single
// dependency, or a parameter struct whose fields are dependencies.
type param struct {
	t      reflect.Type
	fields []inField // nil for a plain argument
	dep    dep       // valid when fields is nil
}

type inField struct {
	index int
	dep   dep
}

// provider is one registration: a constructor or a ready value, its analyzed
// inputs and outputs, and its lifecycle configuration.
type provider struct {
	id       int
	origin   string
	lifetime lifetime
	eager    bool
	primary  bool
	isValue  bool

	ctor   reflect.Value
	value  reflect.Value
	hasErr bool
	params []param
	deps   []dep // flattened params, for validation and the graph

	offers       []offer
	distinctOuts []outPath

	startHooks []reflect.Value
	stopHooks  []reflect.Value
}

// display is the provider's primary key in human-readable form, used in
// errors and events.
func (p *provider) display() string { return p.offers[0].String() }

func (p *provider) offerKeys() (keys, groups []string) {
	for _, o := range p.offers {
		if o.group != "" {
			groups = append(groups, o.group)
			continue
		}
		keys = append(keys, o.key.String())
	}
	return keys, groups
}

// offerRef points at one offer of a provider, so group collection and
// candidate selection can extract the right value after a build.
type offerRef struct {
	prov *provider
	off  offer
}

// buildResult holds a constructor's return values, minus the trailing error.
type buildResult struct {
	outs []reflect.Value
}

func (br *buildResult) extract(o outPath) reflect.Value {
	v := br.outs[o.ret]
	if o.field >= 0 {
		v = v.Field(o.field)
	}
	return v
}

// values extracts one value per distinct output of p, in offer order.
func (br *buildResult) values(p *provider) []reflect.Value {
	vals := make([]reflect.Value, 0, len(p.distinctOuts))
	for _, o := range p.distinctOuts {
		vals = append(vals, br.extract(o))
	}
	return vals
}

// instanceRecord tracks one owned instance for lifecycle management.
type instanceRecord struct {
	prov    *provider
	vals    []reflect.Value
	started bool
	stopped bool
}
