// Package canister is a reflection-based dependency injection container:
// constructors declare what they need as parameters, the container works out
// the order, builds each instance once, and tears everything down cleanly.
//
// # Registration and resolution
//
// A container is populated with constructors and ready values, then
// resolved:
//
//	c := canister.New()
//	c.Provide(config.Load)
//	c.Provide(database.New)
//	c.Provide(postgres.NewArtifactRepo, canister.As(new(repository.ArtifactRepo)))
//
//	repo, err := canister.Resolve[repository.ArtifactRepo](c)
//
// Constructors are plain functions. Parameters are resolved from other
// registrations; results become resolvable keys. (T), (T, error), multiple
// results and result structs all work. Everything is validated at Provide
// time, so a typo in a signature fails at wiring, not in production at first
// use.
//
// Instances are singletons by default: built on first use, cached, shared.
// Transient registrations build a fresh instance per resolution; Scoped ones
// cache per Scope.
//
// # Qualifiers, defaults and groups
//
// Several providers of one type coexist under names:
//
//	c.Provide(cache.NewMemory, canister.Name("mem"), canister.As(new(Cache)))
//	c.Provide(cache.NewRedis, canister.Name("redis"), canister.As(new(Cache)), canister.Primary())
//
// A named request gets the named instance. An unqualified request resolves
// to the sole candidate, or to the Primary one; with several candidates and
// no primary it fails with an AmbiguityError rather than guessing.
//
// Group registrations collect plugins: every provider added to a group comes
// back together, in registration order, via ResolveGroup or a tagged slice
// field.
//
// # Parameter and result structs
//
// Constructors with many dependencies take a struct embedding In instead of
// a long parameter list:
//
//	type routerParams struct {
//		canister.In
//
//		Cfg    *config.Config
//		Routes []handler.Registrar `group:"http.routes"`
//		Audit  AuditSink           `optional:"true"`
//	}
//
// Result structs embedding Out register each field separately.
//
// # Lifecycle
//
// Start validates the graph, builds Eager singletons, freezes registration
// and runs start hooks in instantiation order; Stop unwinds in reverse.
// Hooks are attached per registration with WithStart/WithStop, or detected:
// instances implementing Starter or Stopper participate automatically, and
// anything implementing io.Closer is closed at Close unless it has explicit
// stop handling. Run wraps the whole daemon loop: start, wait for SIGINT or
// SIGTERM, shut down within the configured timeout.
//
// Hooks and constructors must return promptly and must not call back into
// the container; long-running work belongs in goroutines the start hook
// spawns and the stop hook joins.
//
// # Validation and introspection
//
// Validate statically checks the graph: every dependency satisfiable,
// no ambiguity, no cycles, no singleton capturing a scoped instance.
// A wiring test is one container assembly plus a Validate call. Graph
// returns the dependency graph, renderable as Graphviz via DOT, and a
// Logger registered with WithLogger observes registrations, builds and
// lifecycle transitions as typed events.
package canister
