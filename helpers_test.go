package canister

import (
	"context"
	"sync"
)

//
// -----------------------------------------------------------------------------
// Shared test fixtures
// -----------------------------------------------------------------------------

// recorder is a Logger capturing events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) LogEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(match func(Event) bool) int {
	n := 0
	for _, e := range r.snapshot() {
		if match(e) {
			n++
		}
	}
	return n
}

// journal records lifecycle transitions in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// lifeTracker gives a fixture type Starter, Stopper and HealthChecker
// behavior, journaling every transition.
type lifeTracker struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
	pingErr  error
}

func (l *lifeTracker) Start(context.Context) error {
	if l.startErr != nil {
		return l.startErr
	}
	l.j.add("start:" + l.name)
	return nil
}

func (l *lifeTracker) Stop(context.Context) error {
	if l.stopErr != nil {
		return l.stopErr
	}
	l.j.add("stop:" + l.name)
	return nil
}

func (l *lifeTracker) HealthCheck(context.Context) error {
	return l.pingErr
}

// svcA, svcB and svcC form a three-level dependency chain of lifecycle-aware
// services: C depends on B depends on A.
type svcA struct{ *lifeTracker }

type svcB struct {
	*lifeTracker
	a *svcA
}

type svcC struct {
	*lifeTracker
	b *svcB
}

func newSvcA(j *journal) *svcA {
	j.add("build:a")
	return &svcA{lifeTracker: &lifeTracker{name: "a", j: j}}
}

func newSvcB(j *journal, a *svcA) *svcB {
	j.add("build:b")
	return &svcB{lifeTracker: &lifeTracker{name: "b", j: j}, a: a}
}

func newSvcC(j *journal, b *svcB) *svcC {
	j.add("build:c")
	return &svcC{lifeTracker: &lifeTracker{name: "c", j: j}, b: b}
}

// closerSvc only implements io.Closer; the container releases it at Close.
type closerSvc struct {
	j *journal
}

func newCloserSvc(j *journal) *closerSvc { return &closerSvc{j: j} }

func (c *closerSvc) Close() error {
	c.j.add("close:closer")
	return nil
}

// cache and its two implementations exercise qualifiers, Primary and As.
type cache interface {
	kind() string
}

// memCache carries a padding byte so it is not zero-sized: the runtime gives
// all zero-size allocations one address, which would defeat the Same/NotSame
// instance-identity assertions.
type memCache struct{ _ byte }

func newMemCache() *memCache   { return &memCache{} }
func (*memCache) kind() string { return "mem" }

type redisCache struct{}

func newRedisCache() *redisCache { return &redisCache{} }
func (*redisCache) kind() string { return "redis" }
