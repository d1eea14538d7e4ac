package canister

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Static graph validation
// -----------------------------------------------------------------------------

// TestValidate_CleanGraph verifies a well-formed graph passes without
// constructing anything.
func TestValidate_CleanGraph(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcA))
	require.NoError(t, c.Provide(newSvcB))
	require.NoError(t, c.Provide(newSvcC))
	require.NoError(t, c.Provide(newMemCache, Group("tiers")))
	require.NoError(t, c.Provide(newRedisCache, Group("tiers")))

	assert.NoError(t, c.Validate())
	assert.Empty(t, j.list())
}

// TestValidate_Missing verifies a required dependency with no provider is
// reported with the requesting chain.
func TestValidate_Missing(t *testing.T) {
	t.Parallel()

	j := &journal{}
	c := New()
	require.NoError(t, c.ProvideValue(j))
	require.NoError(t, c.Provide(newSvcB)) // *svcA never registered

	err := c.Validate()
	var me MissingError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Key, "svcA")
	assert.Contains(t, me.Path.String(), "svcB")
}

// TestValidate_OptionalMissing verifies optional fields tolerate an absent
// provider.
func TestValidate_OptionalMissing(t *testing.T) {
	t.Parallel()

	type optParams struct {
		In
		Spare *spareCache `optional:"true"`
	}

	c := New()
	require.NoError(t, c.Provide(func(p optParams) *memCache { return newMemCache() }))

	assert.NoError(t, c.Validate())
}

// TestValidate_Ambiguity verifies an unqualified dependency on a type with
// several named candidates fails validation.
func TestValidate_Ambiguity(t *testing.T) {
	t.Parallel()

	type cacheUser struct{ c cache }

	c := New()
	require.NoError(t, c.Provide(newMemCache, Name("hot"), As(new(cache))))
	require.NoError(t, c.Provide(newRedisCache, Name("cold"), As(new(cache))))
	require.NoError(t, c.Provide(func(cc cache) *cacheUser { return &cacheUser{c: cc} }))

	err := c.Validate()
	var ae AmbiguityError
	require.ErrorAs(t, err, &ae)
	assert.ElementsMatch(t, []string{"hot", "cold"}, ae.Candidates)
}

// TestValidate_Cycle verifies mutually dependent providers are caught before
// any constructor runs.
func TestValidate_Cycle(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Provide(func(*pongSvc) *pingSvc { return &pingSvc{} }))
	require.NoError(t, c.Provide(func(*pingSvc) *pongSvc { return &pongSvc{} }))

	err := c.Validate()
	var ce CycleError
	require.ErrorAs(t, err, &ce)
	require.GreaterOrEqual(t, len(ce.Path), 3)
	assert.Equal(t, ce.Path[0], ce.Path[len(ce.Path)-1])
}

// TestValidate_SelfCycle verifies a provider depending on its own result is a
// cycle of length one.
func TestValidate_SelfCycle(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Provide(func(*pingSvc) *pingSvc { return &pingSvc{} }))

	err := c.Validate()
	var ce CycleError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Path, 2)
	assert.Equal(t, ce.Path[0], ce.Path[1])
}

// TestValidate_CaptiveScoped verifies a singleton may not depend on a scoped
// registration.
func TestValidate_CaptiveScoped(t *testing.T) {
	t.Parallel()

	type sessionUser struct{ c *memCache }

	c := New()
	require.NoError(t, c.Provide(newMemCache, Scoped()))
	require.NoError(t, c.Provide(func(mc *memCache) *sessionUser { return &sessionUser{c: mc} }))

	err := c.Validate()
	var se ScopeError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "captive")
}

// TestValidate_CaptiveScopedGroupMember verifies the captive check also covers
// group contributions.
func TestValidate_CaptiveScopedGroupMember(t *testing.T) {
	t.Parallel()

	type tiersUser struct {
		In
		Tiers []cache `group:"tiers"`
	}

	c := New()
	require.NoError(t, c.Provide(newMemCache, Group("tiers"), As(new(cache))))
	require.NoError(t, c.Provide(newRedisCache, Group("tiers"), As(new(cache)), Scoped()))
	require.NoError(t, c.Provide(func(p tiersUser) *svcA { return &svcA{} }))

	err := c.Validate()
	var se ScopeError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "captive")
}

// TestValidate_ScopedChainAllowed verifies scoped and transient consumers may
// depend on scoped registrations.
func TestValidate_ScopedChainAllowed(t *testing.T) {
	t.Parallel()

	type perRequest struct{ c *memCache }

	c := New()
	require.NoError(t, c.Provide(newMemCache, Scoped()))
	require.NoError(t, c.Provide(func(mc *memCache) *perRequest { return &perRequest{c: mc} }, Scoped()))
	require.NoError(t, c.Provide(func(mc *memCache) *redisCache { return newRedisCache() }, Transient()))

	assert.NoError(t, c.Validate())
}
