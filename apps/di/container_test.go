package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/testutil"
)

func TestNewCleanup(t *testing.T) {
	var calls []string
	cleanup := newCleanup(
		func() { calls = append(calls, "db") },
		func() { calls = append(calls, "cache") },
	)
	assert.Empty(t, calls)

	cleanup()
	assert.Equal(t, []string{"cache", "db"}, calls)
}

func TestNewCache_withoutDB(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Conf.Redis.Addr = ""

	c := dig.New()
	require.NoError(t, c.Provide(func() *core.Config { return env.Conf }))
	require.NoError(t, c.Provide(func() core.Logger { return env.Logger }))
	require.NoError(t, c.Provide(newCache))

	// the cache and its cleanup resolve with no database in the graph
	err := c.Invoke(func(cache core.Cache, closeCache cacheCleanup) {
		assert.Equal(t, core.NoopCache, cache)
		closeCache()
	})
	assert.NoError(t, err)
}
