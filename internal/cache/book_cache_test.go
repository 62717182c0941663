package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	t.Run("HostPort", func(t *testing.T) {
		opts, err := redisOptions("localhost:6379", "secret")
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
	})

	t.Run("URL", func(t *testing.T) {
		opts, err := redisOptions("redis://user:pw@cache.internal:6380/2", "")
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2, opts.DB)
	})

	t.Run("URLPasswordOverride", func(t *testing.T) {
		opts, err := redisOptions("redis://cache.internal:6379", "override")
		require.NoError(t, err)
		assert.Equal(t, "override", opts.Password)
	})

	t.Run("BadURL", func(t *testing.T) {
		_, err := redisOptions("http://not-redis", "")
		assert.Error(t, err)
	})
}
