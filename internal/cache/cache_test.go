package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsUsable(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.Nil(t, New("", ""))

	var dst map[string]int
	found, err := c.GetJSON(ctx, "missing", &dst)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, TTLPopular))

	first, err := c.Mark(ctx, Key(KeyWebhookDedup, "ref"), TTLWebhookDedup)
	require.NoError(t, err)
	assert.True(t, first)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, c.DeletePattern(ctx, "marketplace:*"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "marketplace:popular:2:20", Key(KeyPopularProducts, 2, 20))
	assert.Equal(t, "dedup:paystack:ref-1", Key(KeyWebhookDedup, "ref-1"))
}
