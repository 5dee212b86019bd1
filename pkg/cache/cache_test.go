package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStoreIsAlwaysMiss(t *testing.T) {
	ctx := context.Background()

	for _, s := range []*Store{nil, {}} {
		assert.False(t, s.Enabled())
		require.NoError(t, s.Set(ctx, "giftcard:1", map[string]int{"id": 1}, time.Minute))

		var dest map[string]int
		assert.False(t, s.Get(ctx, "giftcard:1", &dest))

		ok, err := s.SetNX(ctx, "idem:1:abc", "x", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Del(ctx, "giftcard:1"))
		require.NoError(t, s.Close())
		assert.Nil(t, s.Client())
	}
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "giftcard", keyspace("giftcard:12"))
	assert.Equal(t, "idem", keyspace("idem:3:key"))
	assert.Equal(t, "plain", keyspace("plain"))
}
