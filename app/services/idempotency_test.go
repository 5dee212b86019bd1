package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/app/services"
	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
)

func newIdempotency(t *testing.T) (*services.Idempotency, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return services.NewIdempotency(cache.New(rdb)), mr
}

func TestIdempotencyWithoutRedisIsPassThrough(t *testing.T) {
	idem := services.NewIdempotency(nil)
	ctx := context.Background()

	replay, claimed, err := idem.Begin(ctx, 1, "abc")
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.False(t, claimed)

	// Complete and Abort are no-ops on a disabled store.
	idem.Complete(ctx, 1, "abc", 201, map[string]string{"ok": "yes"})
	idem.Abort(ctx, 1, "abc")

	replay, claimed, err = idem.Begin(ctx, 1, "abc")
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.False(t, claimed)
}

func TestIdempotencyClaimConflictAndReplay(t *testing.T) {
	idem, mr := newIdempotency(t)
	ctx := context.Background()

	replay, claimed, err := idem.Begin(ctx, 7, " order-1 ")
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.True(t, claimed)
	require.True(t, mr.Exists("idem:7:order-1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("idem:7:order-1"))

	// Same key while the first request runs.
	_, claimed, err = idem.Begin(ctx, 7, "order-1")
	assert.False(t, claimed)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Keys are per user.
	_, claimed, err = idem.Begin(ctx, 8, "order-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	idem.Complete(ctx, 7, "order-1", http.StatusCreated, map[string]any{"orderId": 42})
	replay, claimed, err = idem.Begin(ctx, 7, "order-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NotNil(t, replay)
	assert.True(t, replay.Done)
	assert.Equal(t, http.StatusCreated, replay.Status)

	var body map[string]int
	require.NoError(t, json.Unmarshal(replay.Body, &body))
	assert.Equal(t, 42, body["orderId"])
}

func TestIdempotencyAbortReleasesKey(t *testing.T) {
	idem, mr := newIdempotency(t)
	ctx := context.Background()

	_, claimed, err := idem.Begin(ctx, 3, "retry-me")
	require.NoError(t, err)
	require.True(t, claimed)

	idem.Abort(ctx, 3, "retry-me")
	assert.False(t, mr.Exists("idem:3:retry-me"))

	replay, claimed, err := idem.Begin(ctx, 3, "retry-me")
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.True(t, claimed)
}

func TestIdempotencyRejectsLongKeys(t *testing.T) {
	idem, mr := newIdempotency(t)

	_, claimed, err := idem.Begin(context.Background(), 1, strings.Repeat("k", 129))
	assert.False(t, claimed)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, mr.Keys())

	_, claimed, err = idem.Begin(context.Background(), 1, strings.Repeat("k", 128))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyRedisOutageDoesNotBlock(t *testing.T) {
	idem, mr := newIdempotency(t)
	mr.Close()

	replay, claimed, err := idem.Begin(context.Background(), 1, "abc")
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.False(t, claimed)
}
