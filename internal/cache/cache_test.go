package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counts struct {
	Validations int `json:"validations"`
	Solutions   int `json:"solutions"`
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	return mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "labbook:profile:3", ProfileKey(3))
	assert.Equal(t, "labbook:post:9", PostKey(9))
	assert.Equal(t, "labbook:post:9:counts", CountsKey(9))
}

func TestJSONRoundTripWithTTL(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, CountsKey(1), counts{Validations: 2}, CountsTTL))
	assert.Equal(t, CountsTTL, mr.TTL(CountsKey(1)))

	var got counts
	found, err := GetJSON(ctx, CountsKey(1), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, got.Validations)

	found, err = GetJSON(ctx, CountsKey(2), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAsideFetchesOnceThenHits(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *counts) func() error {
		return func() error {
			calls++
			*dest = counts{Solutions: 4}
			return nil
		}
	}

	var first counts
	require.NoError(t, Aside(ctx, CountsKey(5), &first, time.Minute, fetch(&first)))
	var second counts
	require.NoError(t, Aside(ctx, CountsKey(5), &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, counts{Solutions: 4}, second)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	setupRedis(t)
	boom := errors.New("db down")
	var dest counts
	err := Aside(context.Background(), CountsKey(6), &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestHelpersWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	assert.NoError(t, SetJSON(ctx, "k", 1, time.Minute))
	var v int
	found, err := GetJSON(ctx, "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NotPanics(t, func() { Invalidate(ctx, "k") })

	calls := 0
	require.NoError(t, Aside(ctx, "k", &v, time.Minute, func() error { calls++; return nil }))
	assert.Equal(t, 1, calls)
}

func TestInvalidate(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, PostKey(1), "x", PostTTL))
	require.NoError(t, SetJSON(ctx, CountsKey(1), "y", CountsTTL))

	Invalidate(ctx, PostKey(1), CountsKey(1))

	assert.False(t, mr.Exists(PostKey(1)))
	assert.False(t, mr.Exists(CountsKey(1)))
}
