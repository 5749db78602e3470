package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `json:"title"`
}

func newViewCache(t *testing.T) (*miniredis.Miniredis, *ViewCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewViewCache(rdb)
}

func TestViewCache_AsideCachesAfterMiss(t *testing.T) {
	mr, vc := newViewCache(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *sample) func() error {
		return func() error {
			calls++
			dest.Title = "Logo design"
			return nil
		}
	}

	var first sample
	require.NoError(t, vc.Aside(ctx, "job", JobViewKey(1), &first, fetch(&first)))
	var second sample
	require.NoError(t, vc.Aside(ctx, "job", JobViewKey(1), &second, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Logo design", second.Title)
	assert.True(t, mr.Exists("view:job:1"))
	assert.Equal(t, ViewTTL, mr.TTL("view:job:1"))
}

func TestViewCache_InvalidateForcesReload(t *testing.T) {
	mr, vc := newViewCache(t)
	ctx := context.Background()

	var s sample
	require.NoError(t, vc.Aside(ctx, "wallet", WalletViewKey(3), &s, func() error { s.Title = "a"; return nil }))
	vc.Invalidate(ctx, WalletViewKey(3), AdminOverviewKey())
	assert.False(t, mr.Exists("view:wallet:3"))

	reloaded := false
	require.NoError(t, vc.Aside(ctx, "wallet", WalletViewKey(3), &s, func() error { reloaded = true; return nil }))
	assert.True(t, reloaded)
}

func TestViewCache_FetchErrorNotCached(t *testing.T) {
	mr, vc := newViewCache(t)
	var s sample
	err := vc.Aside(context.Background(), "job", JobViewKey(9), &s, func() error { return errors.New("boom") })
	assert.Error(t, err)
	assert.False(t, mr.Exists("view:job:9"))
}

func TestViewCache_NilClientFallsThrough(t *testing.T) {
	vc := NewViewCache(nil)
	called := false
	var s sample
	require.NoError(t, vc.Aside(context.Background(), "job", JobViewKey(1), &s, func() error { called = true; return nil }))
	assert.True(t, called)
	vc.Invalidate(context.Background(), JobViewKey(1))
}

func TestNewClient_ParsesAddresses(t *testing.T) {
	c, err := NewClient("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)

	c, err = NewClient("redis://:pw@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
