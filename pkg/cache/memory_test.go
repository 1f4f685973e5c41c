package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Seq   uint64  `json:"seq"`
	Score float64 `json:"score"`
}

func TestMemorySetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "latest", point{Seq: 3, Score: 0.4}, time.Minute))
	var got point
	require.NoError(t, mc.Get(ctx, "latest", &got))
	assert.Equal(t, point{Seq: 3, Score: 0.4}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "raw", "hello", 0))
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "hello", s)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &s), ErrCacheMiss)
	require.NoError(t, mc.Delete(ctx, "raw"))
	assert.ErrorIs(t, mc.Get(ctx, "raw", &s), ErrCacheMiss)
}

func TestMemoryExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryMSetMGetTyped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.MSet(ctx, map[string]interface{}{
		"a": point{Seq: 1},
		"b": point{Seq: 2},
	}, time.Minute))

	got, err := MGetTyped[point](ctx, mc, "a", "b", "c")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, uint64(2), got["b"].Seq)
}

func TestMemoryPushCapped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, mc.PushCapped(ctx, "history", point{Seq: uint64(i)}, 3, time.Minute))
	}
	items, err := mc.Range(ctx, "history", 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `{"seq":5,"score":0}`, items[0])
	assert.JSONEq(t, `{"seq":3,"score":0}`, items[2])

	items, _ = mc.Range(ctx, "history", 1)
	assert.Len(t, items, 1)
	items, _ = mc.Range(ctx, "nothing", 5)
	assert.Empty(t, items)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.NoError(t, mc.Get(ctx, "a", &s))
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &s))
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "symbol:KOSPI200F", GenerateKey("symbol", "KOSPI200F"))
}
