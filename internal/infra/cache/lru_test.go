package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

func res(score float64) *domain.Result {
	return &domain.Result{Score: score}
}

func TestLRU_StoreThenGet(t *testing.T) {
	c := NewLRU(4)
	c.Store("fp-1", res(3))

	got, ok := c.TryGet("fp-1")
	require.True(t, ok)
	assert.Equal(t, 3.0, got.Score)
}

func TestLRU_UnknownKey(t *testing.T) {
	c := NewLRU(4)
	got, ok := c.TryGet("nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(2)
	c.Store("a", res(1))
	c.Store("b", res(2))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.TryGet("a")
	require.True(t, ok)

	c.Store("c", res(3))

	_, ok = c.TryGet("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.TryGet("a")
	assert.True(t, ok, "eviction must not touch unrelated keys")
	_, ok = c.TryGet("c")
	assert.True(t, ok)
}

func TestLRU_StoreRefreshesExisting(t *testing.T) {
	c := NewLRU(2)
	c.Store("a", res(1))
	c.Store("a", res(9))

	got, ok := c.TryGet("a")
	require.True(t, ok)
	assert.Equal(t, 9.0, got.Score)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestLRU_Clear(t *testing.T) {
	c := NewLRU(4)
	c.Store("a", res(1))
	c.Store("b", res(2))
	c.Clear()

	_, ok := c.TryGet("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestLRU_NilResultIgnored(t *testing.T) {
	c := NewLRU(4)
	c.Store("a", nil)
	_, ok := c.TryGet("a")
	assert.False(t, ok)
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU(4)
	c.Store("a", res(1))
	c.TryGet("a")
	c.TryGet("a")
	c.TryGet("missing")

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	// The nil-store probe above does not count; only TryGet misses do.
	assert.GreaterOrEqual(t, st.Misses, int64(1))
}

func TestLRU_BoundedUnderChurn(t *testing.T) {
	c := NewLRU(8)
	for i := 0; i < 100; i++ {
		c.Store(fmt.Sprintf("fp-%d", i), res(float64(i)))
	}
	assert.Equal(t, 8, c.Stats().Entries)
}
