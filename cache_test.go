package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceCacheInsertGet(t *testing.T) {
	c := NewResourceCache[string]()
	h := c.Insert("hello")

	v, ok := c.Get(h)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 1, c.Len())
}

func TestResourceCacheZeroHandleIsInvalid(t *testing.T) {
	var h Handle
	assert.False(t, h.Valid())
}

func TestResourceCacheReleaseInvalidatesHandle(t *testing.T) {
	c := NewResourceCache[int]()
	h := c.Insert(42)

	v, ok := c.Release(h)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, c.Len())

	_, ok = c.Get(h)
	assert.False(t, ok, "handle must not resolve after release")
}

func TestResourceCacheReusedSlotBumpsGeneration(t *testing.T) {
	c := NewResourceCache[int]()
	h1 := c.Insert(1)
	_, _ = c.Release(h1)

	h2 := c.Insert(2)
	assert.Equal(t, h1.index, h2.index, "freed slot should be reused")
	assert.NotEqual(t, h1.generation, h2.generation)

	_, ok := c.Get(h1)
	assert.False(t, ok, "stale handle into a reused slot must not resolve")

	v, ok := c.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestResourceCacheGetOutOfRangeHandle(t *testing.T) {
	c := NewResourceCache[int]()
	_, ok := c.Get(Handle{index: 99, generation: 1})
	assert.False(t, ok)
}

func TestResourceCacheDoubleReleaseFails(t *testing.T) {
	c := NewResourceCache[int]()
	h := c.Insert(7)

	_, ok := c.Release(h)
	assert.True(t, ok)

	_, ok = c.Release(h)
	assert.False(t, ok, "releasing an already-released handle must fail")
}

func TestResourceCacheEachVisitsOccupiedOnly(t *testing.T) {
	c := NewResourceCache[int]()
	h1 := c.Insert(1)
	c.Insert(2)
	c.Insert(3)
	_, _ = c.Release(h1)

	var seen []int
	c.Each(func(_ Handle, v int) { seen = append(seen, v) })

	assert.ElementsMatch(t, []int{2, 3}, seen)
}
