package vkcore

import "sync"

// Handle identifies one entry in a ResourceCache across its lifetime: a
// slot index plus a generation counter that increments every time the slot
// is reused, so a stale Handle captured before a Release is detectably
// invalid instead of silently aliasing whatever moved into that slot.
type Handle struct {
	index      uint32
	generation uint32
}

// Valid reports whether h was ever issued (the zero Handle is never valid).
func (h Handle) Valid() bool { return h.generation != 0 }

type cacheSlot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// ResourceCache is a generation-indexed object pool, generalising the
// teacher's ad hoc map[string]CoreBuffer/map[string]CoreImage/
// map[string]CoreShader tables (core.go) into one reusable, generic,
// thread-safe container keyed by a cheap Handle instead of a string.
type ResourceCache[T any] struct {
	mu    sync.RWMutex
	slots []cacheSlot[T]
	free  []uint32
}

// NewResourceCache creates an empty cache.
func NewResourceCache[T any]() *ResourceCache[T] {
	return &ResourceCache[T]{}
}

// Insert stores value and returns a Handle for later Get/Release.
func (c *ResourceCache[T]) Insert(value T) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		slot := &c.slots[idx]
		slot.value = value
		slot.occupied = true
		return Handle{index: idx, generation: slot.generation}
	}

	c.slots = append(c.slots, cacheSlot[T]{value: value, generation: 1, occupied: true})
	return Handle{index: uint32(len(c.slots) - 1), generation: 1}
}

// Get returns the value for h and whether h is still valid.
func (c *ResourceCache[T]) Get(h Handle) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if int(h.index) >= len(c.slots) {
		return zero, false
	}
	slot := &c.slots[h.index]
	if !slot.occupied || slot.generation != h.generation {
		return zero, false
	}
	return slot.value, true
}

// Release frees h's slot for reuse, bumping its generation so any copy of
// h still held elsewhere fails its next Get. Returns the released value so
// the caller can feed it to a DeferredQueue before actually destroying the
// underlying Vulkan object.
func (c *ResourceCache[T]) Release(h Handle) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if int(h.index) >= len(c.slots) {
		return zero, false
	}
	slot := &c.slots[h.index]
	if !slot.occupied || slot.generation != h.generation {
		return zero, false
	}
	value := slot.value
	slot.value = zero
	slot.occupied = false
	slot.generation++
	c.free = append(c.free, h.index)
	return value, true
}

// Len returns the number of currently occupied slots.
func (c *ResourceCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots) - len(c.free)
}

// Each calls fn for every occupied slot's value. fn must not call back
// into Insert/Release on the same cache.
func (c *ResourceCache[T]) Each(fn func(Handle, T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.slots {
		slot := &c.slots[i]
		if slot.occupied {
			fn(Handle{index: uint32(i), generation: slot.generation}, slot.value)
		}
	}
}
