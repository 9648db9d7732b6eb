package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferredQueueReleasesAfterLagFrames(t *testing.T) {
	q := NewDeferredQueue(2)
	released := false
	q.Defer(func() { released = true })

	assert.Equal(t, 1, q.Pending())

	q.Advance() // frame 1
	assert.False(t, released)
	assert.Equal(t, 1, q.Pending())

	q.Advance() // frame 2, readyAt == 2
	assert.True(t, released)
	assert.Equal(t, 0, q.Pending())
}

func TestDeferredQueueZeroLagClampsToOne(t *testing.T) {
	q := NewDeferredQueue(0)
	released := false
	q.Defer(func() { released = true })

	q.Advance()
	assert.True(t, released)
}

func TestDeferredQueueRunsOldestFirst(t *testing.T) {
	q := NewDeferredQueue(1)
	var order []int
	q.Defer(func() { order = append(order, 1) })
	q.Defer(func() { order = append(order, 2) })
	q.Defer(func() { order = append(order, 3) })

	q.Advance()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDeferredQueueFlushRunsEverythingRegardlessOfReadyAt(t *testing.T) {
	q := NewDeferredQueue(10)
	count := 0
	q.Defer(func() { count++ })
	q.Defer(func() { count++ })

	q.Flush()
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, q.Pending())
}

func TestDeferredQueueDoesNotReleaseEarlyEntriesQueuedLater(t *testing.T) {
	q := NewDeferredQueue(2)
	var released []string

	q.Defer(func() { released = append(released, "a") })
	q.Advance() // frame 1, a ready at frame 2

	q.Defer(func() { released = append(released, "b") }) // ready at frame 3
	q.Advance()                                           // frame 2: a releases
	assert.Equal(t, []string{"a"}, released)

	q.Advance() // frame 3: b releases
	assert.Equal(t, []string{"a", "b"}, released)
}
