package vkcore

import "container/list"

// deferredEntry pairs a release callback with the frame index it becomes
// safe to run at — the frame-sync-slot ring has cycled back around to the
// slot that was current when the entry was queued, so every fence guarding
// that slot's work is known to have signalled.
type deferredEntry struct {
	readyAt uint64
	release func()
}

// DeferredQueue defers GPU object destruction until the in-flight frame
// that might still reference the object has finished, generalising the
// teacher's inline teardown order in CoreRenderInstance.teardown
// (instance.go) — which destroys everything at once during shutdown —
// into a queue usable every frame, not just at shutdown.
type DeferredQueue struct {
	entries *list.List // of *deferredEntry, oldest (soonest ready) at Front
	frame   uint64
	lag     uint64
}

// NewDeferredQueue creates a queue that releases an entry once lag frames
// have passed since it was queued — lag should match the in-flight frame
// count so a release never races a still-submitted command buffer.
func NewDeferredQueue(lag uint64) *DeferredQueue {
	if lag == 0 {
		lag = 1
	}
	return &DeferredQueue{entries: list.New(), lag: lag}
}

// Defer schedules release to run once the current frame has cycled back
// around the in-flight ring.
func (q *DeferredQueue) Defer(release func()) {
	q.entries.PushBack(&deferredEntry{readyAt: q.frame + q.lag, release: release})
}

// Advance marks the start of a new frame and runs every entry whose
// readyAt has been reached, oldest first. Call once per frame, before
// recording new deferrals for that frame.
func (q *DeferredQueue) Advance() {
	q.frame++
	for el := q.entries.Front(); el != nil; {
		entry := el.Value.(*deferredEntry)
		if entry.readyAt > q.frame {
			break
		}
		next := el.Next()
		q.entries.Remove(el)
		entry.release()
		el = next
	}
}

// Flush runs every remaining entry regardless of readyAt, for use during
// shutdown after the device has gone idle.
func (q *DeferredQueue) Flush() {
	for el := q.entries.Front(); el != nil; el = el.Next() {
		el.Value.(*deferredEntry).release()
	}
	q.entries.Init()
}

// Pending reports how many releases are still queued.
func (q *DeferredQueue) Pending() int { return q.entries.Len() }
