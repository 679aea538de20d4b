package thread

import (
	"slices"

	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/lockset"
)

// Context represents the lockset analysis state for a single observed thread.
//
// Each registered thread gets its own Context which stores:
//   - ID: the driver-assigned thread identifier
//   - Frames: the call-frame markers entered so far (diagnostic only)
//   - Held: L(t), the set of locks the thread currently holds
//
// A Context is owned by exactly one engine and is never shared.
type Context struct {
	// ID is the thread identifier assigned by the driver.
	ID lockid.ThreadID

	// frames is the ordered call sequence, outermost first.
	frames []lockid.FrameMarker

	// held is L(t). Acquire adds, release removes.
	held *lockset.Set
}

// Alloc creates a Context with an empty call sequence and no held locks.
//
// Example:
//
//	ctx := Alloc(5)
//	// ctx.ID = T5, no frames, L(T5) = {}
func Alloc(id lockid.ThreadID) *Context {
	return &Context{
		ID:   id,
		held: lockset.New(),
	}
}

// PushFrame appends a call-frame marker to the thread's call sequence.
func (c *Context) PushFrame(f lockid.FrameMarker) {
	c.frames = append(c.frames, f)
}

// PopFrame removes the innermost call-frame marker.
//
// Returns false when the sequence is already empty.
func (c *Context) PopFrame() bool {
	if len(c.frames) == 0 {
		return false
	}
	c.frames = c.frames[:len(c.frames)-1]
	return true
}

// Frames returns a copy of the call sequence, outermost first.
func (c *Context) Frames() []lockid.FrameMarker {
	return slices.Clone(c.frames)
}

// Acquire adds l to L(t).
//
// Returns false if l was already held; the set is left unchanged.
func (c *Context) Acquire(l lockid.LockID) bool {
	return c.held.Add(l)
}

// Release removes l from L(t).
//
// Returns false if l was not held; the set is left unchanged.
func (c *Context) Release(l lockid.LockID) bool {
	return c.held.Remove(l)
}

// Held returns L(t).
//
// The returned set is the live set. Callers inside the engine may read it
// (e.g. for intersection) but must not modify it or hand it out; use
// HeldSorted for anything that leaves the engine.
func (c *Context) Held() *lockset.Set {
	return c.held
}

// HeldSorted returns the held locks in ascending order as a fresh slice.
func (c *Context) HeldSorted() []lockid.LockID {
	return c.held.Sorted()
}
