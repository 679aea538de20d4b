// Package lockid defines the opaque identifiers exchanged between a trace
// driver and the lockset engine.
//
// Every identifier is a distinct named integer type. The driver owns id
// allocation; the engine only compares ids by value. Using separate types
// keeps a thread id from being passed where a lock id is expected, which
// matters because the engine's correctness depends on "same lock" and
// "same thread" checks being plain value equality.
package lockid

import "strconv"

// ThreadID identifies a thread of the observed program.
type ThreadID uint32

// LockID identifies a lock of the observed program.
//
// Locks are never registered; a LockID comes into existence the first time
// it is acquired or seeded as a candidate.
type LockID uint32

// MemID identifies a shared memory location (a variable, field or heap cell).
type MemID uint64

// Marker identifies a source location (e.g. an instruction id or line) at
// which an access happened.
type Marker uint32

// FrameMarker identifies a call frame entered by a thread. Frames are
// diagnostic only and never influence race detection.
type FrameMarker uint32

// String returns the decimal form of the thread id prefixed with "T".
func (t ThreadID) String() string {
	return "T" + strconv.FormatUint(uint64(t), 10)
}

// String returns the decimal form of the lock id prefixed with "L".
func (l LockID) String() string {
	return "L" + strconv.FormatUint(uint64(l), 10)
}

// String returns the decimal form of the memory id prefixed with "M".
func (m MemID) String() string {
	return "M" + strconv.FormatUint(uint64(m), 10)
}

// String returns the decimal form of the marker prefixed with "@".
func (m Marker) String() string {
	return "@" + strconv.FormatUint(uint64(m), 10)
}

// String returns the decimal form of the frame marker prefixed with "F".
func (f FrameMarker) String() string {
	return "F" + strconv.FormatUint(uint64(f), 10)
}
