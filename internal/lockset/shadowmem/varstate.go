package shadowmem

import (
	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/lockset"
)

// State is the Eraser monitoring state of a memory location.
type State uint8

const (
	// Virgin: registered, never written. Reads leave it here.
	Virgin State = iota
	// Exclusive: written by exactly one thread, first(v), so far.
	Exclusive
	// Shared: read by a second thread, no conflicting write yet.
	Shared
	// SharedModified: written while shared. Absorbing.
	SharedModified
)

// String returns the conventional upper-case name of the state.
func (s State) String() string {
	switch s {
	case Virgin:
		return "VIRGIN"
	case Exclusive:
		return "EXCLUSIVE"
	case Shared:
		return "SHARED"
	case SharedModified:
		return "SHARED_MODIFIED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VarState stores the lockset analysis state for a single memory location.
//
// Invariants maintained by the methods below:
//   - state only moves forward (Virgin < Exclusive < Shared < SharedModified,
//     with Exclusive → SharedModified allowed directly)
//   - candidates is only ever replaced by a subset of itself
//   - first is written at most once
type VarState struct {
	state State

	// candidates is C(v).
	candidates *lockset.Set

	first    lockid.ThreadID
	hasFirst bool

	last    lockid.Marker
	hasLast bool

	// accesses counts RecordAccess calls that reached this location.
	accesses uint64
}

// NewVarState creates a Virgin location with an empty candidate set.
func NewVarState() *VarState {
	return &VarState{candidates: lockset.New()}
}

// State returns the current monitoring state.
func (vs *VarState) State() State {
	return vs.state
}

// Advance moves the location to next.
//
// Transitions that would move backwards are ignored and reported as false;
// a same-state "transition" is a successful no-op.
func (vs *VarState) Advance(next State) bool {
	if next < vs.state {
		return false
	}
	vs.state = next
	return true
}

// Seed adds l to C(v). It is only meaningful before the first access.
//
// Returns false if l was already a candidate.
func (vs *VarState) Seed(l lockid.LockID) bool {
	return vs.candidates.Add(l)
}

// Refine replaces C(v) with C(v) ∩ held and reports whether the result is empty.
//
// The emptiness check is made on the refined set, never on the set as it
// was before the intersection.
func (vs *VarState) Refine(held *lockset.Set) (empty bool) {
	vs.candidates = vs.candidates.Intersect(held)
	return vs.candidates.Empty()
}

// Candidates returns C(v) in ascending order as a fresh slice.
func (vs *VarState) Candidates() []lockid.LockID {
	return vs.candidates.Sorted()
}

// SetFirst records t as the first writer. Later calls are ignored.
func (vs *VarState) SetFirst(t lockid.ThreadID) bool {
	if vs.hasFirst {
		return false
	}
	vs.first = t
	vs.hasFirst = true
	return true
}

// First returns the first writer, if any.
func (vs *VarState) First() (lockid.ThreadID, bool) {
	return vs.first, vs.hasFirst
}

// Touch records m as the most recent access marker and counts the access.
func (vs *VarState) Touch(m lockid.Marker) {
	vs.last = m
	vs.hasLast = true
	vs.accesses++
}

// Last returns the most recent access marker, if any.
func (vs *VarState) Last() (lockid.Marker, bool) {
	return vs.last, vs.hasLast
}

// Accesses returns the number of recorded accesses.
func (vs *VarState) Accesses() uint64 {
	return vs.accesses
}

// Accessed reports whether any access has been recorded.
func (vs *VarState) Accessed() bool {
	return vs.accesses > 0
}
