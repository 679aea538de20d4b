// Package shadowmem implements per-location state for Eraser lockset analysis.
//
// # Overview
//
// For every registered memory location v, a VarState cell records:
//   - state(v): VIRGIN, EXCLUSIVE, SHARED or SHARED_MODIFIED
//   - C(v): the candidate locks believed to protect v
//   - first(v): the thread that performed the first write
//   - last(v): the source marker of the most recent access
//
// # Components
//
// VarState: a single cell with forward-only state changes and a candidate
// set that can only shrink (Refine intersects it with a thread's held set).
//
// ShadowMemory: the registry from memory ids to VarState cells. Unknown ids
// are never created on lookup; callers decide how to report them.
//
// The transition rules themselves live in the engine; this package only
// guarantees the invariants that every rule relies on.
package shadowmem
