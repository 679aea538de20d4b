package shadowmem

import (
	"slices"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// ShadowMemory is the registry of VarState cells for registered memory locations.
//
// Unlike an instrumentation-time shadow memory, cells are never created
// implicitly: a location exists only after Register. Lookups of unknown
// locations return nil so the caller can report the error.
//
// Thread Safety: none. A ShadowMemory belongs to one engine, which is
// driven by a single goroutine.
type ShadowMemory struct {
	cells map[lockid.MemID]*VarState
}

// NewShadowMemory creates an empty registry.
func NewShadowMemory() *ShadowMemory {
	return &ShadowMemory{cells: make(map[lockid.MemID]*VarState)}
}

// Register creates a Virgin cell for m.
//
// Returns the new cell and true, or nil and false if m is already registered.
func (sm *ShadowMemory) Register(m lockid.MemID) (*VarState, bool) {
	if _, ok := sm.cells[m]; ok {
		return nil, false
	}
	vs := NewVarState()
	sm.cells[m] = vs
	return vs, true
}

// Get returns the cell for m, or nil if m is not registered.
func (sm *ShadowMemory) Get(m lockid.MemID) *VarState {
	return sm.cells[m]
}

// Len returns the number of registered locations.
func (sm *ShadowMemory) Len() int {
	return len(sm.cells)
}

// IDs returns the registered locations in ascending order.
func (sm *ShadowMemory) IDs() []lockid.MemID {
	ids := make([]lockid.MemID, 0, len(sm.cells))
	for m := range sm.cells {
		ids = append(ids, m)
	}
	slices.Sort(ids)
	return ids
}

// CountByState returns how many locations are in each state.
func (sm *ShadowMemory) CountByState() map[State]int {
	counts := make(map[State]int, 4)
	for _, vs := range sm.cells {
		counts[vs.state]++
	}
	return counts
}

// Reset forgets every registered location.
func (sm *ShadowMemory) Reset() {
	sm.cells = make(map[lockid.MemID]*VarState)
}
