// Package engine implements the Eraser lockset race-candidate analysis.
//
// The engine consumes a serialized stream of events from an observed
// multithreaded program (thread creation, call frames, lock acquire and
// release, memory registration and accesses) and reports memory locations
// that are not consistently protected by any single lock.
//
// # Architecture
//
// The engine is built from four small pieces:
//
//  1. thread.Context: per-thread held-lock set L(t) and call frames
//  2. shadowmem.ShadowMemory: per-location state(v), C(v), first(v), last(v)
//  3. framedepot.Depot: deduplicated call-frame snapshots for race records
//  4. RecordAccess: the state machine and lockset refinement
//
// # Eraser Algorithm Overview
//
// Every location starts VIRGIN. The first write moves it to EXCLUSIVE and
// remembers the writing thread. While only that thread touches it nothing is
// checked, which keeps initialization code free of reports. An access by any
// other thread moves it to SHARED (read) or SHARED_MODIFIED (write). From
// then on every access refines the candidate set:
//
//	C(v) := C(v) ∩ L(t)
//
// When the refined C(v) is empty, the access is a race candidate.
//
// C(v) starts empty unless the driver seeds it with SeedCandidateLock, so an
// unseeded location reports on its first checked access. Seeding every
// location with every lock reproduces the classic "C(v) starts as all locks"
// behavior.
//
// # Thread Safety
//
// An Engine is NOT safe for concurrent use. Events must be delivered one at
// a time in program order. Independent analyses use independent engines.
//
// # Example Usage
//
//	e := engine.NewEngine()
//	e.RegisterThread(1)
//	e.RegisterThread(2)
//	e.RegisterMemoryLocation(100)
//	e.RecordAccess(100, 1, 10, true)
//	e.RecordAccess(100, 2, 20, true)
//	for _, line := range e.Results().Lines() {
//		fmt.Println(line)
//	}
//	// Lockset Analysis -
//	// Total # of data race detections: 1
//	// Memory Location:	Code Location:
//	// 100	20
package engine
