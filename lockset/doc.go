// Package lockset finds lock-discipline violations in recorded executions of
// multithreaded programs using the Eraser lockset algorithm.
//
// The analyzer does not observe a program itself. A driver (an
// instrumentation layer, a trace file, or test code) reports what the
// program did: threads starting, call frames, locks acquired and released,
// shared memory locations and accesses to them. For every location the
// analyzer keeps a set of candidate locks and narrows it to the locks held
// on each shared access. A location whose candidate set becomes empty is
// reported as a race candidate.
//
// # Quick Start
//
// Drive an engine directly:
//
//	e := lockset.NewEngine()
//	e.RegisterThread(1)
//	e.RegisterThread(2)
//	e.RegisterMemoryLocation(100)
//
//	e.RecordAccess(100, 1, 10, true) // thread 1 writes at marker 10
//	e.RecordAccess(100, 2, 20, true) // thread 2 writes at marker 20, no lock
//
//	for _, line := range e.Results().Lines() {
//		fmt.Println(line)
//	}
//
// Or replay a trace file:
//
//	t, err := lockset.ParseTrace(f)
//	...
//	e, err := lockset.Analyze(ctx, t, lockset.AnalyzeOptions{})
//	...
//	e.Results().Format(os.Stdout)
//
// Or report from the goroutines of a running program through a [Recorder],
// which serializes events into one engine and keeps a replayable trace.
//
// # API Overview
//
// The package provides:
//   - Engine construction: [NewEngine], [NewEngineWithOptions]
//   - Trace handling: [ParseTrace], [ValidateTrace], [NewTrace], [Analyze]
//   - Live programs: [NewRecorder]
//   - Version information: [GetInfo], [Version]
//
// # Monitoring States
//
// Each location moves forward through four states:
//
//	VIRGIN ──write──▶ EXCLUSIVE ──read by other──▶ SHARED
//	                      │                          │
//	                      └──write by other──▶ SHARED_MODIFIED ◀──write──┘
//
// Candidate sets are refined, and races reported, only on accesses that
// happen outside VIRGIN and outside the owning thread's EXCLUSIVE phase.
//
// # Candidate Seeding
//
// A new location's candidate set is empty, so the first checked access is
// reported unless the driver first seeds the locks that are supposed to
// protect it (Engine.SeedCandidateLock), or replays with
// AnalyzeOptions.SeedUniverse.
//
// # Limitations
//
// Lockset analysis reports lock-discipline violations, not proven races.
// It knows nothing about happens-before ordering through channels, joins,
// or atomics, so correctly synchronized code that does not use locks is
// reported too.
package lockset
