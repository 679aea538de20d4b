package engine

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// mustOK fails the test immediately if err is non-nil.
func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// setup creates an engine with the given threads and memory locations registered.
func setup(t *testing.T, opts Options, threads []lockid.ThreadID, mems []lockid.MemID) *Engine {
	t.Helper()
	e := NewEngineWithOptions(opts)
	for _, id := range threads {
		mustOK(t, e.RegisterThread(id))
	}
	for _, m := range mems {
		mustOK(t, e.RegisterMemoryLocation(m))
	}
	return e
}

// TestNewEngine verifies that NewEngine creates an empty engine.
func TestNewEngine(t *testing.T) {
	e := NewEngine()

	if e == nil {
		t.Fatal("NewEngine() returned nil")
	}
	if len(e.Threads()) != 0 {
		t.Errorf("Threads() = %v, want none", e.Threads())
	}
	if len(e.MemoryLocations()) != 0 {
		t.Errorf("MemoryLocations() = %v, want none", e.MemoryLocations())
	}
	if e.RunID() == uuid.Nil {
		t.Error("RunID() is the nil UUID")
	}
	if r := e.Results(); r.Count != 0 || !r.Empty() {
		t.Errorf("Results().Count = %d, want 0", r.Count)
	}
}

// TestRegisterThread_Duplicate tests duplicate thread registration.
func TestRegisterThread_Duplicate(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, nil)

	err := e.RegisterThread(1)
	if !errors.Is(err, ErrDuplicateThread) {
		t.Fatalf("RegisterThread(1) twice = %v, want ErrDuplicateThread", err)
	}

	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if lerr.Op != "RegisterThread" || lerr.Thread != 1 || lerr.Has != HasThread {
		t.Errorf("error = %+v", lerr)
	}
	if got := e.Stats().Rejected; got != 1 {
		t.Errorf("Stats().Rejected = %d, want 1", got)
	}
}

// TestRegisterMemoryLocation_Duplicate tests duplicate location registration.
func TestRegisterMemoryLocation_Duplicate(t *testing.T) {
	e := setup(t, Options{}, nil, []lockid.MemID{100})

	if err := e.RegisterMemoryLocation(100); !errors.Is(err, ErrDuplicateMemoryLocation) {
		t.Fatalf("RegisterMemoryLocation(100) twice = %v, want ErrDuplicateMemoryLocation", err)
	}

	st, err := e.State(100)
	mustOK(t, err)
	if st != Virgin {
		t.Errorf("State(100) = %v after duplicate registration, want VIRGIN", st)
	}
}

// TestUnknownThread tests that every thread operation rejects unregistered ids.
func TestUnknownThread(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})

	tests := []struct {
		name string
		call func() error
	}{
		{"PushCallFrame", func() error { return e.PushCallFrame(9, 1) }},
		{"PopCallFrame", func() error { return e.PopCallFrame(9) }},
		{"AcquireLock", func() error { return e.AcquireLock(9, 1) }},
		{"ReleaseLock", func() error { return e.ReleaseLock(9, 1) }},
		{"RecordAccess", func() error { return e.RecordAccess(100, 9, 1, true) }},
		{"HeldLocks", func() error { _, err := e.HeldLocks(9); return err }},
		{"CallFrames", func() error { _, err := e.CallFrames(9); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrUnknownThread) {
				t.Fatalf("%s = %v, want ErrUnknownThread", tt.name, err)
			}
			var lerr *Error
			if !errors.As(err, &lerr) || lerr.Op != tt.name {
				t.Errorf("error op = %v, want %s", err, tt.name)
			}
		})
	}
}

// TestUnknownMemoryLocation tests that every location operation rejects
// unregistered ids.
func TestUnknownMemoryLocation(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})

	tests := []struct {
		name string
		call func() error
	}{
		{"SeedCandidateLock", func() error { return e.SeedCandidateLock(7, 1) }},
		{"RecordAccess", func() error { return e.RecordAccess(7, 1, 1, false) }},
		{"State", func() error { _, err := e.State(7); return err }},
		{"Candidates", func() error { _, err := e.Candidates(7); return err }},
		{"Snapshot", func() error { _, err := e.Snapshot(7); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrUnknownMemoryLocation) {
				t.Fatalf("%s = %v, want ErrUnknownMemoryLocation", tt.name, err)
			}
		})
	}
}

// TestRecordAccess_RejectedLeavesNoTrace tests that a failed RecordAccess
// changes nothing.
func TestRecordAccess_RejectedLeavesNoTrace(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})

	if err := e.RecordAccess(100, 2, 5, true); err == nil {
		t.Fatal("RecordAccess by unknown thread succeeded")
	}

	snap, err := e.Snapshot(100)
	mustOK(t, err)
	if snap.State != Virgin || snap.HasLast || snap.HasFirst || snap.Accesses != 0 {
		t.Errorf("Snapshot after rejected access = %+v", snap)
	}

	s := e.Stats()
	if s.Writes != 0 || s.Reads != 0 {
		t.Errorf("Stats() counted a rejected access: %+v", s)
	}
}

// TestError_Message tests the error text.
func TestError_Message(t *testing.T) {
	e := setup(t, Options{}, nil, []lockid.MemID{100})

	err := e.RecordAccess(100, 3, 1, false)
	if err == nil {
		t.Fatal("RecordAccess by unknown thread succeeded")
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"returned", err, "lockset: RecordAccess(T3): unknown thread"},
		{"mem and thread", &Error{Op: "RecordAccess", Kind: ErrUnknownThread, Mem: 100, Thread: 3, Has: HasMem | HasThread}, "lockset: RecordAccess(M100, T3): unknown thread"},
		{"lock", &Error{Op: "ReleaseLock", Kind: ErrLockNotHeld, Thread: 1, Lock: 2, Has: HasThread | HasLock}, "lockset: ReleaseLock(T1, L2): lock not held"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestAcquireRelease_Strict tests the default lock policy.
func TestAcquireRelease_Strict(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, nil)

	mustOK(t, e.AcquireLock(1, 4))
	mustOK(t, e.AcquireLock(1, 2))

	if err := e.AcquireLock(1, 4); !errors.Is(err, ErrLockAlreadyHeld) {
		t.Errorf("AcquireLock of held lock = %v, want ErrLockAlreadyHeld", err)
	}

	held, err := e.HeldLocks(1)
	mustOK(t, err)
	if !slices.Equal(held, []lockid.LockID{2, 4}) {
		t.Errorf("HeldLocks(1) = %v, want [L2 L4]", held)
	}

	mustOK(t, e.ReleaseLock(1, 4))
	if err := e.ReleaseLock(1, 4); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("ReleaseLock of released lock = %v, want ErrLockNotHeld", err)
	}
	if err := e.ReleaseLock(1, 9); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("ReleaseLock of never-held lock = %v, want ErrLockNotHeld", err)
	}

	var lerr *Error
	err = e.ReleaseLock(1, 9)
	if !errors.As(err, &lerr) || lerr.Lock != 9 || lerr.Thread != 1 || lerr.Has != HasThread|HasLock {
		t.Errorf("ReleaseLock error = %+v", lerr)
	}

	held, _ = e.HeldLocks(1)
	if !slices.Equal(held, []lockid.LockID{2}) {
		t.Errorf("HeldLocks(1) = %v, want [L2]", held)
	}

	s := e.Stats()
	if s.Acquires != 2 || s.Releases != 1 || s.Rejected != 4 {
		t.Errorf("Stats() = %+v", s)
	}
}

// TestAcquireRelease_Lenient tests that lenient mode ignores redundant lock events.
func TestAcquireRelease_Lenient(t *testing.T) {
	e := setup(t, Options{Lenient: true}, []lockid.ThreadID{1}, nil)

	mustOK(t, e.AcquireLock(1, 1))
	mustOK(t, e.AcquireLock(1, 1))
	mustOK(t, e.ReleaseLock(1, 1))
	mustOK(t, e.ReleaseLock(1, 1))
	mustOK(t, e.ReleaseLock(1, 5))

	held, _ := e.HeldLocks(1)
	if len(held) != 0 {
		t.Errorf("HeldLocks(1) = %v, want none", held)
	}

	s := e.Stats()
	if s.IgnoredAcquires != 1 || s.IgnoredReleases != 2 || s.Rejected != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

// TestSeedCandidateLock tests seeding C(v).
func TestSeedCandidateLock(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})

	mustOK(t, e.SeedCandidateLock(100, 3))
	mustOK(t, e.SeedCandidateLock(100, 1))
	mustOK(t, e.SeedCandidateLock(100, 3))

	cands, err := e.Candidates(100)
	mustOK(t, err)
	if !slices.Equal(cands, []lockid.LockID{1, 3}) {
		t.Errorf("Candidates(100) = %v, want [L1 L3]", cands)
	}
	if got := e.Stats().Seeds; got != 2 {
		t.Errorf("Stats().Seeds = %d, want 2", got)
	}
}

// TestSeedCandidateLock_AfterAccess tests that C(v) cannot grow once accessed.
func TestSeedCandidateLock_AfterAccess(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})

	// A read of a VIRGIN location still counts as an access.
	mustOK(t, e.RecordAccess(100, 1, 1, false))

	err := e.SeedCandidateLock(100, 1)
	if !errors.Is(err, ErrSeedAfterAccess) {
		t.Fatalf("SeedCandidateLock after access = %v, want ErrSeedAfterAccess", err)
	}
	cands, _ := e.Candidates(100)
	if len(cands) != 0 {
		t.Errorf("Candidates(100) = %v after rejected seed", cands)
	}
}

// access is one RecordAccess call in a table-driven scenario.
type access struct {
	thread lockid.ThreadID
	marker lockid.Marker
	write  bool
	held   []lockid.LockID // locks the thread holds during the access
}

// run applies accesses to mem 100, acquiring and releasing each access's
// locks around it, and returns the state after every access.
func run(t *testing.T, e *Engine, steps []access) []State {
	t.Helper()
	var states []State
	for _, a := range steps {
		for _, l := range a.held {
			mustOK(t, e.AcquireLock(a.thread, l))
		}
		mustOK(t, e.RecordAccess(100, a.thread, a.marker, a.write))
		for _, l := range a.held {
			mustOK(t, e.ReleaseLock(a.thread, l))
		}
		st, err := e.State(100)
		mustOK(t, err)
		states = append(states, st)
	}
	return states
}

// TestRecordAccess_Transitions tests the state machine on unseeded locations.
func TestRecordAccess_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		steps      []access
		wantStates []State
		wantRaces  []lockid.Marker
	}{
		{
			name:       "virgin read stays virgin",
			steps:      []access{{1, 1, false, nil}, {2, 2, false, nil}},
			wantStates: []State{Virgin, Virgin},
		},
		{
			name:       "virgin write becomes exclusive",
			steps:      []access{{1, 1, true, nil}},
			wantStates: []State{Exclusive},
		},
		{
			name:       "owner keeps exclusive",
			steps:      []access{{1, 1, true, nil}, {1, 2, false, nil}, {1, 3, true, nil}},
			wantStates: []State{Exclusive, Exclusive, Exclusive},
		},
		{
			name:       "other read shares",
			steps:      []access{{1, 1, true, nil}, {2, 2, false, nil}},
			wantStates: []State{Exclusive, Shared},
			wantRaces:  []lockid.Marker{2},
		},
		{
			name:       "other write modifies",
			steps:      []access{{1, 1, true, nil}, {2, 2, true, nil}},
			wantStates: []State{Exclusive, SharedModified},
			wantRaces:  []lockid.Marker{2},
		},
		{
			name:       "shared read checks",
			steps:      []access{{1, 1, true, nil}, {2, 2, false, nil}, {1, 3, false, nil}},
			wantStates: []State{Exclusive, Shared, Shared},
			wantRaces:  []lockid.Marker{2, 3},
		},
		{
			name:       "shared write modifies",
			steps:      []access{{1, 1, true, nil}, {2, 2, false, nil}, {1, 3, true, nil}},
			wantStates: []State{Exclusive, Shared, SharedModified},
			wantRaces:  []lockid.Marker{2, 3},
		},
		{
			name:       "shared modified absorbs",
			steps:      []access{{1, 1, true, nil}, {2, 2, true, nil}, {1, 3, false, nil}, {2, 4, true, nil}},
			wantStates: []State{Exclusive, SharedModified, SharedModified, SharedModified},
			wantRaces:  []lockid.Marker{2, 3, 4},
		},
		{
			name:       "locks do not help an unseeded location",
			steps:      []access{{1, 1, true, []lockid.LockID{1}}, {2, 2, true, []lockid.LockID{1}}},
			wantStates: []State{Exclusive, SharedModified},
			wantRaces:  []lockid.Marker{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})

			states := run(t, e, tt.steps)
			if !slices.Equal(states, tt.wantStates) {
				t.Errorf("states = %v, want %v", states, tt.wantStates)
			}

			var markers []lockid.Marker
			for _, rec := range e.Results().Races {
				markers = append(markers, rec.Marker)
			}
			if !slices.Equal(markers, tt.wantRaces) {
				t.Errorf("race markers = %v, want %v", markers, tt.wantRaces)
			}
		})
	}
}

// TestRecordAccess_LastMarker tests that last(v) follows every access.
func TestRecordAccess_LastMarker(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})

	for _, a := range []access{{1, 5, false, nil}, {1, 6, true, nil}, {2, 7, true, nil}, {1, 8, false, nil}} {
		mustOK(t, e.RecordAccess(100, a.thread, a.marker, a.write))
		snap, _ := e.Snapshot(100)
		if !snap.HasLast || snap.Last != a.marker {
			t.Errorf("after access at %v: Last = %v (has %v)", a.marker, snap.Last, snap.HasLast)
		}
	}

	snap, _ := e.Snapshot(100)
	if snap.Accesses != 4 {
		t.Errorf("Accesses = %d, want 4", snap.Accesses)
	}
	if !snap.HasFirst || snap.First != 1 {
		t.Errorf("First = %v (has %v), want T1", snap.First, snap.HasFirst)
	}
	if snap.Races != 2 {
		t.Errorf("Races = %d, want 2", snap.Races)
	}
}

// TestVirginReads tests that reads of a VIRGIN location have no effect
// besides last(v).
func TestVirginReads(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2, 3}, []lockid.MemID{100})
	mustOK(t, e.SeedCandidateLock(100, 1))

	for i, tid := range []lockid.ThreadID{1, 2, 3, 1} {
		mustOK(t, e.RecordAccess(100, tid, lockid.Marker(i+1), false))
	}

	snap, _ := e.Snapshot(100)
	if snap.State != Virgin {
		t.Errorf("State = %v, want VIRGIN", snap.State)
	}
	if !slices.Equal(snap.Candidates, []lockid.LockID{1}) {
		t.Errorf("Candidates = %v, want [L1]", snap.Candidates)
	}
	if snap.HasFirst {
		t.Error("First set by reads")
	}
	if e.Results().Count != 0 {
		t.Errorf("Results().Count = %d, want 0", e.Results().Count)
	}
	if e.Stats().Intersections != 0 {
		t.Errorf("Intersections = %d, want 0", e.Stats().Intersections)
	}
}

// TestSingleThreadExclusivity tests that a location used by one thread never
// reports, whatever locks are held.
func TestSingleThreadExclusivity(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1}, []lockid.MemID{100})
	mustOK(t, e.SeedCandidateLock(100, 1))
	mustOK(t, e.SeedCandidateLock(100, 2))

	steps := []access{
		{1, 1, true, nil},
		{1, 2, false, []lockid.LockID{3}},
		{1, 3, true, []lockid.LockID{1}},
		{1, 4, false, nil},
	}
	states := run(t, e, steps)

	for i, st := range states {
		if st != Exclusive {
			t.Errorf("state after access %d = %v, want EXCLUSIVE", i+1, st)
		}
	}
	cands, _ := e.Candidates(100)
	if !slices.Equal(cands, []lockid.LockID{1, 2}) {
		t.Errorf("Candidates = %v, want [L1 L2]", cands)
	}
	if e.Results().Count != 0 {
		t.Errorf("Results().Count = %d, want 0", e.Results().Count)
	}
}

// TestMonotonicShrink tests that C(v) only ever loses locks.
func TestMonotonicShrink(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2, 3}, []lockid.MemID{100})
	for _, l := range []lockid.LockID{1, 2, 3, 4} {
		mustOK(t, e.SeedCandidateLock(100, l))
	}

	steps := []access{
		{1, 1, true, []lockid.LockID{1, 2, 3, 4, 5}},
		{2, 2, false, []lockid.LockID{1, 2, 3, 5}},
		{3, 3, false, []lockid.LockID{1, 2, 4, 5, 6}},
		{1, 4, true, []lockid.LockID{1, 5, 6, 7}},
		{2, 5, false, []lockid.LockID{1, 2, 3, 4, 5, 6, 7}},
		{3, 6, true, []lockid.LockID{8}},
		{1, 7, true, []lockid.LockID{1}},
	}

	prev, _ := e.Candidates(100)
	for _, a := range steps {
		run(t, e, []access{a})
		cur, _ := e.Candidates(100)
		for _, l := range cur {
			if !slices.Contains(prev, l) {
				t.Fatalf("after access at %v: %v gained %v (was %v)", a.marker, cur, l, prev)
			}
		}
		prev = cur
	}

	if len(prev) != 0 {
		t.Errorf("final Candidates = %v, want none", prev)
	}

	var markers []lockid.Marker
	for _, rec := range e.Results().Races {
		markers = append(markers, rec.Marker)
	}
	if !slices.Equal(markers, []lockid.Marker{6, 7}) {
		t.Errorf("race markers = %v, want [@6 @7]", markers)
	}
}

// TestNoFalsePositiveUnderDiscipline tests that consistently locked
// accesses never report.
func TestNoFalsePositiveUnderDiscipline(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2, 3}, []lockid.MemID{100})
	mustOK(t, e.SeedCandidateLock(100, 1))
	mustOK(t, e.SeedCandidateLock(100, 2))

	steps := []access{
		{1, 1, true, []lockid.LockID{1}},
		{2, 2, false, []lockid.LockID{1, 2}},
		{3, 3, true, []lockid.LockID{1}},
		{1, 4, false, []lockid.LockID{3, 1}},
		{2, 5, true, []lockid.LockID{1}},
	}
	states := run(t, e, steps)

	if got := states[len(states)-1]; got != SharedModified {
		t.Errorf("final state = %v, want SHARED_MODIFIED", got)
	}
	if r := e.Results(); r.Count != 0 {
		t.Errorf("Results().Count = %d, want 0: %v", r.Count, r.Races)
	}
	cands, _ := e.Candidates(100)
	if !slices.Equal(cands, []lockid.LockID{1}) {
		t.Errorf("Candidates = %v, want [L1]", cands)
	}
}

// TestGuaranteedDetection tests that omitting the protecting lock in a
// shared state always reports.
func TestGuaranteedDetection(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})
	mustOK(t, e.SeedCandidateLock(100, 1))

	run(t, e, []access{
		{1, 10, true, []lockid.LockID{1}},
		{2, 20, true, []lockid.LockID{1}},
		{1, 30, false, nil},
	})

	r := e.Results()
	if r.Count != 1 {
		t.Fatalf("Results().Count = %d, want 1", r.Count)
	}
	rec := r.Races[0]
	if rec.Mem != 100 || rec.Marker != 30 || rec.Thread != 1 || rec.Write || rec.State != SharedModified {
		t.Errorf("race = %+v", rec)
	}
}

// TestRaceDoesNotStopAnalysis tests that a race leaves the state machine running.
func TestRaceDoesNotStopAnalysis(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100, 200})

	mustOK(t, e.RecordAccess(100, 1, 1, true))
	mustOK(t, e.RecordAccess(100, 2, 2, false))
	mustOK(t, e.RecordAccess(200, 2, 3, true))
	mustOK(t, e.RecordAccess(100, 2, 4, true))

	if st, _ := e.State(100); st != SharedModified {
		t.Errorf("State(100) = %v, want SHARED_MODIFIED", st)
	}
	if st, _ := e.State(200); st != Exclusive {
		t.Errorf("State(200) = %v, want EXCLUSIVE", st)
	}
	if got := e.Results().Count; got != 2 {
		t.Errorf("Results().Count = %d, want 2", got)
	}
}

// TestEndToEndScenario tests the canonical two-thread write-write race.
func TestEndToEndScenario(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})

	mustOK(t, e.RecordAccess(100, 1, 10, true))
	mustOK(t, e.RecordAccess(100, 2, 20, true))

	r := e.Results()
	if r.Count != 1 || len(r.Races) != 1 {
		t.Fatalf("Results() = %+v, want exactly one race", r)
	}
	if r.Races[0].Mem != 100 || r.Races[0].Marker != 20 {
		t.Errorf("race = (%d, %d), want (100, 20)", r.Races[0].Mem, r.Races[0].Marker)
	}

	want := []string{
		"Lockset Analysis -",
		"Total # of data race detections: 1",
		"Memory Location:\tCode Location:",
		"100\t20",
	}
	if got := r.Lines(); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

// TestDedup tests that Dedup keeps the first race per location.
func TestDedup(t *testing.T) {
	e := setup(t, Options{Dedup: true}, []lockid.ThreadID{1, 2}, []lockid.MemID{100, 200})

	for _, m := range []lockid.MemID{100, 200} {
		mustOK(t, e.RecordAccess(m, 1, 1, true))
		mustOK(t, e.RecordAccess(m, 2, 2, true))
		mustOK(t, e.RecordAccess(m, 1, 3, true))
		mustOK(t, e.RecordAccess(m, 2, 4, false))
	}

	r := e.Results()
	if r.Count != 2 {
		t.Fatalf("Results().Count = %d, want 2", r.Count)
	}
	if !slices.Equal(r.Locations(), []lockid.MemID{100, 200}) {
		t.Errorf("Locations() = %v", r.Locations())
	}
	for _, rec := range r.Races {
		if rec.Marker != 2 {
			t.Errorf("kept race at %v, want the first (@2)", rec.Marker)
		}
	}
	if got := e.Stats().SuppressedRaces; got != 4 {
		t.Errorf("SuppressedRaces = %d, want 4", got)
	}
}

// TestCallFrames tests frame push/pop and race-record snapshots.
func TestCallFrames(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})

	mustOK(t, e.PopCallFrame(2)) // empty: no-op
	mustOK(t, e.PushCallFrame(2, 1))
	mustOK(t, e.PushCallFrame(2, 5))
	mustOK(t, e.PushCallFrame(2, 9))
	mustOK(t, e.PopCallFrame(2))

	frames, err := e.CallFrames(2)
	mustOK(t, err)
	if !slices.Equal(frames, []lockid.FrameMarker{1, 5}) {
		t.Fatalf("CallFrames(2) = %v, want [F1 F5]", frames)
	}

	mustOK(t, e.RecordAccess(100, 1, 10, true))
	mustOK(t, e.RecordAccess(100, 2, 20, true))
	mustOK(t, e.PopCallFrame(2))

	r := e.Results()
	if len(r.Races) != 1 {
		t.Fatalf("Results().Count = %d, want 1", r.Count)
	}
	if !slices.Equal(r.Races[0].Frames, []lockid.FrameMarker{1, 5}) {
		t.Errorf("race frames = %v, want the snapshot [F1 F5]", r.Races[0].Frames)
	}
	if got := e.Stats().FrameSnapshots; got != 1 {
		t.Errorf("FrameSnapshots = %d, want 1", got)
	}
}

// TestQueries_Ordering tests that listing queries are sorted.
func TestQueries_Ordering(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{3, 1, 2}, []lockid.MemID{30, 10, 20})

	if got := e.Threads(); !slices.Equal(got, []lockid.ThreadID{1, 2, 3}) {
		t.Errorf("Threads() = %v", got)
	}
	if got := e.MemoryLocations(); !slices.Equal(got, []lockid.MemID{10, 20, 30}) {
		t.Errorf("MemoryLocations() = %v", got)
	}

	snaps := e.Snapshots()
	if len(snaps) != 3 || snaps[0].Mem != 10 || snaps[2].Mem != 30 {
		t.Errorf("Snapshots() = %+v", snaps)
	}
}

// TestStats tests aggregate counters.
func TestStats(t *testing.T) {
	e := setup(t, Options{}, []lockid.ThreadID{1, 2}, []lockid.MemID{100, 200, 300})

	mustOK(t, e.RecordAccess(100, 1, 1, true))  // VIRGIN -> EXCLUSIVE
	mustOK(t, e.RecordAccess(100, 2, 2, false)) // EXCLUSIVE -> SHARED, race
	mustOK(t, e.RecordAccess(100, 2, 3, true))  // SHARED -> SHARED_MODIFIED, race
	mustOK(t, e.RecordAccess(200, 1, 4, false)) // VIRGIN read
	mustOK(t, e.RecordAccess(300, 2, 5, true))  // VIRGIN -> EXCLUSIVE

	s := e.Stats()
	if s.Threads != 2 || s.Locations != 3 {
		t.Errorf("Threads/Locations = %d/%d, want 2/3", s.Threads, s.Locations)
	}
	if s.Reads != 2 || s.Writes != 3 {
		t.Errorf("Reads/Writes = %d/%d, want 2/3", s.Reads, s.Writes)
	}
	if s.Transitions != 4 {
		t.Errorf("Transitions = %d, want 4", s.Transitions)
	}
	if s.Intersections != 2 || s.Races != 2 {
		t.Errorf("Intersections/Races = %d/%d, want 2/2", s.Intersections, s.Races)
	}
	if s.ByState[Virgin] != 1 || s.ByState[Exclusive] != 1 || s.ByState[SharedModified] != 1 {
		t.Errorf("ByState = %v", s.ByState)
	}
}

// TestReset tests that Reset starts a fresh run.
func TestReset(t *testing.T) {
	e := setup(t, Options{Dedup: true}, []lockid.ThreadID{1, 2}, []lockid.MemID{100})
	mustOK(t, e.PushCallFrame(2, 4))
	mustOK(t, e.RecordAccess(100, 1, 1, true))
	mustOK(t, e.RecordAccess(100, 2, 2, true))
	if e.Stats().FrameSnapshots != 1 {
		t.Fatalf("FrameSnapshots = %d before Reset, want 1", e.Stats().FrameSnapshots)
	}
	before := e.RunID()

	e.Reset()

	if e.RunID() == before {
		t.Error("RunID() unchanged by Reset")
	}
	if len(e.Threads()) != 0 || len(e.MemoryLocations()) != 0 {
		t.Error("registrations survived Reset")
	}
	if e.Results().Count != 0 {
		t.Error("races survived Reset")
	}
	if s := e.Stats(); s.FrameSnapshots != 0 || s.Races != 0 {
		t.Errorf("Stats() after Reset = %+v", s)
	}

	// Dedup survives: three racy writes still yield one record.
	mustOK(t, e.RegisterThread(1))
	mustOK(t, e.RegisterThread(2))
	mustOK(t, e.RegisterMemoryLocation(100))
	mustOK(t, e.RecordAccess(100, 1, 1, true))
	mustOK(t, e.RecordAccess(100, 2, 2, true))
	mustOK(t, e.RecordAccess(100, 1, 3, true))
	if got := e.Results().Count; got != 1 {
		t.Errorf("Count after Reset with Dedup = %d, want 1", got)
	}
}
