package engine

import (
	"slices"

	"github.com/google/uuid"
	"v.io/x/lib/vlog"

	"github.com/kolkov/lockset/internal/lockset/framedepot"
	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/shadowmem"
	"github.com/kolkov/lockset/internal/lockset/thread"
)

// State is the monitoring state of a memory location.
type State = shadowmem.State

// Monitoring states, re-exported for callers that only import engine.
const (
	Virgin         = shadowmem.Virgin
	Exclusive      = shadowmem.Exclusive
	Shared         = shadowmem.Shared
	SharedModified = shadowmem.SharedModified
)

// Options configures an Engine.
//
// Usage:
//
//	// Default: strict lock policy, one record per race-triggering access.
//	e := NewEngine()
//
//	// Replay a trace recorded by a tool that emits redundant lock events.
//	e := NewEngineWithOptions(Options{Lenient: true})
type Options struct {
	// Lenient turns acquiring an already-held lock and releasing a lock that
	// is not held into no-ops (counted in Stats) instead of errors.
	// Default: false, both are rejected with ErrLockAlreadyHeld / ErrLockNotHeld.
	Lenient bool

	// Dedup keeps only the first race record per memory location. Later
	// race-triggering accesses are counted in Stats.SuppressedRaces.
	// Default: false, every race-triggering access yields a record.
	Dedup bool

	// Logger receives transition (VI(2)) and race (VI(1)) logs.
	// Default: vlog.Log.
	Logger *vlog.Logger
}

// Stats tracks engine activity.
//
// Counters only cover accepted calls, except Rejected which counts calls
// that returned an error.
type Stats struct {
	Threads   int // Registered threads.
	Locations int // Registered memory locations.

	Reads         uint64 // Accepted read accesses.
	Writes        uint64 // Accepted write accesses.
	Acquires      uint64 // Locks added to some L(t).
	Releases      uint64 // Locks removed from some L(t).
	Seeds         uint64 // Candidates added to some C(v).
	Transitions   uint64 // Accesses that changed state(v).
	Intersections uint64 // C(v) ∩ L(t) refinements.
	Races         uint64 // Race records produced.

	SuppressedRaces uint64 // Race checks that fired but were dropped by Dedup.
	IgnoredAcquires uint64 // Lenient no-op acquires.
	IgnoredReleases uint64 // Lenient no-op releases.
	Rejected        uint64 // Calls that returned an error.

	ByState map[State]int // Locations per monitoring state.

	FrameSnapshots int // Unique call-frame snapshots stored for race records.
}

// Engine implements the Eraser lockset algorithm over a serialized event stream.
//
// It owns all per-thread state (L(t), call frames) and per-location state
// (state(v), C(v), first(v), last(v)), and accumulates race records. There
// is no package-level state: construct one Engine per analysis run and pass
// it explicitly.
//
// Thread Safety: NOT safe for concurrent use. The driver must deliver events
// one at a time, in the order they affected lock and memory state in the
// observed program.
type Engine struct {
	opts  Options
	log   *vlog.Logger
	runID uuid.UUID

	threads map[lockid.ThreadID]*thread.Context
	shadow  *shadowmem.ShadowMemory
	frames  *framedepot.Depot

	// races is append-only; records are in event order.
	races []RaceRecord

	// racedMem counts records per location, for Dedup and snapshots.
	racedMem map[lockid.MemID]int

	// seq numbers accepted RecordAccess calls, starting at 1.
	seq uint64

	stats Stats
}

// NewEngine creates an engine with default Options.
//
// Example:
//
//	e := NewEngine()
//	e.RegisterThread(1)
//	e.RegisterMemoryLocation(100)
//	e.RecordAccess(100, 1, 10, true)
func NewEngine() *Engine {
	return NewEngineWithOptions(Options{})
}

// NewEngineWithOptions creates an engine configured by opts.
func NewEngineWithOptions(opts Options) *Engine {
	e := &Engine{
		opts:   opts,
		log:    opts.Logger,
		shadow: shadowmem.NewShadowMemory(),
		frames: framedepot.New(),
	}
	if e.log == nil {
		e.log = vlog.Log
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.runID = uuid.New()
	e.threads = make(map[lockid.ThreadID]*thread.Context)
	e.shadow.Reset()
	e.frames.Reset()
	e.races = nil
	e.racedMem = make(map[lockid.MemID]int)
	e.seq = 0
	e.stats = Stats{}
}

// Reset discards all threads, locations and race records and starts a new
// run with a fresh run ID. Options are kept.
func (e *Engine) Reset() {
	e.reset()
}

// RunID identifies this analysis run. It is stamped on every Report.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// === Registration ===

// RegisterThread creates an empty call-frame sequence and an empty held-lock
// set for t.
//
// Returns ErrDuplicateThread if t is already registered.
func (e *Engine) RegisterThread(t lockid.ThreadID) error {
	if _, ok := e.threads[t]; ok {
		return e.reject(threadError("RegisterThread", ErrDuplicateThread, t))
	}
	e.threads[t] = thread.Alloc(t)
	e.log.VI(3).Infof("register %v", t)
	return nil
}

// PushCallFrame appends f to the diagnostic call sequence of t.
//
// Returns ErrUnknownThread if t is not registered.
func (e *Engine) PushCallFrame(t lockid.ThreadID, f lockid.FrameMarker) error {
	ctx, err := e.thread("PushCallFrame", t)
	if err != nil {
		return err
	}
	ctx.PushFrame(f)
	return nil
}

// PopCallFrame removes the innermost frame of t. Popping an empty sequence
// is a no-op.
//
// Returns ErrUnknownThread if t is not registered.
func (e *Engine) PopCallFrame(t lockid.ThreadID) error {
	ctx, err := e.thread("PopCallFrame", t)
	if err != nil {
		return err
	}
	ctx.PopFrame()
	return nil
}

// AcquireLock adds l to L(t).
//
// Returns ErrUnknownThread if t is not registered, and ErrLockAlreadyHeld
// if t already holds l (unless Options.Lenient).
func (e *Engine) AcquireLock(t lockid.ThreadID, l lockid.LockID) error {
	ctx, err := e.thread("AcquireLock", t)
	if err != nil {
		return err
	}
	if !ctx.Acquire(l) {
		if e.opts.Lenient {
			e.stats.IgnoredAcquires++
			return nil
		}
		return e.reject(lockError("AcquireLock", ErrLockAlreadyHeld, t, l))
	}
	e.stats.Acquires++
	return nil
}

// ReleaseLock removes l from L(t).
//
// Returns ErrUnknownThread if t is not registered, and ErrLockNotHeld if t
// does not hold l (unless Options.Lenient).
func (e *Engine) ReleaseLock(t lockid.ThreadID, l lockid.LockID) error {
	ctx, err := e.thread("ReleaseLock", t)
	if err != nil {
		return err
	}
	if !ctx.Release(l) {
		if e.opts.Lenient {
			e.stats.IgnoredReleases++
			return nil
		}
		return e.reject(lockError("ReleaseLock", ErrLockNotHeld, t, l))
	}
	e.stats.Releases++
	return nil
}

// RegisterMemoryLocation creates m in state VIRGIN with C(m) = {}.
//
// Returns ErrDuplicateMemoryLocation if m is already registered.
func (e *Engine) RegisterMemoryLocation(m lockid.MemID) error {
	if _, ok := e.shadow.Register(m); !ok {
		return e.reject(memError("RegisterMemoryLocation", ErrDuplicateMemoryLocation, m))
	}
	e.log.VI(3).Infof("register %v", m)
	return nil
}

// SeedCandidateLock adds l to C(m). Seeding the same lock twice is a no-op.
//
// Seeding must happen before the first RecordAccess on m; afterwards it
// would let C(m) grow, so it is rejected with ErrSeedAfterAccess.
// Returns ErrUnknownMemoryLocation if m is not registered.
func (e *Engine) SeedCandidateLock(m lockid.MemID, l lockid.LockID) error {
	vs, err := e.location("SeedCandidateLock", m)
	if err != nil {
		return err
	}
	if vs.Accessed() {
		return e.reject(&Error{Op: "SeedCandidateLock", Kind: ErrSeedAfterAccess, Mem: m, Lock: l, Has: HasMem | HasLock})
	}
	if vs.Seed(l) {
		e.stats.Seeds++
	}
	return nil
}

// === Core ===

// RecordAccess applies one memory access to the state machine of m.
//
// Transition table (state(m), condition → new state, C(m), race check):
//
//	VIRGIN           read                  → VIRGIN           unchanged          none
//	VIRGIN           write                 → EXCLUSIVE        unchanged, first:=t none
//	EXCLUSIVE        by first(m)           → EXCLUSIVE        unchanged          none
//	EXCLUSIVE        read, other thread    → SHARED           C ∩ L(t)           C = {} → race
//	EXCLUSIVE        write, other thread   → SHARED_MODIFIED  C ∩ L(t)           C = {} → race
//	SHARED           read                  → SHARED           C ∩ L(t)           C = {} → race
//	SHARED           write                 → SHARED_MODIFIED  C ∩ L(t)           C = {} → race
//	SHARED_MODIFIED  read or write         → SHARED_MODIFIED  C ∩ L(t)           C = {} → race
//
// last(m) is set to marker on every accepted call. A race appends one
// RaceRecord(m, marker) and does not otherwise affect analysis.
//
// Returns ErrUnknownMemoryLocation or ErrUnknownThread for unregistered ids;
// nothing is changed in that case.
func (e *Engine) RecordAccess(m lockid.MemID, t lockid.ThreadID, marker lockid.Marker, isWrite bool) error {
	vs, err := e.location("RecordAccess", m)
	if err != nil {
		return err
	}
	ctx, err := e.thread("RecordAccess", t)
	if err != nil {
		return err
	}

	e.seq++
	if isWrite {
		e.stats.Writes++
	} else {
		e.stats.Reads++
	}

	prev := vs.State()
	race := false

	switch prev {
	case Virgin:
		if isWrite {
			vs.Advance(Exclusive)
			vs.SetFirst(t)
		}

	case Exclusive:
		first, _ := vs.First()
		if first == t {
			break
		}
		if isWrite {
			vs.Advance(SharedModified)
		} else {
			vs.Advance(Shared)
		}
		race = e.intersect(vs, ctx)

	case Shared:
		if isWrite {
			vs.Advance(SharedModified)
		}
		race = e.intersect(vs, ctx)

	case SharedModified:
		race = e.intersect(vs, ctx)
	}

	vs.Touch(marker)

	if next := vs.State(); next != prev {
		e.stats.Transitions++
		e.log.VI(2).Infof("%v: %v -> %v on %s by %v at %v", m, prev, next, accessKind(isWrite), t, marker)
	}

	if race {
		e.recordRace(m, ctx, marker, isWrite, vs.State())
	}
	return nil
}

// intersect is the lockset refinement primitive: C(v) := C(v) ∩ L(t).
//
// It reports whether the refined C(v) is empty. The check is on the result
// of the intersection, not on C(v) as it was before.
func (e *Engine) intersect(vs *shadowmem.VarState, ctx *thread.Context) (empty bool) {
	e.stats.Intersections++
	return vs.Refine(ctx.Held())
}

// recordRace appends a race record for an access whose refinement left C(v) empty.
func (e *Engine) recordRace(m lockid.MemID, ctx *thread.Context, marker lockid.Marker, isWrite bool, state State) {
	if e.opts.Dedup && e.racedMem[m] > 0 {
		e.stats.SuppressedRaces++
		return
	}

	rec := RaceRecord{
		Mem:       m,
		Marker:    marker,
		Thread:    ctx.ID,
		Write:     isWrite,
		State:     state,
		Seq:       e.seq,
		frameHash: e.frames.Put(ctx.Frames()),
	}
	e.races = append(e.races, rec)
	e.racedMem[m]++
	e.stats.Races++

	e.log.VI(1).Infof("race candidate: %s of %v at %v by %v (state %v, no common lock)",
		accessKind(isWrite), m, marker, ctx.ID, state)
}

// === Queries ===

// State returns state(m).
func (e *Engine) State(m lockid.MemID) (State, error) {
	vs, err := e.location("State", m)
	if err != nil {
		return Virgin, err
	}
	return vs.State(), nil
}

// Candidates returns C(m) in ascending order. The slice is a copy.
func (e *Engine) Candidates(m lockid.MemID) ([]lockid.LockID, error) {
	vs, err := e.location("Candidates", m)
	if err != nil {
		return nil, err
	}
	return vs.Candidates(), nil
}

// Snapshot is a point-in-time copy of one memory location's analysis state.
type Snapshot struct {
	Mem        lockid.MemID
	State      State
	Candidates []lockid.LockID
	First      lockid.ThreadID
	HasFirst   bool
	Last       lockid.Marker
	HasLast    bool
	Accesses   uint64
	Races      int
}

// Snapshot returns a copy of the state of m.
func (e *Engine) Snapshot(m lockid.MemID) (Snapshot, error) {
	vs, err := e.location("Snapshot", m)
	if err != nil {
		return Snapshot{}, err
	}
	return e.snapshot(m, vs), nil
}

// Snapshots returns a copy of every registered location, ordered by id.
func (e *Engine) Snapshots() []Snapshot {
	ids := e.shadow.IDs()
	out := make([]Snapshot, 0, len(ids))
	for _, m := range ids {
		out = append(out, e.snapshot(m, e.shadow.Get(m)))
	}
	return out
}

func (e *Engine) snapshot(m lockid.MemID, vs *shadowmem.VarState) Snapshot {
	first, hasFirst := vs.First()
	last, hasLast := vs.Last()
	return Snapshot{
		Mem:        m,
		State:      vs.State(),
		Candidates: vs.Candidates(),
		First:      first,
		HasFirst:   hasFirst,
		Last:       last,
		HasLast:    hasLast,
		Accesses:   vs.Accesses(),
		Races:      e.racedMem[m],
	}
}

// HeldLocks returns L(t) in ascending order. The slice is a copy.
func (e *Engine) HeldLocks(t lockid.ThreadID) ([]lockid.LockID, error) {
	ctx, err := e.thread("HeldLocks", t)
	if err != nil {
		return nil, err
	}
	return ctx.HeldSorted(), nil
}

// CallFrames returns the call sequence of t, outermost first. The slice is a copy.
func (e *Engine) CallFrames(t lockid.ThreadID) ([]lockid.FrameMarker, error) {
	ctx, err := e.thread("CallFrames", t)
	if err != nil {
		return nil, err
	}
	return ctx.Frames(), nil
}

// Threads returns the registered thread ids in ascending order.
func (e *Engine) Threads() []lockid.ThreadID {
	ids := make([]lockid.ThreadID, 0, len(e.threads))
	for t := range e.threads {
		ids = append(ids, t)
	}
	slices.Sort(ids)
	return ids
}

// MemoryLocations returns the registered memory ids in ascending order.
func (e *Engine) MemoryLocations() []lockid.MemID {
	return e.shadow.IDs()
}

// Stats returns a copy of the engine statistics.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Threads = len(e.threads)
	s.Locations = e.shadow.Len()
	s.ByState = e.shadow.CountByState()
	s.FrameSnapshots, _ = e.frames.Stats()
	return s
}

// === helpers ===

func (e *Engine) thread(op string, t lockid.ThreadID) (*thread.Context, error) {
	ctx, ok := e.threads[t]
	if !ok {
		return nil, e.reject(threadError(op, ErrUnknownThread, t))
	}
	return ctx, nil
}

func (e *Engine) location(op string, m lockid.MemID) (*shadowmem.VarState, error) {
	vs := e.shadow.Get(m)
	if vs == nil {
		return nil, e.reject(memError(op, ErrUnknownMemoryLocation, m))
	}
	return vs, nil
}

func (e *Engine) reject(err *Error) error {
	e.stats.Rejected++
	e.log.VI(2).Infof("rejected: %v", err)
	return err
}

func accessKind(isWrite bool) string {
	if isWrite {
		return "write"
	}
	return "read"
}
