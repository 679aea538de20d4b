package trace

import (
	"fmt"

	"github.com/kolkov/lockset/internal/lockset/engine"
	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/lockset"
)

// Problem is a structural defect found by Validate.
type Problem struct {
	Index int   // 0-based position in Trace.Events
	Line  int   // source line, 0 if unknown
	Kind  error // the engine error the event would cause
	Event Event
}

// String formats the problem as "line N: event: kind".
func (p Problem) String() string {
	where := fmt.Sprintf("event %d", p.Index)
	if p.Line > 0 {
		where = fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s: %v: %v", where, p.Event, p.Kind)
}

// LockPolicy reports whether the problem is a lock-balance problem that
// engine.Options.Lenient would ignore.
func (p Problem) LockPolicy() bool {
	return p.Kind == engine.ErrLockAlreadyHeld || p.Kind == engine.ErrLockNotHeld
}

// Validate checks t without running the analysis. It reports every event a
// strict engine would reject:
//   - threads and locations registered more than once
//   - events naming a thread or location not registered earlier
//   - acquire of a held lock, release of a lock not held
//   - seed of a location after its first access
//
// Unlike Replay, Validate does not stop at the first problem. A rejected
// event is skipped, as it would be by the engine, and checking continues.
func Validate(t *Trace) []Problem {
	var problems []Problem
	threads := make(map[lockid.ThreadID]*lockset.Set)
	mems := make(map[lockid.MemID]bool) // value: accessed

	report := func(i int, ev Event, kind error) {
		problems = append(problems, Problem{Index: i, Line: ev.Line, Kind: kind, Event: ev})
	}

	for i, ev := range t.Events {
		switch ev.Kind {
		case KindThread:
			if _, ok := threads[ev.Thread]; ok {
				report(i, ev, engine.ErrDuplicateThread)
				continue
			}
			threads[ev.Thread] = lockset.New()

		case KindFrame, KindExit:
			if _, ok := threads[ev.Thread]; !ok {
				report(i, ev, engine.ErrUnknownThread)
			}

		case KindAcquire, KindRelease:
			held, ok := threads[ev.Thread]
			if !ok {
				report(i, ev, engine.ErrUnknownThread)
				continue
			}
			if ev.Kind == KindAcquire && !held.Add(ev.Lock) {
				report(i, ev, engine.ErrLockAlreadyHeld)
			}
			if ev.Kind == KindRelease && !held.Remove(ev.Lock) {
				report(i, ev, engine.ErrLockNotHeld)
			}

		case KindMem:
			if _, ok := mems[ev.Mem]; ok {
				report(i, ev, engine.ErrDuplicateMemoryLocation)
				continue
			}
			mems[ev.Mem] = false

		case KindSeed:
			accessed, ok := mems[ev.Mem]
			switch {
			case !ok:
				report(i, ev, engine.ErrUnknownMemoryLocation)
			case accessed:
				report(i, ev, engine.ErrSeedAfterAccess)
			}

		case KindRead, KindWrite:
			if _, ok := mems[ev.Mem]; !ok {
				report(i, ev, engine.ErrUnknownMemoryLocation)
				continue
			}
			if _, ok := threads[ev.Thread]; !ok {
				report(i, ev, engine.ErrUnknownThread)
				continue
			}
			mems[ev.Mem] = true
		}
	}
	return problems
}
