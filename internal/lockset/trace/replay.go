package trace

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/kolkov/lockset/internal/lockset/engine"
	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// ReplayOptions configures Replay.
type ReplayOptions struct {
	// SeedUniverse seeds every registered location with every lock named
	// anywhere in the trace, so C(v) starts as "all locks" instead of empty.
	SeedUniverse bool
}

// ReplayError reports the event at which Replay stopped.
type ReplayError struct {
	Index int   // 0-based position in Trace.Events
	Event Event // the rejected event
	Err   error // the engine error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	if e.Event.Line > 0 {
		return fmt.Sprintf("event %d (line %d: %v): %v", e.Index, e.Event.Line, e.Event, e.Err)
	}
	return fmt.Sprintf("event %d (%v): %v", e.Index, e.Event, e.Err)
}

// Unwrap returns the engine error, so errors.Is matches engine sentinels.
func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Replay feeds the events of t to e in order.
//
// Replay stops at the first event the engine rejects and returns a
// *ReplayError for it; events before it stay applied. ctx is checked
// between events.
//
// Example:
//
//	e := engine.NewEngine()
//	if err := trace.Replay(ctx, t, e, trace.ReplayOptions{}); err != nil {
//		return err
//	}
//	report := e.Results()
func Replay(ctx context.Context, t *Trace, e *engine.Engine, opts ReplayOptions) error {
	var universe []lockid.LockID
	if opts.SeedUniverse {
		universe = t.Locks()
	}

	for i, ev := range t.Events {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "replay %s stopped before event %d", t.Name, i)
		}
		if err := applySeeded(e, ev, universe); err != nil {
			return &ReplayError{Index: i, Event: ev, Err: err}
		}
	}
	return nil
}

// Apply delivers one event to the engine.
func Apply(e *engine.Engine, ev Event) error {
	return applySeeded(e, ev, nil)
}

// applySeeded delivers ev, seeding a newly registered location with universe.
func applySeeded(e *engine.Engine, ev Event, universe []lockid.LockID) error {
	switch ev.Kind {
	case KindThread:
		return e.RegisterThread(ev.Thread)
	case KindFrame:
		return e.PushCallFrame(ev.Thread, ev.Frame)
	case KindExit:
		return e.PopCallFrame(ev.Thread)
	case KindAcquire:
		return e.AcquireLock(ev.Thread, ev.Lock)
	case KindRelease:
		return e.ReleaseLock(ev.Thread, ev.Lock)
	case KindMem:
		if err := e.RegisterMemoryLocation(ev.Mem); err != nil {
			return err
		}
		for _, l := range universe {
			if err := e.SeedCandidateLock(ev.Mem, l); err != nil {
				return err
			}
		}
		return nil
	case KindSeed:
		return e.SeedCandidateLock(ev.Mem, ev.Lock)
	case KindRead:
		return e.RecordAccess(ev.Mem, ev.Thread, ev.Marker, false)
	case KindWrite:
		return e.RecordAccess(ev.Mem, ev.Thread, ev.Marker, true)
	default:
		return errors.Errorf("unknown event kind %d", ev.Kind)
	}
}
