package lockset

import (
	"io"
	"slices"
	"sync"

	"github.com/kolkov/lockset/internal/lockset/engine"
	"github.com/kolkov/lockset/internal/lockset/trace"
)

// Recorder is a driver for live Go programs: goroutines report what they do
// and the Recorder serializes the events into an Engine and a Trace.
//
// Events must be reported in an order consistent with the program's real
// lock order: report Acquire after taking the lock and Release before
// letting it go, so the serialized stream never shows two threads holding
// the same lock.
//
// Errors from the engine are sticky: the first one is kept and returned by
// Err; later events are still recorded in the trace but not analyzed.
//
// Thread Safety: all methods are safe for concurrent use.
//
// Example:
//
//	rec := lockset.NewRecorder("counter", lockset.Options{})
//	rec.Thread(1)
//	rec.Mem(100)
//	rec.Seed(100, 1)
//	go func() {
//		mu.Lock()
//		rec.Acquire(1, 1)
//		rec.Write(100, 1, 10)
//		counter++
//		rec.Release(1, 1)
//		mu.Unlock()
//	}()
type Recorder struct {
	mu  sync.Mutex
	e   *engine.Engine
	t   *trace.Trace
	err error
}

// NewRecorder creates a recorder with a fresh engine configured by opts.
func NewRecorder(name string, opts Options) *Recorder {
	return &Recorder{
		e: engine.NewEngineWithOptions(opts),
		t: trace.New(name),
	}
}

// record appends ev to the trace and applies it to the engine.
func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.t.Add(ev)
	if r.err != nil {
		return
	}
	if err := trace.Apply(r.e, ev); err != nil {
		r.err = &trace.ReplayError{Index: len(r.t.Events) - 1, Event: ev, Err: err}
	}
}

// Thread registers thread t.
func (r *Recorder) Thread(t ThreadID) { r.record(Event{Kind: KindThread, Thread: t}) }

// Enter records that t entered call frame f.
func (r *Recorder) Enter(t ThreadID, f FrameMarker) {
	r.record(Event{Kind: KindFrame, Thread: t, Frame: f})
}

// Exit records that t left its innermost call frame.
func (r *Recorder) Exit(t ThreadID) { r.record(Event{Kind: KindExit, Thread: t}) }

// Acquire records that t now holds l.
func (r *Recorder) Acquire(t ThreadID, l LockID) {
	r.record(Event{Kind: KindAcquire, Thread: t, Lock: l})
}

// Release records that t no longer holds l.
func (r *Recorder) Release(t ThreadID, l LockID) {
	r.record(Event{Kind: KindRelease, Thread: t, Lock: l})
}

// Mem registers memory location m.
func (r *Recorder) Mem(m MemID) { r.record(Event{Kind: KindMem, Mem: m}) }

// Seed adds l to the candidate locks of m.
func (r *Recorder) Seed(m MemID, l LockID) { r.record(Event{Kind: KindSeed, Mem: m, Lock: l}) }

// Read records that t read m at marker.
func (r *Recorder) Read(m MemID, t ThreadID, marker Marker) {
	r.record(Event{Kind: KindRead, Mem: m, Thread: t, Marker: marker})
}

// Write records that t wrote m at marker.
func (r *Recorder) Write(m MemID, t ThreadID, marker Marker) {
	r.record(Event{Kind: KindWrite, Mem: m, Thread: t, Marker: marker})
}

// Err returns the first event the engine rejected, as a *ReplayError.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Results returns the race candidates found so far.
func (r *Recorder) Results() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.e.Results()
}

// Stats returns the engine statistics.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.e.Stats()
}

// Trace returns a copy of the recorded events.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *r.t
	t.Events = slices.Clone(r.t.Events)
	return &t
}

// WriteTrace writes the recorded events in trace file format, for later
// analysis with "lockset analyze".
func (r *Recorder) WriteTrace(w io.Writer) error {
	_, err := r.Trace().WriteTo(w)
	return err
}
