// Package lockset provides the public API for the Eraser lockset analyzer.
//
// See doc.go for detailed documentation and examples.
package lockset

import (
	"context"
	"io"

	"github.com/kolkov/lockset/internal/lockset/engine"
	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/trace"
)

// Identifiers exchanged with the engine. All are compared by value.
type (
	ThreadID    = lockid.ThreadID
	LockID      = lockid.LockID
	MemID       = lockid.MemID
	Marker      = lockid.Marker
	FrameMarker = lockid.FrameMarker
)

// Engine types.
type (
	// Engine runs one lockset analysis. It is not safe for concurrent use.
	Engine = engine.Engine

	// Options configures an Engine.
	Options = engine.Options

	// Stats holds engine counters.
	Stats = engine.Stats

	// State is the monitoring state of a memory location.
	State = engine.State

	// Snapshot is a copy of one location's analysis state.
	Snapshot = engine.Snapshot

	// Report is the result of an analysis.
	Report = engine.Report

	// RaceRecord is one race candidate.
	RaceRecord = engine.RaceRecord

	// Error is the type of every error returned by Engine methods.
	Error = engine.Error
)

// Monitoring states.
const (
	Virgin         = engine.Virgin
	Exclusive      = engine.Exclusive
	Shared         = engine.Shared
	SharedModified = engine.SharedModified
)

// Error kinds; match with errors.Is.
var (
	ErrUnknownThread           = engine.ErrUnknownThread
	ErrUnknownMemoryLocation   = engine.ErrUnknownMemoryLocation
	ErrDuplicateThread         = engine.ErrDuplicateThread
	ErrDuplicateMemoryLocation = engine.ErrDuplicateMemoryLocation
	ErrLockNotHeld             = engine.ErrLockNotHeld
	ErrLockAlreadyHeld         = engine.ErrLockAlreadyHeld
	ErrSeedAfterAccess         = engine.ErrSeedAfterAccess
)

// Trace types.
type (
	// Trace is a parsed event stream.
	Trace = trace.Trace

	// Event is one trace event.
	Event = trace.Event

	// EventKind identifies an event type.
	EventKind = trace.Kind

	// Problem is a structural trace defect found by ValidateTrace.
	Problem = trace.Problem

	// ReplayError reports the trace event at which a replay stopped.
	ReplayError = trace.ReplayError
)

// Event kinds.
const (
	KindThread  = trace.KindThread
	KindFrame   = trace.KindFrame
	KindExit    = trace.KindExit
	KindAcquire = trace.KindAcquire
	KindRelease = trace.KindRelease
	KindMem     = trace.KindMem
	KindSeed    = trace.KindSeed
	KindRead    = trace.KindRead
	KindWrite   = trace.KindWrite
)

// NewEngine creates an engine with the default strict lock policy.
//
// Example:
//
//	e := lockset.NewEngine()
//	e.RegisterThread(1)
//	e.RegisterMemoryLocation(100)
//	e.RecordAccess(100, 1, 10, true)
func NewEngine() *Engine {
	return engine.NewEngine()
}

// NewEngineWithOptions creates an engine configured by opts.
func NewEngineWithOptions(opts Options) *Engine {
	return engine.NewEngineWithOptions(opts)
}

// NewTrace returns an empty trace for building event streams in code.
func NewTrace(name string) *Trace {
	return trace.New(name)
}

// ParseTrace reads a trace in text form.
func ParseTrace(r io.Reader) (*Trace, error) {
	return trace.Parse(r)
}

// ValidateTrace checks a trace structurally and returns every problem found.
func ValidateTrace(t *Trace) []Problem {
	return trace.Validate(t)
}

// AnalyzeOptions configures Analyze.
type AnalyzeOptions struct {
	// Engine configures the engine created for the analysis.
	Engine Options

	// SeedUniverse starts every location's candidate set with every lock
	// named in the trace.
	SeedUniverse bool
}

// Analyze replays t into a new engine and returns the engine, so callers can
// read both its Results and its query methods.
//
// On a replay error the engine is returned along with the error; it holds
// the state reached before the rejected event.
//
// Example:
//
//	t, err := lockset.ParseTrace(f)
//	if err != nil {
//		return err
//	}
//	e, err := lockset.Analyze(ctx, t, lockset.AnalyzeOptions{})
//	if err != nil {
//		return err
//	}
//	e.Results().Format(os.Stdout)
func Analyze(ctx context.Context, t *Trace, opts AnalyzeOptions) (*Engine, error) {
	e := engine.NewEngineWithOptions(opts.Engine)
	err := trace.Replay(ctx, t, e, trace.ReplayOptions{SeedUniverse: opts.SeedUniverse})
	return e, err
}
