package engine

import (
	"errors"
	"strings"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// Error kinds. Every error returned by an Engine operation is an *Error whose
// Kind is one of these values, so callers test with errors.Is:
//
//	if errors.Is(err, engine.ErrUnknownThread) { ... }
var (
	// ErrUnknownThread: the thread id was never registered.
	ErrUnknownThread = errors.New("unknown thread")

	// ErrUnknownMemoryLocation: the memory id was never registered.
	ErrUnknownMemoryLocation = errors.New("unknown memory location")

	// ErrDuplicateThread: RegisterThread on an already registered id.
	ErrDuplicateThread = errors.New("duplicate thread")

	// ErrDuplicateMemoryLocation: RegisterMemoryLocation on an already registered id.
	ErrDuplicateMemoryLocation = errors.New("duplicate memory location")

	// ErrLockNotHeld: ReleaseLock of a lock the thread does not hold (strict mode).
	ErrLockNotHeld = errors.New("lock not held")

	// ErrLockAlreadyHeld: AcquireLock of a lock the thread already holds (strict mode).
	ErrLockAlreadyHeld = errors.New("lock already held")

	// ErrSeedAfterAccess: SeedCandidateLock after the location was accessed.
	ErrSeedAfterAccess = errors.New("candidate lock seeded after first access")
)

// Error describes a rejected engine call.
//
// Fields:
//   - Op: the operation name, e.g. "RecordAccess"
//   - Kind: one of the Err* sentinels above
//   - Thread/Mem/Lock: the ids involved; only those flagged in Has are meaningful
//
// A rejected call leaves the analysis state exactly as it was.
type Error struct {
	Op     string
	Kind   error
	Thread lockid.ThreadID
	Mem    lockid.MemID
	Lock   lockid.LockID
	Has    IDMask
}

// IDMask flags which ids of an Error are set.
type IDMask uint8

const (
	HasThread IDMask = 1 << iota // Thread is set.
	HasMem                       // Mem is set.
	HasLock                      // Lock is set.
)

// Error implements the error interface.
//
// Format: lockset: Op(ids): kind
//
// Example: lockset: RecordAccess(M100, T3): unknown thread
func (e *Error) Error() string {
	var ids []string
	if e.Has&HasMem != 0 {
		ids = append(ids, e.Mem.String())
	}
	if e.Has&HasThread != 0 {
		ids = append(ids, e.Thread.String())
	}
	if e.Has&HasLock != 0 {
		ids = append(ids, e.Lock.String())
	}
	return "lockset: " + e.Op + "(" + strings.Join(ids, ", ") + "): " + e.Kind.Error()
}

// Unwrap returns the error kind so errors.Is matches the sentinels.
func (e *Error) Unwrap() error {
	return e.Kind
}

func threadError(op string, kind error, t lockid.ThreadID) *Error {
	return &Error{Op: op, Kind: kind, Thread: t, Has: HasThread}
}

func memError(op string, kind error, m lockid.MemID) *Error {
	return &Error{Op: op, Kind: kind, Mem: m, Has: HasMem}
}

func lockError(op string, kind error, t lockid.ThreadID, l lockid.LockID) *Error {
	return &Error{Op: op, Kind: kind, Thread: t, Lock: l, Has: HasThread | HasLock}
}
