package trace

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// Magic is the first word of a trace header line.
const Magic = "lockset-trace"

// Version is the format version written by WriteTo.
const Version = "v1.0.0"

// Kind identifies an event type.
type Kind uint8

const (
	KindThread  Kind = iota + 1 // thread T
	KindFrame                   // frame T F
	KindExit                    // exit T
	KindAcquire                 // acquire T L
	KindRelease                 // release T L
	KindMem                     // mem V
	KindSeed                    // seed V L
	KindRead                    // read V T M
	KindWrite                   // write V T M
)

var kindNames = [...]string{
	KindThread:  "thread",
	KindFrame:   "frame",
	KindExit:    "exit",
	KindAcquire: "acquire",
	KindRelease: "release",
	KindMem:     "mem",
	KindSeed:    "seed",
	KindRead:    "read",
	KindWrite:   "write",
}

// String returns the keyword used for k in trace files.
func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// kindByName maps a trace keyword to its Kind.
func kindByName(name string) (Kind, bool) {
	for k := KindThread; int(k) < len(kindNames); k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// Event is one line of a trace. Only the fields used by Kind are meaningful.
type Event struct {
	Kind   Kind
	Thread lockid.ThreadID
	Lock   lockid.LockID
	Mem    lockid.MemID
	Marker lockid.Marker
	Frame  lockid.FrameMarker

	// Line is the 1-based source line, or 0 for events built in code.
	Line int
}

// String returns the event in trace file syntax, e.g. "write 100 2 20".
func (ev Event) String() string {
	switch ev.Kind {
	case KindThread, KindExit:
		return fmt.Sprintf("%s %d", ev.Kind, ev.Thread)
	case KindFrame:
		return fmt.Sprintf("%s %d %d", ev.Kind, ev.Thread, ev.Frame)
	case KindAcquire, KindRelease:
		return fmt.Sprintf("%s %d %d", ev.Kind, ev.Thread, ev.Lock)
	case KindMem:
		return fmt.Sprintf("%s %d", ev.Kind, ev.Mem)
	case KindSeed:
		return fmt.Sprintf("%s %d %d", ev.Kind, ev.Mem, ev.Lock)
	case KindRead, KindWrite:
		return fmt.Sprintf("%s %d %d %d", ev.Kind, ev.Mem, ev.Thread, ev.Marker)
	default:
		return ev.Kind.String()
	}
}

// Trace is a parsed event stream.
type Trace struct {
	// Name is a label for diagnostics, usually the file name.
	Name string

	// Version is the format version from the header.
	Version string

	Events []Event
}

// New returns an empty trace at the current format version.
func New(name string) *Trace {
	return &Trace{Name: name, Version: Version}
}

// Add appends events.
func (t *Trace) Add(events ...Event) {
	t.Events = append(t.Events, events...)
}

// Locks returns every lock named by an acquire, release or seed event,
// in ascending order without duplicates.
func (t *Trace) Locks() []lockid.LockID {
	seen := make(map[lockid.LockID]struct{})
	var out []lockid.LockID
	for _, ev := range t.Events {
		switch ev.Kind {
		case KindAcquire, KindRelease, KindSeed:
			if _, ok := seen[ev.Lock]; !ok {
				seen[ev.Lock] = struct{}{}
				out = append(out, ev.Lock)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Count returns the number of events per kind.
func (t *Trace) Count() map[Kind]int {
	counts := make(map[Kind]int)
	for _, ev := range t.Events {
		counts[ev.Kind]++
	}
	return counts
}

// WriteTo writes the trace in the format accepted by Parse.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	version := t.Version
	if version == "" {
		version = Version
	}
	c, err := fmt.Fprintf(bw, "%s %s\n", Magic, version)
	n += int64(c)
	if err != nil {
		return n, err
	}
	for _, ev := range t.Events {
		c, err := fmt.Fprintln(bw, ev.String())
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
