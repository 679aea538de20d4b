package trace

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// maxLine bounds a single trace line.
const maxLine = 1 << 20

// arity is the number of operands each event kind takes.
var arity = [...]int{
	KindThread:  1,
	KindFrame:   2,
	KindExit:    1,
	KindAcquire: 2,
	KindRelease: 2,
	KindMem:     1,
	KindSeed:    2,
	KindRead:    3,
	KindWrite:   3,
}

// Parse reads a trace.
//
// Format: a header line "lockset-trace <version>" where version is a
// semantic version with major v1, then one event per line. Blank lines and
// everything after '#' are ignored. Numbers are unsigned decimals.
//
//	lockset-trace v1.0.0
//	thread 1
//	thread 2
//	mem 100
//	write 100 1 10   # mem thread marker
//	write 100 2 20
//
// Errors name the offending line.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	t := &Trace{}
	lineno := 0
	header := false

	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if !header {
			v, err := parseHeader(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineno)
			}
			t.Version = v
			header = true
			continue
		}

		ev, err := parseEvent(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		ev.Line = lineno
		t.Events = append(t.Events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read trace at line %d", lineno+1)
	}
	if !header {
		return nil, errors.Errorf("missing %q header", Magic)
	}
	return t, nil
}

// ParseFile reads and parses the trace stored in path.
// The trace Name is set to path.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trace")
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	t.Name = path
	return t, nil
}

func parseHeader(fields []string) (string, error) {
	if fields[0] != Magic || len(fields) != 2 {
		return "", errors.Errorf("want header %q, got %q", Magic+" <version>", strings.Join(fields, " "))
	}
	v := fields[1]
	if !semver.IsValid(v) {
		return "", errors.Errorf("invalid trace version %q", v)
	}
	if major := semver.Major(v); major != semver.Major(Version) {
		return "", errors.Errorf("unsupported trace version %s (want %s.x.y)", v, semver.Major(Version))
	}
	return v, nil
}

func parseEvent(fields []string) (Event, error) {
	kind, ok := kindByName(fields[0])
	if !ok {
		return Event{}, errors.Errorf("unknown event %q", fields[0])
	}
	args := fields[1:]
	if len(args) != arity[kind] {
		return Event{}, errors.Errorf("%s takes %d operands, got %d", kind, arity[kind], len(args))
	}

	nums := make([]uint64, len(args))
	for i, a := range args {
		bits := 32
		if operandIsMem(kind, i) {
			bits = 64
		}
		n, err := strconv.ParseUint(a, 10, bits)
		if err != nil {
			return Event{}, errors.Wrapf(err, "%s operand %d", kind, i+1)
		}
		nums[i] = n
	}

	ev := Event{Kind: kind}
	switch kind {
	case KindThread, KindExit:
		ev.Thread = lockid.ThreadID(nums[0])
	case KindFrame:
		ev.Thread = lockid.ThreadID(nums[0])
		ev.Frame = lockid.FrameMarker(nums[1])
	case KindAcquire, KindRelease:
		ev.Thread = lockid.ThreadID(nums[0])
		ev.Lock = lockid.LockID(nums[1])
	case KindMem:
		ev.Mem = lockid.MemID(nums[0])
	case KindSeed:
		ev.Mem = lockid.MemID(nums[0])
		ev.Lock = lockid.LockID(nums[1])
	case KindRead, KindWrite:
		ev.Mem = lockid.MemID(nums[0])
		ev.Thread = lockid.ThreadID(nums[1])
		ev.Marker = lockid.Marker(nums[2])
	}
	return ev, nil
}

// operandIsMem reports whether operand i of kind is a memory id.
func operandIsMem(kind Kind, i int) bool {
	switch kind {
	case KindMem, KindSeed, KindRead, KindWrite:
		return i == 0
	}
	return false
}
