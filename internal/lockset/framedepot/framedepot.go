// Package framedepot implements call-frame snapshot storage and deduplication
// for race records.
//
// When a race is recorded, the accessing thread's call-frame sequence is
// captured so the report can show where the thread was. Many races are
// recorded from the same call path, so snapshots are deduplicated: each
// unique sequence is stored once and referenced by a 64-bit hash.
//
// Design:
//   - Variable-length snapshots, truncated to the innermost MaxFrames frames
//   - Hash-based deduplication (FNV-1a)
//   - One Depot per engine; there is no process-wide depot
//
// Usage:
//
//	d := framedepot.New()
//	hash := d.Put(frames)
//	...
//	frames, ok := d.Get(hash)
//	fmt.Print(framedepot.Format(frames))
package framedepot

import (
	"encoding/binary"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// MaxFrames is the maximum number of frames kept per snapshot.
// Deeper sequences keep their innermost frames.
const MaxFrames = 32

// Depot stores deduplicated call-frame snapshots.
//
// The zero value is not usable; call New.
type Depot struct {
	stacks map[uint64][]lockid.FrameMarker
	puts   uint64
}

// New creates an empty depot.
func New() *Depot {
	return &Depot{stacks: make(map[uint64][]lockid.FrameMarker)}
}

// Put stores a snapshot of frames and returns its hash.
//
// An empty sequence is not stored and returns 0. Storing an identical
// sequence twice returns the same hash and keeps a single copy.
func (d *Depot) Put(frames []lockid.FrameMarker) uint64 {
	if len(frames) == 0 {
		return 0
	}
	if len(frames) > MaxFrames {
		frames = frames[len(frames)-MaxFrames:]
	}
	d.puts++

	hash := hashFrames(frames)
	if _, exists := d.stacks[hash]; exists {
		return hash
	}
	d.stacks[hash] = slices.Clone(frames)
	return hash
}

// Get returns a copy of the snapshot stored under hash.
func (d *Depot) Get(hash uint64) ([]lockid.FrameMarker, bool) {
	if hash == 0 {
		return nil, false
	}
	frames, ok := d.stacks[hash]
	if !ok {
		return nil, false
	}
	return slices.Clone(frames), true
}

// Format renders frames innermost first, one indented frame per line, as
// they appear in a race report. frames is ordered outermost first, as
// returned by Get.
func Format(frames []lockid.FrameMarker) string {
	if len(frames) == 0 {
		return "  (no call frames recorded)\n"
	}
	var b strings.Builder
	for i := len(frames) - 1; i >= 0; i-- {
		b.WriteString("  ")
		b.WriteString(frames[i].String())
		b.WriteString("\n")
	}
	return b.String()
}

// Stats returns the number of unique snapshots and the total number of Put
// calls that stored a non-empty sequence.
func (d *Depot) Stats() (unique int, puts uint64) {
	return len(d.stacks), d.puts
}

// Reset clears the depot.
func (d *Depot) Reset() {
	d.stacks = make(map[uint64][]lockid.FrameMarker)
	d.puts = 0
}

// hashFrames computes the FNV-1a hash of a frame sequence.
//
// The length is mixed in first so that prefixes hash differently.
// A zero result is remapped to 1 because 0 means "no snapshot".
func hashFrames(frames []lockid.FrameMarker) uint64 {
	h := fnv.New64a()
	var buf [4]byte

	binary.LittleEndian.PutUint32(buf[:], uint32(len(frames)))
	_, _ = h.Write(buf[:]) // Write never returns an error for hash.Hash.
	for _, f := range frames {
		binary.LittleEndian.PutUint32(buf[:], uint32(f))
		_, _ = h.Write(buf[:])
	}

	sum := h.Sum64()
	if sum == 0 {
		return 1
	}
	return sum
}
