package engine

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kolkov/lockset/internal/lockset/framedepot"
	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// RaceRecord is one race candidate: an access to Mem, at Marker, after which
// no lock was common to every thread that touched Mem in a shared state.
//
// Mem and Marker are the reported pair. The remaining fields describe the
// access that fired the check and are diagnostic only.
type RaceRecord struct {
	// Mem is the memory location.
	Mem lockid.MemID `json:"mem"`

	// Marker is the source marker of the triggering access.
	Marker lockid.Marker `json:"marker"`

	// Thread performed the triggering access.
	Thread lockid.ThreadID `json:"thread"`

	// Write is true if the triggering access was a write.
	Write bool `json:"write"`

	// State is state(Mem) after the triggering access.
	State State `json:"state"`

	// Seq is the 1-based position of the triggering access among all
	// accepted RecordAccess calls of the run.
	Seq uint64 `json:"seq"`

	// Frames is the call-frame sequence of Thread at the access, outermost
	// first. Empty if the thread had no frames pushed.
	Frames []lockid.FrameMarker `json:"frames,omitempty"`

	frameHash uint64
}

// Access returns "Write" or "Read".
func (r RaceRecord) Access() string {
	if r.Write {
		return "Write"
	}
	return "Read"
}

// Report is the result of an analysis run.
type Report struct {
	// Name identifies the analyzed input. The engine leaves it empty;
	// drivers that analyze several inputs set it.
	Name string `json:"name,omitempty"`

	// RunID identifies the engine run that produced the report.
	RunID uuid.UUID `json:"run_id"`

	// Count is the number of race records.
	Count int `json:"count"`

	// Races are ordered by memory id, then by access sequence.
	Races []RaceRecord `json:"races"`
}

// Results returns every race record produced so far.
//
// Results is a pure read: it may be called at any point, any number of
// times, and with no intervening events it returns equal reports. The
// returned Report shares no memory with the engine.
//
// Example:
//
//	r := e.Results()
//	for _, line := range r.Lines() {
//		fmt.Println(line)
//	}
func (e *Engine) Results() *Report {
	races := make([]RaceRecord, len(e.races))
	for i, rec := range e.races {
		rec.Frames, _ = e.frames.Get(rec.frameHash)
		races[i] = rec
	}
	slices.SortStableFunc(races, func(a, b RaceRecord) int {
		if c := cmp.Compare(a.Mem, b.Mem); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return &Report{RunID: e.runID, Count: len(races), Races: races}
}

// Empty reports whether no race was found.
func (r *Report) Empty() bool {
	return r.Count == 0
}

// Locations returns the distinct memory ids that have at least one race
// record, in ascending order.
func (r *Report) Locations() []lockid.MemID {
	var out []lockid.MemID
	for _, rec := range r.Races {
		if n := len(out); n == 0 || out[n-1] != rec.Mem {
			out = append(out, rec.Mem)
		}
	}
	return out
}

// Lines renders the report as the classic line-oriented summary:
//
//	Lockset Analysis -
//	Total # of data race detections: 1
//	Memory Location:	Code Location:
//	100	20
func (r *Report) Lines() []string {
	lines := make([]string, 0, 3+len(r.Races))
	lines = append(lines,
		"Lockset Analysis -",
		"Total # of data race detections: "+strconv.Itoa(r.Count),
		"Memory Location:\tCode Location:",
	)
	for _, rec := range r.Races {
		lines = append(lines, strconv.FormatUint(uint64(rec.Mem), 10)+"\t"+strconv.FormatUint(uint64(rec.Marker), 10))
	}
	return lines
}

// Format writes one banner block per race record:
//
//	==================
//	WARNING: POSSIBLE DATA RACE
//	Write at M100 (marker @20) by thread T2:
//	  F7
//	  [state: SHARED_MODIFIED, access #2]
//	No lock consistently protects M100.
//	==================
//
// An empty report writes nothing.
//
//nolint:errcheck // Best-effort output, same as fmt.Print.
func (r *Report) Format(w io.Writer) {
	for _, rec := range r.Races {
		fmt.Fprintf(w, "==================\n")
		fmt.Fprintf(w, "WARNING: POSSIBLE DATA RACE\n")
		fmt.Fprintf(w, "%s at %v (marker %v) by thread %v:\n", rec.Access(), rec.Mem, rec.Marker, rec.Thread)
		fmt.Fprint(w, framedepot.Format(rec.Frames))
		fmt.Fprintf(w, "  [state: %v, access #%d]\n", rec.State, rec.Seq)
		fmt.Fprintf(w, "No lock consistently protects %v.\n", rec.Mem)
		fmt.Fprintf(w, "==================\n")
	}
}

// String returns the Format output.
func (r *Report) String() string {
	var buf strings.Builder
	r.Format(&buf)
	return buf.String()
}

// WriteJSON writes the report as indented JSON followed by a newline.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
