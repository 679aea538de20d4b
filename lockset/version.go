package lockset

import "github.com/kolkov/lockset/internal/lockset/trace"

// Version information for the lockset analyzer.
const (
	// Version is the current version of the analyzer.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides information about the analyzer.
type Info struct {
	// Version is the analyzer version string.
	Version string

	// Algorithm is the race detection algorithm used.
	Algorithm string

	// TraceFormat is the trace format version written by this build.
	// Traces with the same major version are accepted.
	TraceFormat string
}

// GetInfo returns information about the analyzer.
//
// Example:
//
//	info := lockset.GetInfo()
//	fmt.Printf("lockset %s (%s)\n", info.Version, info.Algorithm)
func GetInfo() Info {
	return Info{
		Version:     Version,
		Algorithm:   "Eraser lockset (SOSP 1997)",
		TraceFormat: trace.Version,
	}
}
