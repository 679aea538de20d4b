// Command lockset analyzes recorded thread/lock/memory event traces with the
// Eraser lockset algorithm and reports memory locations that no single lock
// consistently protects.
//
// Usage:
//
//	lockset analyze run.trace              # Report race candidates
//	lockset analyze --format=json a b c    # Analyze traces in parallel
//	lockset check run.trace                # Structural check only
//	lockset version                        # Show version information
//
// Trace files use the format documented in package
// github.com/kolkov/lockset/internal/lockset/trace. The name "-" reads a
// trace from standard input.
package main

import (
	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"
)

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}

// newCmdRoot builds the command tree. Each call returns fresh commands with
// fresh flag storage.
func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:  "lockset",
		Short: "Eraser lockset race-candidate analyzer",
		Long: `
Command lockset replays recorded executions of multithreaded programs and
reports memory locations whose accesses are not consistently protected by
a common lock.

The analysis is the Eraser lockset algorithm: every shared location keeps a
set of candidate locks that is intersected with the locks held by the
accessing thread; an empty set marks a race candidate.
`,
		Children: []*cmdline.Command{
			newCmdAnalyze(),
			newCmdCheck(),
			newCmdVersion(),
		},
	}
}

// configureLogging sends vlog output to stderr at the given verbosity.
func configureLogging(level int) error {
	err := vlog.Log.Configure(
		vlog.OverridePriorConfiguration(true),
		vlog.LogToStderr(true),
		vlog.Level(level),
	)
	if err != nil && err != vlog.ErrConfigured {
		return err
	}
	return nil
}
