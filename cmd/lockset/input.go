package main

import (
	"github.com/pkg/errors"
	"v.io/x/lib/cmdline"

	"github.com/kolkov/lockset/internal/lockset/trace"
)

// stdinName is the argument that selects standard input.
const stdinName = "-"

// checkInputs rejects an empty argument list and more than one "-".
func checkInputs(env *cmdline.Env, args []string) error {
	if len(args) == 0 {
		return env.UsageErrorf("no trace specified")
	}
	stdin := 0
	for _, a := range args {
		if a == stdinName {
			stdin++
		}
	}
	if stdin > 1 {
		return env.UsageErrorf("%q may appear only once", stdinName)
	}
	return nil
}

// readTrace parses the trace named by arg.
func readTrace(env *cmdline.Env, arg string) (*trace.Trace, error) {
	if arg != stdinName {
		return trace.ParseFile(arg)
	}
	if env.Stdin == nil {
		return nil, errors.New("no standard input")
	}
	t, err := trace.Parse(env.Stdin)
	if err != nil {
		return nil, errors.Wrap(err, "<stdin>")
	}
	t.Name = "<stdin>"
	return t, nil
}
