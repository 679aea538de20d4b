package main

import (
	"fmt"

	"v.io/x/lib/cmdline"

	"github.com/kolkov/lockset/lockset"
)

func newCmdVersion() *cmdline.Command {
	return &cmdline.Command{
		Name:   "version",
		Short:  "Show version information",
		Long:   "Version prints the analyzer version, algorithm and trace format version.",
		Runner: cmdline.RunnerFunc(runVersion),
	}
}

func runVersion(env *cmdline.Env, args []string) error {
	if len(args) != 0 {
		return env.UsageErrorf("version takes no arguments")
	}
	info := lockset.GetInfo()
	fmt.Fprintf(env.Stdout, "lockset version %s\n", info.Version)
	fmt.Fprintf(env.Stdout, "algorithm: %s\n", info.Algorithm)
	fmt.Fprintf(env.Stdout, "trace format: %s\n", info.TraceFormat)
	return nil
}
