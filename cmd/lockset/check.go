package main

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"v.io/x/lib/cmdline"

	"github.com/kolkov/lockset/internal/lockset/trace"
)

func newCmdCheck() *cmdline.Command {
	var lenient bool
	cmd := &cmdline.Command{
		Name:  "check",
		Short: "Check traces without analyzing them",
		Long: `
Check parses each trace and reports every event a strict engine would
reject: duplicate or missing thread and location registrations, unbalanced
lock events and candidate seeding after a location was first accessed.
`,
		ArgsName: "<trace> ...",
		ArgsLong: `<trace> ... Trace files to check; "-" reads standard input.`,
	}
	cmd.Flags.BoolVar(&lenient, "lenient", false, "Do not report unbalanced acquire and release events.")
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, args []string) error {
		return runCheck(env, args, lenient)
	})
	return cmd
}

func runCheck(env *cmdline.Env, args []string, lenient bool) error {
	if err := checkInputs(env, args); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	bad := 0
	for _, arg := range args {
		t, err := readTrace(env, arg)
		if err != nil {
			fmt.Fprintf(env.Stderr, "%s: %v\n", arg, err)
			bad++
			continue
		}

		var problems []trace.Problem
		for _, pr := range trace.Validate(t) {
			if lenient && pr.LockPolicy() {
				continue
			}
			problems = append(problems, pr)
		}
		for _, pr := range problems {
			fmt.Fprintf(env.Stdout, "%s: %v\n", t.Name, pr)
		}
		if len(problems) > 0 {
			bad++
			p.Fprintf(env.Stdout, "%s: %d problem(s)\n", t.Name, len(problems))
			continue
		}

		counts := t.Count()
		p.Fprintf(env.Stdout, "%s: ok (%s, %d events, %d threads, %d locations, %d accesses)\n",
			t.Name, t.Version, len(t.Events), counts[trace.KindThread], counts[trace.KindMem],
			counts[trace.KindRead]+counts[trace.KindWrite])
	}
	if bad > 0 {
		return errors.Errorf("%d of %d traces have problems", bad, len(args))
	}
	return nil
}
