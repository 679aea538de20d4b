package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"

	"github.com/kolkov/lockset/internal/lockset/engine"
	"github.com/kolkov/lockset/internal/lockset/lockid"
	"github.com/kolkov/lockset/internal/lockset/trace"
)

// Output formats.
const (
	formatAuto  = "auto"
	formatText  = "text"
	formatLines = "lines"
	formatJSON  = "json"
)

// exitRaces is the exit status of --fail-on-race when races were found.
const exitRaces = cmdline.ErrExitCode(3)

type analyzeFlags struct {
	format       string
	seedUniverse bool
	lenient      bool
	dedup        bool
	stats        bool
	dump         bool
	failOnRace   bool
	parallel     int
	logLevel     int
}

func newCmdAnalyze() *cmdline.Command {
	var f analyzeFlags
	cmd := &cmdline.Command{
		Name:  "analyze",
		Short: "Report race candidates in traces",
		Long: `
Analyze replays each trace into its own lockset engine and prints the race
candidates found. Traces are analyzed in parallel; reports are printed in
argument order.

Output formats:
  auto   banner report on a terminal, lines otherwise
  text   one banner block per race candidate, then a summary
  lines  the classic summary: count, then "mem<TAB>marker" rows
  json   one JSON report per trace, named by its "name" field
`,
		ArgsName: "<trace> ...",
		ArgsLong: `<trace> ... Trace files to analyze; "-" reads standard input.`,
	}
	cmd.Flags.StringVar(&f.format, "format", formatAuto, "Output format: auto, text, lines or json.")
	cmd.Flags.BoolVar(&f.seedUniverse, "seed-universe", false, "Seed every location's candidate set with every lock named in the trace.")
	cmd.Flags.BoolVar(&f.lenient, "lenient", false, "Ignore acquires of held locks and releases of unheld locks.")
	cmd.Flags.BoolVar(&f.dedup, "dedup", false, "Report only the first race candidate per memory location.")
	cmd.Flags.BoolVar(&f.stats, "stats", false, "Print engine statistics and process memory to stderr.")
	cmd.Flags.BoolVar(&f.dump, "dump", false, "Dump the final state of every memory location to stderr.")
	cmd.Flags.BoolVar(&f.failOnRace, "fail-on-race", false, "Exit with status 3 if any race candidate is found.")
	cmd.Flags.IntVar(&f.parallel, "parallel", runtime.NumCPU(), "Maximum number of traces analyzed at once.")
	cmd.Flags.IntVar(&f.logLevel, "log-level", 0, "Verbosity of engine logging on stderr (1: races, 2: transitions).")
	cmd.Runner = cmdline.RunnerFunc(func(env *cmdline.Env, args []string) error {
		return runAnalyze(env, args, f)
	})
	return cmd
}

// analysis is the outcome of one trace.
type analysis struct {
	name   string
	events int
	engine *engine.Engine
	err    error
}

func runAnalyze(env *cmdline.Env, args []string, f analyzeFlags) error {
	if err := checkInputs(env, args); err != nil {
		return err
	}
	switch f.format {
	case formatAuto:
		f.format = formatLines
		if isTerminal(env.Stdout) {
			f.format = formatText
		}
	case formatText, formatLines, formatJSON:
	default:
		return env.UsageErrorf("invalid output format: %s", f.format)
	}
	if f.parallel < 1 {
		return env.UsageErrorf("--parallel must be at least 1, got %d", f.parallel)
	}
	if err := configureLogging(f.logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := make([]analysis, len(args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallel)
	for i, arg := range args {
		g.Go(func() error {
			results[i] = analyzeOne(ctx, env, arg, f)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	failed, races := 0, 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "%s: %v\n", res.name, res.err)
			if res.engine == nil {
				continue
			}
		}
		report := res.engine.Results()
		races += report.Count
		if err := writeReport(env.Stdout, p, f.format, res, report, len(results) > 1); err != nil {
			return err
		}
		if f.stats {
			writeStats(env.Stderr, p, res)
		}
		if f.dump {
			dumpSnapshots(env.Stderr, res)
		}
	}
	if f.stats {
		writeProcessStats(env.Stderr, p)
	}

	if failed > 0 {
		return errors.Errorf("%d of %d traces failed", failed, len(results))
	}
	if f.failOnRace && races > 0 {
		return exitRaces
	}
	return nil
}

// analyzeOne parses and replays a single trace.
func analyzeOne(ctx context.Context, env *cmdline.Env, arg string, f analyzeFlags) analysis {
	res := analysis{name: arg}
	t, err := readTrace(env, arg)
	if err != nil {
		res.err = err
		return res
	}
	res.name = t.Name
	res.events = len(t.Events)

	res.engine = engine.NewEngineWithOptions(engine.Options{
		Lenient: f.lenient,
		Dedup:   f.dedup,
		Logger:  vlog.Log,
	})
	vlog.VI(1).Infof("%s: run %s, %d events", res.name, res.engine.RunID(), res.events)
	res.err = trace.Replay(ctx, t, res.engine, trace.ReplayOptions{SeedUniverse: f.seedUniverse})
	return res
}

//nolint:errcheck // Best-effort output, same as fmt.Print.
func writeReport(w io.Writer, p *message.Printer, format string, res analysis, report *engine.Report, multi bool) error {
	switch format {
	case formatJSON:
		report.Name = res.name
		return report.WriteJSON(w)
	case formatLines:
		if multi {
			fmt.Fprintf(w, "%s:\n", res.name)
		}
		for _, line := range report.Lines() {
			fmt.Fprintln(w, line)
		}
	case formatText:
		report.Format(w)
		p.Fprintf(w, "%s: %d race candidate(s) in %d location(s), %d events [run %s]\n",
			res.name, report.Count, len(report.Locations()), res.events, report.RunID)
	}
	return nil
}

//nolint:errcheck // Best-effort output, same as fmt.Print.
func writeStats(w io.Writer, p *message.Printer, res analysis) {
	s := res.engine.Stats()
	p.Fprintf(w, "%s: statistics\n", res.name)
	p.Fprintf(w, "\tthreads:\t\t%d\n", s.Threads)
	p.Fprintf(w, "\tlocations:\t\t%d\n", s.Locations)
	p.Fprintf(w, "\treads / writes:\t\t%d / %d\n", s.Reads, s.Writes)
	p.Fprintf(w, "\tacquires / releases:\t%d / %d\n", s.Acquires, s.Releases)
	p.Fprintf(w, "\ttransitions:\t\t%d\n", s.Transitions)
	p.Fprintf(w, "\tintersections:\t\t%d\n", s.Intersections)
	p.Fprintf(w, "\traces:\t\t\t%d (suppressed %d)\n", s.Races, s.SuppressedRaces)
	p.Fprintf(w, "\tignored lock events:\t%d\n", s.IgnoredAcquires+s.IgnoredReleases)
	for st := engine.Virgin; st <= engine.SharedModified; st++ {
		p.Fprintf(w, "\t%v:\t%d\n", st, s.ByState[st])
	}
}

//nolint:errcheck // Best-effort output, same as fmt.Print.
func writeProcessStats(w io.Writer, p *message.Printer) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		vlog.Errorf("process stats: %v", err)
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		vlog.Errorf("process memory: %v", err)
		return
	}
	p.Fprintf(w, "process RSS: %d KiB\n", mem.RSS/1024)
}

// dumpSnapshots writes the final state of every location.
func dumpSnapshots(w io.Writer, res analysis) {
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	fmt.Fprintf(w, "%s: final location state\n", res.name) //nolint:errcheck
	cfg.Fdump(w, res.engine.Snapshots())
	fmt.Fprintf(w, "%s: final thread state\n", res.name) //nolint:errcheck
	cfg.Fdump(w, threadStates(res.engine))
}

// threadState is the end-of-trace state of one thread. Locks still held
// here were never released by the trace.
type threadState struct {
	Thread lockid.ThreadID
	Held   []lockid.LockID
	Frames []lockid.FrameMarker
}

func threadStates(e *engine.Engine) []threadState {
	var out []threadState
	for _, t := range e.Threads() {
		held, err := e.HeldLocks(t)
		if err != nil {
			continue
		}
		frames, err := e.CallFrames(t)
		if err != nil {
			continue
		}
		out = append(out, threadState{Thread: t, Held: held, Frames: frames})
	}
	return out
}

// isTerminal reports whether w is the process stdout attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
