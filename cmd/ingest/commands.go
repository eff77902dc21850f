package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/pipeline"
	"PriceLakehouse/internal/scheduler"
	"PriceLakehouse/internal/snapshot"
)

var commands = []subcommands.Command{
	&runCmd{},
	&backfillCmd{},
	&loadCmd{},
	&inspectCmd{},
	&serveCmd{},
	&historyCmd{},
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func exitStatus(out pipeline.Outcome) subcommands.ExitStatus {
	return subcommands.ExitStatus(out.ExitCode())
}

type runCmd struct {
	lookback int
	date     string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the daily incremental ingestion once" }
func (*runCmd) Usage() string {
	return `ingest run [-lookback n] [-d <date>]

  Fetches [date - lookback, date] for every configured symbol, stores the
  snapshot and appends it to the warehouse. Exits 1 unless the run is done.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.lookback, "lookback", -1, "lookback days (default from config)")
	f.StringVar(&c.date, "d", "", "window end date, YYYY-MM-DD (defaults to today UTC)")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	end := model.Today(time.Now())
	if c.date != "" {
		d, err := civilDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		end = d
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	lookback := c.lookback
	if lookback < 0 {
		lookback = a.cfg.Incremental.LookbackDays
	}
	return exitStatus(a.runner.Run(ctx, model.Incremental(end, lookback)))
}

type backfillCmd struct {
	period string
}

func (*backfillCmd) Name() string     { return "backfill" }
func (*backfillCmd) Synopsis() string { return "ingest a relative lookback period" }
func (*backfillCmd) Usage() string {
	return `ingest backfill [-period <period>]

  Runs once over a relative period such as 5d, 1mo, 1y, ytd or max.
`
}

func (c *backfillCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "", "lookback period (default from config)")
}

func (c *backfillCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	raw := c.period
	if raw == "" {
		raw = a.cfg.Backfill.Period
	}
	p, err := model.ParsePeriod(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return exitStatus(a.runner.Run(ctx, model.Backfill(p)))
}

type loadCmd struct {
	uri  string
	date string
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "append an existing snapshot to the warehouse" }
func (*loadCmd) Usage() string {
	return `ingest load (-uri <uri> | -d <partition>)

  Loads a snapshot that was stored but not loaded. Loading the same snapshot
  twice appends its rows twice.
`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.uri, "uri", "", "snapshot URI (gs://... or file://...)")
	f.StringVar(&c.date, "d", "", "snapshot partition date, YYYY-MM-DD")
}

func (c *loadCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.uri == "") == (c.date == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -uri or -d is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	uri := c.uri
	if uri == "" {
		uri = a.store.Locate(c.date)
	}
	if err := a.loader.Load(ctx, uri); err != nil {
		return fail(fmt.Errorf("load %s: %w", uri, err))
	}
	logger.Infof("loaded %s", uri)
	return subcommands.ExitSuccess
}

type inspectCmd struct {
	limit int
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "print the schema and first rows of a local snapshot" }
func (*inspectCmd) Usage() string {
	return `ingest inspect [-n rows] <file.parquet>
`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 5, "number of rows to print")
}

func (c *inspectCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected one parquet file")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)

	file, err := os.Open(name)
	if err != nil {
		return fail(err)
	}
	defer file.Close()
	st, err := file.Stat()
	if err != nil {
		return fail(err)
	}
	sum, err := snapshot.Inspect(file, st.Size())
	if err != nil {
		return fail(err)
	}
	rows, err := snapshot.ReadFile(name)
	if err != nil {
		return fail(err)
	}

	fmt.Println(sum.Schema)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "date\tsymbol\topen\thigh\tlow\tclose\tadj_close\tvolume")
	for i, r := range rows {
		if i == c.limit {
			break
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, r.Symbol,
			fmtFloat(r.Open), fmtFloat(r.High), fmtFloat(r.Low), fmtFloat(r.Close), fmtFloat(r.AdjClose), fmtInt(r.Volume))
	}
	w.Flush()
	fmt.Printf("\n%d rows\n", sum.NumRows)
	return subcommands.ExitSuccess
}

type serveCmd struct {
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the daily ingestion on the configured cron schedule" }
func (*serveCmd) Usage() string {
	return `ingest serve [-now]

  Runs until SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "now", os.Getenv("RUN_ON_START") == "true", "run once immediately on start")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.runner, a.cfg.Incremental.LookbackDays)
	if err := sched.Register(a.cfg.Schedule.DailyCron); err != nil {
		return fail(err)
	}
	sched.Start()
	defer sched.Stop()

	if c.runOnStart {
		logger.Infof("running daily task now")
		go sched.RunNow()
	}

	logger.Infof("ingest scheduler is running (%s). Press Ctrl+C to stop.", a.cfg.Schedule.DailyCron)
	<-ctx.Done()
	logger.Infof("shutdown signal received, stopping...")
	return subcommands.ExitSuccess
}

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recent runs from the run history database" }
func (*historyCmd) Usage() string {
	return `ingest history [-n runs]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "number of runs to list")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, false)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if a.cfg.Database.SQLitePath == "" {
		fmt.Fprintln(os.Stderr, "Error: run history is disabled (set database.sqlite_path or SQLITE_PATH)")
		return subcommands.ExitFailure
	}
	runs, err := a.recorder.RecentRuns(c.limit)
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "started\trun\twindow\tstate\trows\tsymbols\tduration\terror")
	for _, r := range runs {
		state := r.State
		if r.FailedAt != "" {
			state += " (" + r.FailedAt + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			r.StartedAt.Format(time.DateTime), r.RunID, r.Window, state, r.Rows,
			r.LoadedSymbols, r.Symbols, r.Duration().Round(time.Millisecond), r.Error)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
