package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/guide/internal/config"
	"github.com/dshills/guide/internal/diff"
	"github.com/dshills/guide/internal/lang"
	"github.com/dshills/guide/internal/mission"
	"github.com/dshills/guide/internal/reconcile"
	"github.com/dshills/guide/internal/render"
	"github.com/dshills/guide/internal/review"
	"github.com/dshills/guide/internal/schema"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// cmdFlags holds the parsed flags shared by the subcommands. Each command
// registers only the flags it uses.
type cmdFlags struct {
	dir      string
	format   string
	out      string
	warnings []string
	diffOut  string
	failOn   string
	dryRun   bool
	verbose  bool
	name     string
	lang     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			stop()
			os.Exit(ee.code)
		}
		// cobra already printed the error
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:     "guide",
		Short:   "Link a design tree to the tests that verify it",
		Long:    "guide keeps mission.yaml, a hierarchical design of specs, in sync with the tests in a codebase and the results they last produced.",
		Version: version,
	}

	var flags cmdFlags
	initCmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create mission.yaml and the results directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.dir = args[0]
			}
			return runInit(flags, stdout)
		},
	}
	initCmd.Flags().StringVar(&flags.name, "name", "", "Project name (default: directory name)")
	initCmd.Flags().StringVar(&flags.lang, "lang", "", "Project language: py, go, ts or md (default: detected)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the design with discovered tests and their latest results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), flags, stdout)
		},
	}
	sf := syncCmd.Flags()
	sf.StringVar(&flags.diffOut, "diff-out", "", "Write a diff of mission.yaml before and after the sync to this file")
	sf.StringVar(&flags.failOn, "fail-on", "", "Exit 2 if verdict >= this level (GAPS or FAILING)")
	sf.BoolVar(&flags.dryRun, "dry-run", false, "Compute the sync without writing mission.yaml")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report the persisted state without syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(flags, stdout)
		},
	}
	statusCmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Exit 2 if verdict >= this level (GAPS or FAILING)")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Compare declared tests with those found in the codebase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd.Context(), flags, stdout)
		},
	}

	for _, c := range []*cobra.Command{syncCmd, statusCmd, discoverCmd} {
		f := c.Flags()
		f.StringVar(&flags.dir, "dir", ".", "Directory to search upward from for mission.yaml")
		f.StringVar(&flags.format, "format", "", "Output format: json, md or term (default: term on a terminal, json otherwise)")
		f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
		f.StringSliceVar(&flags.warnings, "warnings", nil, "Only show warnings of these kinds (undeclared, orphan, unresolved, dangling, unsupported)")
	}
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Log processing steps to stderr")
	root.AddCommand(initCmd, syncCmd, statusCmd, discoverCmd)
	return root
}

func runInit(flags cmdFlags, stdout io.Writer) error {
	dir := flags.dir
	if dir == "" {
		dir = "."
	}
	cfg, logger, err := setup(dir, flags.verbose)
	if err != nil {
		return err
	}
	var l lang.Language
	if flags.lang != "" {
		if l, err = lang.Parse(flags.lang); err != nil {
			return codeError(3, "invalid flags: %s", err)
		}
	}
	m, created, err := mission.Touch(dir, mission.TouchOptions{Name: flags.name, Lang: l, ResultsDir: cfg.ResultsDir})
	if err != nil {
		return codeError(3, "initializing mission: %s", err)
	}
	logger.Debug("mission ready", "path", m.Path(), "created", created)
	verb := "found"
	if created {
		verb = "created"
	}
	fmt.Fprintf(stdout, "%s %s (%s, %s)\n", verb, m.Path(), m.Name, m.Lang)
	return nil
}

func runSync(ctx context.Context, flags cmdFlags, stdout io.Writer) error {
	threshold, kinds, err := validateFlags(flags)
	if err != nil {
		return codeError(3, "invalid flags: %s", err)
	}
	cfg, logger, err := setup(flags.dir, flags.verbose)
	if err != nil {
		return err
	}

	rec := reconcile.New(reconcile.Options{
		ResultsDir:  cfg.ResultsDir,
		Concurrency: cfg.Concurrency,
		SourceCache: cfg.SourceCache,
		DryRun:      flags.dryRun,
		Logger:      logger,
		OnTransition: func(from, to reconcile.Stage) {
			logger.Debug("stage", "from", from.String(), "to", to.String())
		},
	})
	res, err := rec.Sync(ctx, flags.dir)
	if err != nil {
		return syncError(err)
	}

	if flags.diffOut != "" {
		logger.Debug("writing diff", "path", flags.diffOut)
		text := diff.Unified(mission.FileName, string(res.Before), string(res.After))
		if err := os.WriteFile(flags.diffOut, []byte(text), 0o644); err != nil {
			// The diff is advisory; the sync already happened.
			logger.Warn("diff write failed", "path", flags.diffOut, "err", err)
		}
	}

	report := buildReport("sync", res.Mission, &res.Inventory, res.Warnings, kinds)
	report.Input.ResultsFile = resultsFile(cfg, res.Mission)
	report.Input.DryRun = flags.dryRun
	report.Input.Written = res.Written
	return emit(report, flags, stdout, threshold)
}

func runStatus(flags cmdFlags, stdout io.Writer) error {
	threshold, kinds, err := validateFlags(flags)
	if err != nil {
		return codeError(3, "invalid flags: %s", err)
	}
	cfg, _, err := setup(flags.dir, flags.verbose)
	if err != nil {
		return err
	}
	path, err := mission.FindNearest(flags.dir)
	if err != nil {
		return codeError(3, "%s", err)
	}
	m, err := mission.Load(path)
	if err != nil {
		return codeError(3, "loading mission: %s", err)
	}
	report := buildReport("status", m, nil, nil, kinds)
	report.Input.ResultsFile = resultsFile(cfg, m)
	return emit(report, flags, stdout, threshold)
}

func runDiscover(ctx context.Context, flags cmdFlags, stdout io.Writer) error {
	_, kinds, err := validateFlags(flags)
	if err != nil {
		return codeError(3, "invalid flags: %s", err)
	}
	cfg, logger, err := setup(flags.dir, flags.verbose)
	if err != nil {
		return err
	}
	rec := reconcile.New(reconcile.Options{
		ResultsDir:  cfg.ResultsDir,
		Concurrency: cfg.Concurrency,
		SourceCache: cfg.SourceCache,
		Logger:      logger,
	})
	res, err := rec.Discover(ctx, flags.dir)
	if err != nil {
		return syncError(err)
	}
	return emit(buildReport("discover", res.Mission, &res.Inventory, res.Warnings, kinds), flags, stdout, "")
}

// setup loads configuration for dir and builds the stderr logger.
func setup(dir string, verbose bool) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return config.Config{}, nil, codeError(3, "loading config: %s", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// syncError maps a reconciler failure to an exit code. Cancellation is
// not a project defect.
func syncError(err error) error {
	var se *reconcile.StructuralError
	switch {
	case errors.Is(err, context.Canceled):
		return codeError(1, "%s", err)
	case errors.As(err, &se):
		return codeError(3, "%s", err)
	default:
		return codeError(1, "%s", err)
	}
}

// validateFlags checks the output flags and returns the parsed --fail-on
// threshold (empty when unset) and --warnings kinds.
func validateFlags(flags cmdFlags) (schema.Verdict, []reconcile.WarningKind, error) {
	switch flags.format {
	case "", "json", "md", "term":
	default:
		return "", nil, fmt.Errorf("--format must be json, md or term, got %q", flags.format)
	}
	var threshold schema.Verdict
	if flags.failOn != "" {
		v, err := schema.ParseFailOn(flags.failOn)
		if err != nil {
			return "", nil, err
		}
		threshold = v
	}
	kinds := make([]reconcile.WarningKind, 0, len(flags.warnings))
	for _, s := range flags.warnings {
		k, err := reconcile.ParseWarningKind(s)
		if err != nil {
			return "", nil, fmt.Errorf("--warnings: %w", err)
		}
		kinds = append(kinds, k)
	}
	return threshold, kinds, nil
}

// buildReport assembles the snapshot. Summary counts always reflect every
// warning; the warnings list is filtered by kinds for output only.
func buildReport(command string, m *mission.Mission, inv *reconcile.Inventory, warnings []reconcile.Warning, kinds []reconcile.WarningKind) *schema.Report {
	if warnings == nil {
		warnings = []reconcile.Warning{}
	}
	return &schema.Report{
		Tool:    "guide",
		Version: version,
		Input: schema.Input{
			MissionFile: m.Path(),
			Command:     command,
		},
		Mission:   schema.Mission{ID: m.ID, Name: m.Name, Lang: string(m.Lang)},
		Summary:   review.Summarize(&m.Design, m.Signal, inv, warnings),
		Design:    &m.Design,
		Signal:    m.Signal,
		Inventory: inv,
		Warnings:  review.FilterWarnings(warnings, kinds...),
	}
}

func resultsFile(cfg config.Config, m *mission.Mission) string {
	b, err := lang.Get(m.Lang, lang.Options{CacheSize: 1})
	if err != nil {
		return ""
	}
	return filepath.Join(m.Dir, cfg.ResultsDir, b.ResultsFile())
}

// emit renders the report to --out or stdout and applies --fail-on.
func emit(report *schema.Report, flags cmdFlags, stdout io.Writer, threshold schema.Verdict) error {
	format := flags.format
	if format == "" {
		format = "json"
		if flags.out == "" && isTerminal(stdout) {
			format = "term"
		}
	}
	renderer, err := render.NewRenderer(format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(report)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}

	if flags.out != "" {
		if err := os.WriteFile(flags.out, outputBytes, 0o644); err != nil {
			return codeError(3, "writing output file: %s", err)
		}
	} else {
		if _, err := stdout.Write(outputBytes); err != nil {
			return codeError(3, "writing output: %s", err)
		}
		// Ensure output ends with a newline for terminal friendliness.
		if len(outputBytes) > 0 && outputBytes[len(outputBytes)-1] != '\n' {
			fmt.Fprintln(stdout)
		}
	}

	if threshold != "" && review.MeetsThreshold(report.Summary.Verdict, threshold) {
		return codeError(2, "verdict %s meets or exceeds --fail-on threshold %s", report.Summary.Verdict, threshold)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
