// Package reconcile runs the sync pass that links a project's design tree
// to the tests that exist in its codebase and the results they produced.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dshills/guide/internal/lang"
	"github.com/dshills/guide/internal/mission"
	"github.com/dshills/guide/internal/spec"
)

// Options configure a Reconciler. Zero values select defaults.
type Options struct {
	// ResultsDir is the results directory relative to the mission dir.
	ResultsDir string
	// Concurrency bounds parallel docstring resolution.
	Concurrency int
	// SourceCache bounds the number of parsed source files kept.
	SourceCache int
	// DryRun computes everything but leaves mission.yaml untouched.
	DryRun bool
	Logger *slog.Logger
	// Now stamps test records. Defaults to time.Now.
	Now func() time.Time
	// Backend replaces the backend selected from the mission language.
	Backend lang.Backend
	// OnTransition observes stage changes.
	OnTransition func(from, to Stage)
}

// Reconciler synchronizes mission files. A Reconciler may be reused but
// concurrent syncs of the same project must be serialized by the caller.
type Reconciler struct {
	opts Options
}

// New returns a Reconciler with defaults applied to opts.
func New(opts Options) *Reconciler {
	if opts.ResultsDir == "" {
		opts.ResultsDir = "results"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{opts: opts}
}

// Inventory compares declared and discovered test refs. All lists are
// sorted.
type Inventory struct {
	Declared   []string `json:"declared"`
	Discovered []string `json:"discovered"`
	// Undeclared are discovered but bound to no spec.
	Undeclared []string `json:"undeclared"`
	// Missing are declared but not discovered. Only computed for
	// languages with real discovery.
	Missing []string `json:"missing"`
}

// Result is the outcome of a sync or discovery pass.
type Result struct {
	Mission *mission.Mission
	Inventory
	Results  []spec.TestResult
	Warnings []Warning
	// Before and After are the mission file contents around the sync.
	Before  []byte
	After   []byte
	Written bool
}

// Changed reports whether the sync produced a different mission file.
func (r *Result) Changed() bool {
	return string(r.Before) != string(r.After)
}

// pass is the mutable state of one run.
type pass struct {
	*tracker
	opts    Options
	dir     string
	backend lang.Backend
	res     *Result
}

func (p *pass) warn(w Warning) {
	p.res.Warnings = append(p.res.Warnings, w)
	p.opts.Logger.Warn(w.Message, "kind", string(w.Kind), "ref", w.Ref, "spec_id", w.SpecID)
}

// Sync loads the nearest mission above dir, reconciles it against the
// tests on disk and their latest results, and persists it. Structural
// errors are returned as *StructuralError before anything is written;
// linkage problems are collected as warnings.
func (r *Reconciler) Sync(ctx context.Context, dir string) (*Result, error) {
	p := r.newPass(dir)
	return p.run(ctx, []step{
		{StageLoading, p.load},
		{StageDiscovering, p.discover},
		{StageIngesting, p.ingest},
		{StageLinking, p.link},
		{StageReconciling, p.reconcile},
		{StagePersisting, p.persist},
	})
}

// Discover loads the nearest mission and compares its declared tests with
// those found on disk. Nothing is ingested or written.
func (r *Reconciler) Discover(ctx context.Context, dir string) (*Result, error) {
	p := r.newPass(dir)
	return p.run(ctx, []step{
		{StageLoading, p.load},
		{StageDiscovering, p.discover},
	})
}

type step struct {
	stage Stage
	run   func(context.Context) error
}

// run executes steps in order. Cancellation is checked before each one.
func (p *pass) run(ctx context.Context, steps []step) (*Result, error) {
	for _, s := range steps {
		if err := p.advance(s.stage); err != nil {
			return nil, p.fail(err)
		}
		if err := ctx.Err(); err != nil {
			return nil, p.fail(err)
		}
		if err := s.run(ctx); err != nil {
			return nil, p.fail(err)
		}
	}
	if err := p.advance(StageDone); err != nil {
		return nil, p.fail(err)
	}
	return p.res, nil
}

func (r *Reconciler) newPass(dir string) *pass {
	return &pass{
		tracker: &tracker{notify: r.opts.OnTransition},
		opts:    r.opts,
		dir:     dir,
		res:     &Result{},
	}
}

func (p *pass) load(context.Context) error {
	path, err := mission.FindNearest(p.dir)
	if err != nil {
		return err
	}
	before, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := mission.Load(path)
	if err != nil {
		return err
	}
	p.res.Mission = m
	p.res.Before = before
	p.opts.Logger.Debug("loaded mission", "path", path, "lang", string(m.Lang), "specs", m.Design.Len())

	if p.opts.Backend != nil {
		p.backend = p.opts.Backend
		return nil
	}
	p.backend, err = lang.Get(m.Lang, lang.Options{CacheSize: p.opts.SourceCache, Logger: p.opts.Logger})
	return err
}

func (p *pass) discover(context.Context) error {
	m := p.res.Mission
	declared := m.Design.Declared()
	found := make(map[string]bool)
	for ref := range p.backend.DiscoverTests(m.Dir) {
		found[ref] = true
	}

	inv := &p.res.Inventory
	inv.Declared = sortedKeys(declared)
	inv.Discovered = sortedKeys(found)
	inv.Undeclared = difference(found, declared)
	for _, ref := range inv.Undeclared {
		p.warn(Warning{Kind: WarnUndeclared, Ref: ref, Message: "test is not declared by any spec"})
	}

	if !lang.Implemented(p.backend.Language()) {
		p.warn(Warning{
			Kind:    WarnUnsupported,
			Message: fmt.Sprintf("test discovery is not implemented for %s; declared tests are not checked", p.backend.Language()),
		})
		return nil
	}
	inv.Missing = difference(declared, found)
	for _, ref := range inv.Missing {
		p.warn(Warning{Kind: WarnUnresolved, Ref: ref, Message: "declared test was not found in the codebase"})
	}
	return nil
}

func (p *pass) ingest(context.Context) error {
	m := p.res.Mission
	path := filepath.Join(m.Dir, p.opts.ResultsDir, p.backend.ResultsFile())
	results, err := p.backend.LoadTestResults(m.Dir, path)
	if errors.Is(err, lang.ErrNotImplemented) {
		p.warn(Warning{Kind: WarnUnsupported, Message: fmt.Sprintf("results for %s cannot be read yet: %s", p.backend.Language(), path)})
		return nil
	}
	if err != nil {
		return err
	}
	p.opts.Logger.Debug("ingested results", "path", path, "count", len(results))
	p.res.Results = results
	return nil
}

func (p *pass) persist(context.Context) error {
	m := p.res.Mission
	if p.opts.DryRun {
		after, err := m.Marshal()
		if err != nil {
			return err
		}
		p.res.After = after
		return nil
	}
	after, err := m.Save()
	if err != nil {
		return err
	}
	p.res.After = after
	p.res.Written = true
	p.opts.Logger.Debug("wrote mission", "path", m.Path(), "bytes", len(after))
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// difference returns the sorted members of a that are not in b.
func difference(a, b map[string]bool) []string {
	out := []string{}
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
