package reconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/guide/internal/signal"
)

// link resolves the docstring of every distinct result ref in parallel
// and turns results into signal tests numbered in ingestion order.
func (p *pass) link(ctx context.Context) error {
	m := p.res.Mission
	var refs []string
	index := make(map[string]int)
	for _, r := range p.res.Results {
		if _, ok := index[r.Ref]; !ok {
			index[r.Ref] = len(refs)
			refs = append(refs, r.Ref)
		}
	}

	docs := make([]string, len(refs))
	errs := make([]error, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i], errs[i] = p.backend.Docstring(m.Dir, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, ref := range refs {
		if errs[i] != nil {
			p.warn(Warning{Kind: WarnUnresolved, Ref: ref, Message: fmt.Sprintf("docstring not resolved: %v", errs[i])})
		}
	}

	tests := make([]signal.Test, 0, len(p.res.Results))
	for n, r := range p.res.Results {
		outcome := r.Outcome
		if outcome == "" {
			outcome = string(r.Status)
		}
		run := signal.Run{
			Outcome:   outcome,
			Duration:  r.Details["duration"],
			Timestamp: signal.Timestamp(p.opts.Now()),
		}
		t, err := signal.NewTest(signal.TestID(n), r.Ref, signal.ParseDesignIDs(docs[index[r.Ref]]), run)
		if err != nil {
			return err
		}
		tests = append(tests, t)
	}
	m.Signal = tests
	return nil
}

// reconcile replaces previous results with the ingested ones and reports
// results that reach no spec.
func (p *pass) reconcile(context.Context) error {
	m := p.res.Mission
	keys := make(map[string]bool)
	for s := range m.Design.Spec.Flatten() {
		keys[s.Key] = true
	}

	m.Design.ClearResults()
	attached := make(map[string]int)
	for _, r := range p.res.Results {
		attached[r.Ref] = m.Design.Attach(r)
	}

	orphaned := make(map[string]bool)
	dangling := make(map[[2]string]bool)
	for _, t := range m.Signal {
		linked := attached[t.Ref] > 0
		for _, sid := range t.SpecIDs {
			if keys[sid] {
				linked = true
				continue
			}
			if dangling[[2]string{t.Ref, sid}] {
				continue
			}
			dangling[[2]string{t.Ref, sid}] = true
			p.warn(Warning{
				Kind:    WarnDangling,
				Ref:     t.Ref,
				SpecID:  sid,
				Message: fmt.Sprintf("@design names unknown spec %s", sid),
			})
		}
		if !linked && !orphaned[t.Ref] {
			orphaned[t.Ref] = true
			p.warn(Warning{Kind: WarnOrphan, Ref: t.Ref, Message: "result is not linked to any spec"})
		}
	}
	return nil
}
