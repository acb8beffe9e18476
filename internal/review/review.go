package review

import (
	"slices"

	"github.com/dshills/guide/internal/reconcile"
	"github.com/dshills/guide/internal/schema"
	"github.com/dshills/guide/internal/signal"
	"github.com/dshills/guide/internal/spec"
)

// Summarize counts the state of a design after a sync. inv may be nil
// when only the persisted state is being reported.
func Summarize(d *spec.Design, tests []signal.Test, inv *reconcile.Inventory, warnings []reconcile.Warning) schema.Summary {
	var s schema.Summary
	for n := range d.Flatten() {
		s.Specs++
		if !n.HasTest() {
			continue
		}
		s.Bound++
		switch {
		case n.Test.Result == nil:
			s.Unverified++
		case n.Test.Result.Status == spec.StatusPassed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	s.Tests = len(tests)
	keys := make(map[string]bool)
	for n := range d.Spec.Flatten() {
		keys[n.Key] = true
	}
	for _, t := range tests {
		if !slices.ContainsFunc(t.SpecIDs, func(id string) bool { return keys[id] }) {
			continue
		}
		s.Linked++
		if spec.StatusOf(t.Result.Outcome) != spec.StatusPassed {
			s.LinkedFailed++
		}
	}
	if inv != nil {
		s.Discovered = len(inv.Discovered)
		s.Undeclared = len(inv.Undeclared)
	}
	s.Orphans = reconcile.Count(warnings, reconcile.WarnOrphan)
	s.Warnings = len(warnings)
	s.Score = Score(s)
	s.Verdict = Verdict(s)
	return s
}

// Score is the percentage of bound specs whose test passed. A design with
// no bound specs scores 100.
func Score(s schema.Summary) int {
	if s.Bound == 0 {
		return 100
	}
	return s.Passed * 100 / s.Bound
}

// Verdict computes the deterministic verdict from a summary.
// Any failed spec test, bound by ref or linked by @design, is FAILING;
// unverified specs or warnings are GAPS.
func Verdict(s schema.Summary) schema.Verdict {
	if s.Failed > 0 || s.LinkedFailed > 0 {
		return schema.VerdictFailing
	}
	if s.Unverified > 0 || s.Warnings > 0 {
		return schema.VerdictGaps
	}
	return schema.VerdictVerified
}

// MeetsThreshold reports whether v is at or above threshold.
func MeetsThreshold(v, threshold schema.Verdict) bool {
	return schema.VerdictOrdinal(v) >= schema.VerdictOrdinal(threshold)
}

// FilterWarnings returns only warnings of the given kinds. With no kinds
// every warning is kept.
func FilterWarnings(ws []reconcile.Warning, kinds ...reconcile.WarningKind) []reconcile.Warning {
	if len(kinds) == 0 {
		return ws
	}
	keep := make(map[reconcile.WarningKind]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	out := make([]reconcile.Warning, 0, len(ws))
	for _, w := range ws {
		if keep[w.Kind] {
			out = append(out, w)
		}
	}
	return out
}
