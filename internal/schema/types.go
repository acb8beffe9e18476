package schema

import (
	"fmt"

	"github.com/dshills/guide/internal/reconcile"
	"github.com/dshills/guide/internal/signal"
	"github.com/dshills/guide/internal/spec"
)

// Report is the read-only snapshot handed to renderers and dashboards.
type Report struct {
	Tool      string               `json:"tool"`
	Version   string               `json:"version"`
	Input     Input                `json:"input"`
	Mission   Mission              `json:"mission"`
	Summary   Summary              `json:"summary"`
	Design    *spec.Design         `json:"design"`
	Signal    []signal.Test        `json:"signal"`
	Inventory *reconcile.Inventory `json:"inventory,omitempty"`
	Warnings  []reconcile.Warning  `json:"warnings"`
}

// Input captures the parameters used for this run.
type Input struct {
	MissionFile string `json:"mission_file"`
	ResultsFile string `json:"results_file,omitempty"`
	Command     string `json:"command"`
	DryRun      bool   `json:"dry_run"`
	Written     bool   `json:"written"`
}

// Mission identifies the project the snapshot belongs to.
type Mission struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Summary holds the computed verdict and counts.
// Counts cover the whole design tree regardless of what a renderer shows.
type Summary struct {
	Verdict    Verdict `json:"verdict"`
	Score      int     `json:"score"`
	Specs      int     `json:"specs"`
	Bound      int     `json:"bound"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Unverified int     `json:"unverified"`
	Tests      int     `json:"tests"`
	// Linked counts signal tests naming at least one existing spec via
	// @design; LinkedFailed those among them that did not pass.
	Linked       int `json:"linked"`
	LinkedFailed int `json:"linked_failed"`
	Discovered   int `json:"discovered"`
	Undeclared   int `json:"undeclared"`
	Orphans      int `json:"orphans"`
	Warnings     int `json:"warnings"`
}

// Verdict is the overall linkage health of a project.
type Verdict string

const (
	VerdictVerified Verdict = "VERIFIED"
	VerdictGaps     Verdict = "GAPS"
	VerdictFailing  Verdict = "FAILING"
)

// VerdictOrdinal returns the numeric ordering for a verdict, used by --fail-on
// comparison. VERIFIED(0) < GAPS(1) < FAILING(2).
// Returns -1 for an unrecognised verdict.
func VerdictOrdinal(v Verdict) int {
	switch v {
	case VerdictVerified:
		return 0
	case VerdictGaps:
		return 1
	case VerdictFailing:
		return 2
	default:
		return -1
	}
}

// ParseFailOn validates a --fail-on threshold.
func ParseFailOn(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case VerdictGaps, VerdictFailing:
		return v, nil
	default:
		return "", fmt.Errorf("--fail-on must be GAPS or FAILING, got %q", s)
	}
}
