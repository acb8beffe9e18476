package reconcile

import (
	"fmt"
)

// Stage is the progress of a single sync pass.
type Stage int

const (
	StageIdle Stage = iota
	StageLoading
	StageDiscovering
	StageIngesting
	StageLinking
	StageReconciling
	StagePersisting
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageLoading:     "loading",
	StageDiscovering: "discovering",
	StageIngesting:   "ingesting",
	StageLinking:     "linking",
	StageReconciling: "reconciling",
	StagePersisting:  "persisting",
	StageDone:        "done",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// isAllowedTransition permits moving to the next stage, failing from any
// running stage, and finishing straight after discovery for inventory-only
// passes.
func isAllowedTransition(from, to Stage) bool {
	if from.IsTerminal() {
		return false
	}
	switch {
	case to == StageFailed:
		return from != StageIdle
	case to == from+1:
		return true
	case from == StageDiscovering && to == StageDone:
		return true
	default:
		return false
	}
}

// tracker holds the current stage of one pass and reports transitions.
type tracker struct {
	stage  Stage
	notify func(from, to Stage)
}

func (t *tracker) advance(to Stage) error {
	if !isAllowedTransition(t.stage, to) {
		return fmt.Errorf("disallowed stage transition: %s -> %s", t.stage, to)
	}
	from := t.stage
	t.stage = to
	if t.notify != nil {
		t.notify(from, to)
	}
	return nil
}

// fail moves to StageFailed and wraps err with the stage it happened in.
func (t *tracker) fail(err error) error {
	at := t.stage
	if !at.IsTerminal() && at != StageIdle {
		t.stage = StageFailed
		if t.notify != nil {
			t.notify(at, StageFailed)
		}
	}
	return &StructuralError{Stage: at, Err: err}
}

// StructuralError aborts a sync before anything is written.
type StructuralError struct {
	Stage Stage
	Err   error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("sync failed while %s: %v", e.Stage, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }
