package reconcile

import (
	"fmt"
	"slices"
)

// WarningKind classifies linkage problems. Warnings never abort a sync.
type WarningKind string

const (
	// WarnUndeclared: a discovered test no spec declares.
	WarnUndeclared WarningKind = "undeclared"
	// WarnOrphan: a result linked to no spec by ref or by @design ids.
	WarnOrphan WarningKind = "orphan"
	// WarnUnresolved: a ref whose source could not be found.
	WarnUnresolved WarningKind = "unresolved"
	// WarnDangling: an @design id naming no spec.
	WarnDangling WarningKind = "dangling"
	// WarnUnsupported: the project language lacks a real backend.
	WarnUnsupported WarningKind = "unsupported"
)

// Warning is a non-fatal linkage problem found during a sync.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Ref     string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	SpecID  string      `json:"spec_id,omitempty" yaml:"spec_id,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

// Count returns how many warnings have kind k.
func Count(ws []Warning, k WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == k {
			n++
		}
	}
	return n
}

// Refs returns the sorted refs of warnings of kind k.
func Refs(ws []Warning, k WarningKind) []string {
	var refs []string
	for _, w := range ws {
		if w.Kind == k && w.Ref != "" {
			refs = append(refs, w.Ref)
		}
	}
	slices.Sort(refs)
	return slices.Compact(refs)
}

// Kinds lists every warning kind in a stable order.
var Kinds = []WarningKind{WarnUndeclared, WarnOrphan, WarnUnresolved, WarnDangling, WarnUnsupported}

// ParseWarningKind returns the kind named s.
func ParseWarningKind(s string) (WarningKind, error) {
	k := WarningKind(s)
	if !slices.Contains(Kinds, k) {
		return "", fmt.Errorf("unknown warning kind %q", s)
	}
	return k, nil
}
