package spec

import (
	"fmt"
	"iter"
	"strings"
)

// DefaultDefinition is used for specs persisted without a definition.
const DefaultDefinition = "(undefined)"

// RefSeparator joins the segments of a qualified test ref.
const RefSeparator = "::"

// Spec is one node of a project's design hierarchy.
type Spec struct {
	Key   string       `yaml:"key" json:"key"`
	Defn  string       `yaml:"defn" json:"defn"`
	Test  *TestBinding `yaml:"test" json:"test"`
	Limn  *Limn        `yaml:"limn" json:"limn"`
	Specs []*Spec      `yaml:"specs" json:"specs"`
}

// TestBinding declares the single test that verifies a spec, plus the
// result attached to it by the last sync.
type TestBinding struct {
	Ref    string      `yaml:"ref" json:"ref"`
	Result *TestResult `yaml:"result" json:"result"`
}

// Limn describes a generated diagram or document for a spec.
type Limn struct {
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path" json:"path"`
	Desc string `yaml:"desc" json:"desc"`
}

// Status is the normalized verdict of a test run.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// StatusOf maps a raw framework outcome to a Status. Only "passed" passes.
func StatusOf(outcome string) Status {
	if outcome == "passed" {
		return StatusPassed
	}
	return StatusFailed
}

// TestResult is a normalized outcome for one test ref. It is never mutated
// after creation; a later sync replaces it.
type TestResult struct {
	Ref     string             `yaml:"ref" json:"ref"`
	Status  Status             `yaml:"status" json:"status"`
	Outcome string             `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Details map[string]float64 `yaml:"details,omitempty" json:"details,omitempty"`
}

// NewTestBinding validates ref and returns a binding without a result.
func NewTestBinding(ref string) (*TestBinding, error) {
	if err := ValidateRef(ref); err != nil {
		return nil, err
	}
	return &TestBinding{Ref: ref}, nil
}

// ValidateRef checks that ref has the form "<path>::<name>[::<name>...]".
func ValidateRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("test ref is empty")
	}
	parts := strings.Split(ref, RefSeparator)
	if len(parts) < 2 {
		return fmt.Errorf("test ref %q: expected <path>%s<name>", ref, RefSeparator)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("test ref %q: empty segment", ref)
		}
	}
	return nil
}

// Flatten yields s and every descendant, depth first, parents before
// children. Each call starts a fresh traversal.
func (s *Spec) Flatten() iter.Seq[*Spec] {
	return func(yield func(*Spec) bool) {
		s.walk(yield)
	}
}

func (s *Spec) walk(yield func(*Spec) bool) bool {
	if s == nil {
		return true
	}
	if !yield(s) {
		return false
	}
	for _, c := range s.Specs {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// HasTest reports whether s declares a test ref.
func (s *Spec) HasTest() bool {
	return s != nil && s.Test != nil && s.Test.Ref != ""
}
