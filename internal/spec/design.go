package spec

import (
	"fmt"
	"iter"
	"maps"
	"regexp"
	"strconv"
)

// keyPattern matches keys that can be referenced from @design annotations.
var keyPattern = regexp.MustCompile(`^S(\d+)$`)

// Design is the root spec of a project plus a free-form report payload.
type Design struct {
	Spec   `yaml:",inline"`
	Report map[string]any `yaml:"report,omitempty" json:"report,omitempty"`
}

// Flatten yields every spec below the root, depth first. The root is
// excluded: it is never the target of a test binding.
func (d *Design) Flatten() iter.Seq[*Spec] {
	return func(yield func(*Spec) bool) {
		for _, c := range d.Specs {
			if !c.walk(yield) {
				return
			}
		}
	}
}

// Len returns the number of specs below the root.
func (d *Design) Len() int {
	n := 0
	for range d.Flatten() {
		n++
	}
	return n
}

// Find returns the spec with the given key, searching the root too.
func (d *Design) Find(key string) (*Spec, bool) {
	for s := range d.Spec.Flatten() {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}

// Declared returns the set of test refs bound by specs below the root.
func (d *Design) Declared() map[string]bool {
	refs := make(map[string]bool)
	for s := range d.Flatten() {
		if s.HasTest() {
			refs[s.Test.Ref] = true
		}
	}
	return refs
}

// Validate checks tree-wide invariants: unique keys and well formed refs.
func (d *Design) Validate() error {
	seen := make(map[string]bool)
	for s := range d.Spec.Flatten() {
		if s.Key == "" {
			return fmt.Errorf("spec with definition %q has no key", s.Defn)
		}
		if seen[s.Key] {
			return fmt.Errorf("duplicate spec key %q", s.Key)
		}
		seen[s.Key] = true
		if s.Test != nil {
			if err := ValidateRef(s.Test.Ref); err != nil {
				return fmt.Errorf("spec %s: %w", s.Key, err)
			}
		}
	}
	return nil
}

// AssignKeys gives every keyless spec the next free S<n> key and fills
// empty definitions with DefaultDefinition. Existing keys are untouched.
func (d *Design) AssignKeys() {
	next := 0
	for s := range d.Spec.Flatten() {
		if m := keyPattern.FindStringSubmatch(s.Key); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	for s := range d.Spec.Flatten() {
		if s.Key == "" {
			s.Key = "S" + strconv.Itoa(next)
			next++
		}
		if s.Defn == "" {
			s.Defn = DefaultDefinition
		}
	}
}

// ClearResults drops every attached result. Results from a previous sync
// are superseded, never merged.
func (d *Design) ClearResults() {
	for s := range d.Spec.Flatten() {
		if s.Test != nil {
			s.Test.Result = nil
		}
	}
}

// Attach stores a copy of r on every spec declaring r.Ref and returns how
// many specs received it. Specs never share a Details map.
func (d *Design) Attach(r TestResult) int {
	n := 0
	for s := range d.Flatten() {
		if s.HasTest() && s.Test.Ref == r.Ref {
			res := r
			res.Details = maps.Clone(r.Details)
			s.Test.Result = &res
			n++
		}
	}
	return n
}
