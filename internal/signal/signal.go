// Package signal holds the verified-test view of a project: test results
// linked back to the specs they claim to verify.
//
// Tests declare linkage in their documentation with @design(S0, S1, ...).
package signal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	specIDPattern = regexp.MustCompile(`^S\d+$`)
	testIDPattern = regexp.MustCompile(`^T\d+$`)
	designPattern = regexp.MustCompile(`@design\(([^)]+)\)`)
)

// Run is the raw outcome payload recorded for a test.
type Run struct {
	Outcome   string  `yaml:"outcome" json:"outcome"`
	Duration  float64 `yaml:"duration" json:"duration"`
	Timestamp string  `yaml:"timestamp" json:"timestamp"`
}

// Test is a test result linked to specifications.
type Test struct {
	ID      string   `yaml:"id" json:"id"`
	Ref     string   `yaml:"ref" json:"ref"`
	SpecIDs []string `yaml:"spec_ids" json:"spec_ids"`
	Result  Run      `yaml:"result" json:"result"`
}

// NewTest validates id and specIDs and returns the linked test.
func NewTest(id, ref string, specIDs []string, run Run) (Test, error) {
	if !testIDPattern.MatchString(id) {
		return Test{}, fmt.Errorf("invalid test id %q: must match T<digits>", id)
	}
	for _, sid := range specIDs {
		if !IsSpecID(sid) {
			return Test{}, fmt.Errorf("invalid spec id %q: must match S<digits>", sid)
		}
	}
	ids := make([]string, len(specIDs))
	copy(ids, specIDs)
	return Test{ID: id, Ref: ref, SpecIDs: ids, Result: run}, nil
}

// Validate re-checks the construction invariants, e.g. after decoding.
func (t Test) Validate() error {
	_, err := NewTest(t.ID, t.Ref, t.SpecIDs, t.Result)
	return err
}

// TestID returns the sequential id for the n-th test of a sync.
func TestID(n int) string {
	return "T" + strconv.Itoa(n)
}

// IsSpecID reports whether s matches S<digits>.
func IsSpecID(s string) bool {
	return specIDPattern.MatchString(s)
}

// ParseDesignIDs extracts spec ids from the first @design(...) marker in
// doc. Tokens that are not spec ids are dropped; duplicates are removed
// and order is kept.
func ParseDesignIDs(doc string) []string {
	if doc == "" {
		return nil
	}
	m := designPattern.FindStringSubmatch(doc)
	if m == nil {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, raw := range strings.Split(m[1], ",") {
		sid := strings.TrimSpace(raw)
		if !IsSpecID(sid) || seen[sid] {
			continue
		}
		seen[sid] = true
		ids = append(ids, sid)
	}
	return ids
}

// Timestamp formats t as RFC 3339 UTC with a trailing Z.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
