package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/guide/internal/schema"
	"github.com/dshills/guide/internal/spec"
)

// Renderer formats a Report into bytes for output.
type Renderer interface {
	Render(report *schema.Report) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json", "md", "term".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	case "term":
		return NewTermRenderer(lipgloss.DefaultRenderer()), nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md, term", format)
	}
}

// row is one spec of the design tree in display order.
type row struct {
	Depth  int
	Last   []bool // per ancestor level: was that ancestor the last child
	Key    string
	Defn   string
	Ref    string
	Status string
}

const (
	statusPassed     = "passed"
	statusFailed     = "failed"
	statusUnverified = "unverified"
	statusUnbound    = "unbound"
)

func specStatus(s *spec.Spec) string {
	switch {
	case !s.HasTest():
		return statusUnbound
	case s.Test.Result == nil:
		return statusUnverified
	case s.Test.Result.Status == spec.StatusPassed:
		return statusPassed
	default:
		return statusFailed
	}
}

// rows flattens the design below the root, recording tree position.
func rows(d *spec.Design) []row {
	if d == nil {
		return nil
	}
	var out []row
	var walk func(specs []*spec.Spec, last []bool)
	walk = func(specs []*spec.Spec, last []bool) {
		for i, s := range specs {
			l := append(append([]bool(nil), last...), i == len(specs)-1)
			r := row{Depth: len(last), Last: l, Key: s.Key, Defn: s.Defn, Status: specStatus(s)}
			if s.HasTest() {
				r.Ref = s.Test.Ref
			}
			out = append(out, r)
			walk(s.Specs, l)
		}
	}
	walk(d.Specs, nil)
	return out
}
