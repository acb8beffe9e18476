package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/guide/internal/schema"
)

// termStyles are computed once per renderer so the color profile of the
// target writer is respected.
type termStyles struct {
	header  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	box     lipgloss.Style
}

type termRenderer struct {
	styles termStyles
}

// NewTermRenderer returns a Renderer that draws the design tree with
// status glyphs, styled for r's color profile. A renderer bound to a
// non-terminal writer produces plain text.
func NewTermRenderer(r *lipgloss.Renderer) Renderer {
	return &termRenderer{styles: termStyles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		box:     r.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1),
	}}
}

var glyphs = map[string]string{
	statusPassed:     "✓",
	statusFailed:     "✗",
	statusUnverified: "○",
	statusUnbound:    "·",
}

func (t *termRenderer) statusStyle(status string) lipgloss.Style {
	switch status {
	case statusPassed:
		return t.styles.success
	case statusFailed:
		return t.styles.failure
	case statusUnverified:
		return t.styles.warning
	default:
		return t.styles.muted
	}
}

func (t *termRenderer) verdictStyle(v schema.Verdict) lipgloss.Style {
	switch v {
	case schema.VerdictVerified:
		return t.styles.success
	case schema.VerdictFailing:
		return t.styles.failure
	default:
		return t.styles.warning
	}
}

func (t *termRenderer) Render(report *schema.Report) ([]byte, error) {
	var b strings.Builder
	s := report.Summary

	head := fmt.Sprintf("%s %s  %s  score %d",
		t.styles.header.Render(report.Mission.Name),
		t.styles.muted.Render("("+report.Mission.Lang+")"),
		t.verdictStyle(s.Verdict).Render(string(s.Verdict)),
		s.Score)
	counts := fmt.Sprintf("specs %d · bound %d · passed %d · failed %d · unverified %d · tests %d",
		s.Specs, s.Bound, s.Passed, s.Failed, s.Unverified, s.Tests)
	b.WriteString(t.styles.box.Render(head + "\n" + t.styles.muted.Render(counts)))
	b.WriteString("\n\n")

	if report.Design != nil {
		fmt.Fprintf(&b, "%s %s\n", t.styles.header.Render(report.Design.Key), report.Design.Defn)
	}
	for _, r := range rows(report.Design) {
		b.WriteString(t.styles.muted.Render(treePrefix(r.Last)))
		st := t.statusStyle(r.Status)
		fmt.Fprintf(&b, "%s %s %s", st.Render(glyphs[r.Status]), r.Key, r.Defn)
		if r.Ref != "" {
			b.WriteString("  " + t.styles.muted.Render(r.Ref))
		}
		b.WriteByte('\n')
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", t.styles.warning.Render(fmt.Sprintf("warnings (%d)", len(report.Warnings))))
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  %-10s %s\n", w.Kind, w.Message)
		}
	}
	return []byte(b.String()), nil
}

// treePrefix draws the branch lines for a row given, per level, whether
// the node at that level was the last of its siblings.
func treePrefix(last []bool) string {
	var b strings.Builder
	for i, l := range last {
		switch {
		case i < len(last)-1 && l:
			b.WriteString("   ")
		case i < len(last)-1:
			b.WriteString("│  ")
		case l:
			b.WriteString("└─ ")
		default:
			b.WriteString("├─ ")
		}
	}
	return b.String()
}
