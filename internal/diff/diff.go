// Package diff renders line diffs of mission files for --diff-out.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Context is the number of unchanged lines kept around each change.
const Context = 2

// Unified returns a line-oriented diff of before and after labelled with
// name, or "" when the two are equal after normalization. Unchanged runs
// longer than the surrounding context are elided with "@@" markers.
func Unified(name, before, after string) string {
	before, after = normalize(before), normalize(after)
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- a/%s\n+++ b/%s\n", name, name)
	for i, d := range diffs {
		ls := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writePrefixed(&out, "-", ls)
		case diffmatchpatch.DiffInsert:
			writePrefixed(&out, "+", ls)
		case diffmatchpatch.DiffEqual:
			writeEqual(&out, ls, i == 0, i == len(diffs)-1)
		}
	}
	return out.String()
}

func writeEqual(out *strings.Builder, ls []string, first, last bool) {
	head, tail := Context, Context
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if len(ls) <= head+tail {
		writePrefixed(out, " ", ls)
		return
	}
	writePrefixed(out, " ", ls[:head])
	fmt.Fprintf(out, "@@ %d unchanged @@\n", len(ls)-head-tail)
	writePrefixed(out, " ", ls[len(ls)-tail:])
}

func writePrefixed(out *strings.Builder, prefix string, ls []string) {
	for _, l := range ls {
		out.WriteString(prefix)
		out.WriteString(l)
		out.WriteByte('\n')
	}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// normalize trims trailing whitespace from each line and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
