package diff

import (
	"strings"
	"testing"
)

func TestUnified_Equal(t *testing.T) {
	if out := Unified("mission.yaml", "a\nb\n", "a\nb\n"); out != "" {
		t.Errorf("expected empty diff, got %q", out)
	}
}

func TestUnified_TrailingWhitespaceIgnored(t *testing.T) {
	if out := Unified("mission.yaml", "a  \r\nb\n", "a\nb\n"); out != "" {
		t.Errorf("expected empty diff after normalization, got %q", out)
	}
}

func TestUnified_Change(t *testing.T) {
	before := "name: demo\nsignal: []\n"
	after := "name: demo\nsignal:\n  - id: T1\n"
	out := Unified("mission.yaml", before, after)
	for _, want := range []string{
		"--- a/mission.yaml\n+++ b/mission.yaml\n",
		" name: demo\n",
		"-signal: []\n",
		"+signal:\n",
		"+  - id: T1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff missing %q:\n%s", want, out)
		}
	}
}

func TestUnified_ElidesLongUnchangedRuns(t *testing.T) {
	var lines []string
	for _, c := range "abcdefghij" {
		lines = append(lines, string(c))
	}
	before := strings.Join(lines, "\n") + "\n"
	lines[9] = "J"
	after := strings.Join(lines, "\n") + "\n"

	out := Unified("m", before, after)
	if !strings.Contains(out, "@@ 7 unchanged @@\n") {
		t.Errorf("expected elision marker:\n%s", out)
	}
	if !strings.Contains(out, " h\n i\n-j\n+J\n") {
		t.Errorf("expected two context lines before the change:\n%s", out)
	}
	if strings.Contains(out, " a\n") {
		t.Errorf("leading context should be elided:\n%s", out)
	}
}
