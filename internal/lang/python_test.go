package lang

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/guide/internal/spec"
)

const pyTests = `import pytest


def helper():
    pass


def test_parse():
    """Parses input.

    @design(S1, S2)
    """


@pytest.mark.parametrize("n", [1, 2])
def test_param(n):
    """@design(S3)"""


class TestErrors:
    def test_line(self):
        """@design(S4)"""

    def not_a_test(self):
        pass

    class TestInner:
        def test_deep(self):
            pass


class Helper:
    def test_ignored(self):
        pass
`

func pyProject(t *testing.T) string {
	return writeTree(t, map[string]string{
		"pyproject.toml":                "",
		"tests/test_parser.py":          pyTests,
		"tests/io_test.py":              "def test_atomic():\n    pass\n",
		"tests/conftest.py":             "def test_not_collected():\n    pass\n",
		"tests/test_broken.py":          "def test_x(:\n",
		".venv/lib/test_vendor.py":      "def test_vendor():\n    pass\n",
		"node_modules/x/test_js.py":     "def test_js():\n    pass\n",
		"src/pkg/__pycache__/test_c.py": "def test_cached():\n    pass\n",
		"_internal/test_private.py":     "def test_private():\n    pass\n",
	})
}

func TestPython_DiscoverTests(t *testing.T) {
	root := pyProject(t)
	b := mustGet(t, Python)

	got := slices.Collect(b.DiscoverTests(root))
	assert.Equal(t, []string{
		"_internal/test_private.py::test_private",
		"tests/io_test.py::test_atomic",
		"tests/test_parser.py::test_parse",
		"tests/test_parser.py::test_param",
		"tests/test_parser.py::TestErrors::test_line",
		"tests/test_parser.py::TestErrors::TestInner::test_deep",
	}, got)

	// Each call rescans.
	assert.Equal(t, got, slices.Collect(b.DiscoverTests(root)))
}

func TestPython_DiscoverTests_EarlyStop(t *testing.T) {
	b := mustGet(t, Python)
	n := 0
	for range b.DiscoverTests(pyProject(t)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestPython_Docstring(t *testing.T) {
	root := pyProject(t)
	b := mustGet(t, Python)

	cases := map[string]string{
		"tests/test_parser.py::test_parse":            "@design(S1, S2)",
		"tests/test_parser.py::test_param[1]":         "@design(S3)",
		"tests/test_parser.py::test_param[a::b]":      "@design(S3)",
		"tests/test_parser.py::TestErrors::test_line": "@design(S4)",
	}
	for ref, want := range cases {
		doc, err := b.Docstring(root, ref)
		require.NoError(t, err, ref)
		assert.Contains(t, doc, want, ref)
	}

	doc, err := b.Docstring(root, "tests/io_test.py::test_atomic")
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestPython_Docstring_Unresolved(t *testing.T) {
	root := pyProject(t)
	b := mustGet(t, Python)

	for _, ref := range []string{
		"tests/test_parser.py::test_missing",
		"tests/missing.py::test_parse",
		"tests/test_broken.py::test_x",
		"no-separator",
	} {
		_, err := b.Docstring(root, ref)
		assert.True(t, errors.Is(err, ErrUnresolved), "%s: %v", ref, err)
	}
}

func TestPython_LoadTestResults(t *testing.T) {
	log := `{"pytest_version": "8.3.4", "$report_type": "SessionStart"}
{"$report_type": "CollectReport", "nodeid": "tests/test_parser.py", "outcome": "passed"}
{"$report_type": "TestReport", "nodeid": "tests/test_parser.py::test_parse", "when": "setup", "outcome": "passed", "duration": 0.001}
{"$report_type": "TestReport", "nodeid": "tests/test_parser.py::test_parse", "when": "call", "outcome": "passed", "duration": 0.25}
{"$report_type": "TestReport", "nodeid": "tests/test_parser.py::test_parse", "when": "teardown", "outcome": "passed", "duration": 0.001}

{"$report_type": "TestReport", "nodeid": "tests/test_parser.py::TestErrors::test_line", "when": "call", "outcome": "failed", "duration": 0.5}
{"$report_type": "TestReport", "nodeid": "tests/io_test.py::test_atomic", "when": "call", "outcome": "skipped"}
{"$report_type": "SessionFinish", "exitstatus": 1}
`
	root := writeTree(t, map[string]string{"results/results.jsonl": log})
	b := mustGet(t, Python)

	got, err := b.LoadTestResults(root, filepath.Join(root, "results", b.ResultsFile()))
	require.NoError(t, err)
	assert.Equal(t, []spec.TestResult{
		{Ref: "tests/test_parser.py::test_parse", Status: spec.StatusPassed, Outcome: "passed", Details: map[string]float64{"duration": 0.25}},
		{Ref: "tests/test_parser.py::TestErrors::test_line", Status: spec.StatusFailed, Outcome: "failed", Details: map[string]float64{"duration": 0.5}},
		{Ref: "tests/io_test.py::test_atomic", Status: spec.StatusFailed, Outcome: "skipped"},
	}, got)
}

func TestPython_LoadTestResults_Missing(t *testing.T) {
	b := mustGet(t, Python)
	got, err := b.LoadTestResults("", filepath.Join(t.TempDir(), "results.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPython_LoadTestResults_Malformed(t *testing.T) {
	log := `{"$report_type": "TestReport", "nodeid": "a.py::test_a", "when": "call", "outcome": "passed"}
{"$report_type": "TestReport", "nodeid": "a.py::test_b", "when": "call", "outcome": "passed"}
{"$report_type": "TestReport", "nodeid": "a.py::test_c", "when": "ca
`
	root := writeTree(t, map[string]string{"results.jsonl": log})
	path := filepath.Join(root, "results.jsonl")

	_, err := mustGet(t, Python).LoadTestResults(filepath.Dir(path), path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, err.Error(), path+":3: invalid JSON")
}
