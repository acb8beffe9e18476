package lang

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/dshills/guide/internal/pysrc"
	"github.com/dshills/guide/internal/spec"
)

// python discovers pytest-style tests by reading source files statically.
// Test modules are never imported or executed.
type python struct {
	opts    Options
	modules *sourceCache[*pysrc.Module]
}

func newPython(opts Options) (*python, error) {
	c, err := newSourceCache[*pysrc.Module](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating source cache: %w", err)
	}
	return &python{opts: opts, modules: c}, nil
}

func (p *python) Language() Language  { return Python }
func (p *python) ResultsFile() string { return "results.jsonl" }

func isPythonTestFile(name string) bool {
	if !strings.HasSuffix(name, ".py") {
		return false
	}
	return strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py")
}

func (p *python) DiscoverTests(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for path := range sourceFiles(root, skipDir, isPythonTestFile, p.opts.Logger) {
			m, err := p.modules.get(path, pysrc.ParseFile)
			if err != nil {
				p.opts.Logger.Debug("skipping unparsable test file", "path", path, "err", err)
				continue
			}
			if !collect(m.Nodes, relSlash(root, path), yield) {
				return
			}
		}
	}
}

// collect yields pytest node ids for test functions in nodes. Classes
// named Test* are searched recursively for test methods.
func collect(nodes []*pysrc.Node, prefix string, yield func(string) bool) bool {
	for _, n := range nodes {
		id := prefix + spec.RefSeparator + n.Name
		switch {
		case n.Kind == pysrc.Func && strings.HasPrefix(n.Name, "test"):
			if !yield(id) {
				return false
			}
		case n.Kind == pysrc.Class && strings.HasPrefix(n.Name, "Test"):
			if !collect(n.Children, id, yield) {
				return false
			}
		}
	}
	return true
}

func (p *python) LoadTestResults(_, path string) ([]spec.TestResult, error) {
	return loadReportLog(path)
}

func (p *python) Docstring(root, ref string) (string, error) {
	// Parameter ids may themselves contain "::".
	file, names, err := splitRef(stripParams(ref))
	if err != nil {
		return "", err
	}
	m, err := p.modules.get(filepath.Join(root, filepath.FromSlash(file)), pysrc.ParseFile)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolved, ref, err)
	}
	n, ok := m.Lookup(names...)
	if !ok {
		return "", fmt.Errorf("%w: %s: no such definition", ErrUnresolved, ref)
	}
	return n.Doc, nil
}

// splitRef splits "<path>::<name>[::<name>...]" into its file and names.
func splitRef(ref string) (string, []string, error) {
	parts := strings.Split(ref, spec.RefSeparator)
	if len(parts) < 2 || parts[0] == "" {
		return "", nil, fmt.Errorf("%w: %s: malformed ref", ErrUnresolved, ref)
	}
	return parts[0], parts[1:], nil
}

// stripParams drops a parametrization suffix: t.py::test_x[1-a] -> t.py::test_x.
func stripParams(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}
