package lang

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/dshills/guide/internal/spec"
)

// testEvent is one record of `go test -json` output.
type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
}

var goOutcomes = map[string]string{
	"pass": "passed",
	"fail": "failed",
	"skip": "skipped",
}

// loadGoTestJSON reads a `go test -json` stream. Only the terminal event of
// each top-level test becomes a result; subtests, output and package-level
// events are ignored. Package import paths are mapped back to directories
// relative to root using the nearest go.mod at or above root.
func loadGoTestJSON(root, path string) ([]spec.TestResult, error) {
	var events []testEvent
	err := decodeLines(path, func(e testEvent) {
		outcome, ok := goOutcomes[e.Action]
		if !ok || e.Test == "" || strings.Contains(e.Test, "/") {
			return
		}
		e.Action = outcome
		events = append(events, e)
	})
	if err != nil || len(events) == 0 {
		return nil, err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	mod, err := findModule(root)
	if err != nil {
		return nil, err
	}
	results := make([]spec.TestResult, 0, len(events))
	for _, e := range events {
		results = append(results, spec.TestResult{
			Ref:     mod.packageDir(root, e.Package) + spec.RefSeparator + e.Test,
			Status:  spec.StatusOf(e.Action),
			Outcome: e.Action,
			Details: map[string]float64{"duration": e.Elapsed},
		})
	}
	return results, nil
}

// module is a go.mod found on disk. The zero value means no module.
type module struct {
	path string
	dir  string
}

// findModule returns the first module whose go.mod is found walking up
// from the absolute directory dir.
func findModule(dir string) (module, error) {
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			mp := modfile.ModulePath(data)
			if mp == "" {
				return module{}, fmt.Errorf("%s: no module directive", gomod)
			}
			return module{path: mp, dir: dir}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return module{}, fmt.Errorf("reading go.mod: %w", err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return module{}, nil
		}
		dir = parent
	}
}

// packageDir maps an import path to its directory relative to root, the
// form discovery produces. Packages outside the module keep their import
// path.
func (m module) packageDir(root, pkg string) string {
	if m.path == "" {
		return pkg
	}
	var rest string
	switch {
	case pkg == m.path:
		rest = "."
	case strings.HasPrefix(pkg, m.path+"/"):
		rest = strings.TrimPrefix(pkg, m.path+"/")
	default:
		return pkg
	}
	rel, err := filepath.Rel(root, filepath.Join(m.dir, filepath.FromSlash(rest)))
	if err != nil {
		return rest
	}
	return filepath.ToSlash(rel)
}
