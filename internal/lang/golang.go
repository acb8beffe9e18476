package lang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/guide/internal/spec"
)

// golang discovers `func TestXxx(t *testing.T)` declarations in _test.go
// files. Refs take the form "<package dir>::TestXxx", with "." for the
// module root.
type golang struct {
	opts  Options
	files *sourceCache[[]goTest]
}

type goTest struct {
	name string
	doc  string
}

func newGolang(opts Options) (*golang, error) {
	c, err := newSourceCache[[]goTest](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating source cache: %w", err)
	}
	return &golang{opts: opts, files: c}, nil
}

func (g *golang) Language() Language  { return Go }
func (g *golang) ResultsFile() string { return "go-test.jsonl" }

func isGoTestFile(name string) bool {
	return strings.HasSuffix(name, "_test.go")
}

func (g *golang) DiscoverTests(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]bool)
		for path := range sourceFiles(root, skipGoDir, isGoTestFile, g.opts.Logger) {
			tests, err := g.files.get(path, parseGoTests)
			if err != nil {
				g.opts.Logger.Debug("skipping unparsable test file", "path", path, "err", err)
				continue
			}
			dir := relSlash(root, filepath.Dir(path))
			for _, t := range tests {
				ref := dir + spec.RefSeparator + t.name
				if seen[ref] {
					continue
				}
				seen[ref] = true
				if !yield(ref) {
					return
				}
			}
		}
	}
}

func (g *golang) LoadTestResults(root, path string) ([]spec.TestResult, error) {
	return loadGoTestJSON(root, path)
}

func (g *golang) Docstring(root, ref string) (string, error) {
	dir, names, err := splitRef(ref)
	if err != nil {
		return "", err
	}
	name := names[0]
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	pkgDir := filepath.Join(root, filepath.FromSlash(dir))
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolved, ref, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isGoTestFile(e.Name()) {
			continue
		}
		tests, err := g.files.get(filepath.Join(pkgDir, e.Name()), parseGoTests)
		if err != nil {
			continue
		}
		for _, t := range tests {
			if t.name == name {
				return t.doc, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s: no such test function", ErrUnresolved, ref)
}

func parseGoTests(path string) ([]goTest, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	var tests []goTest
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !isTestFunc(fn) {
			continue
		}
		tests = append(tests, goTest{name: fn.Name.Name, doc: fn.Doc.Text()})
	}
	return tests, nil
}

// isTestFunc applies the rules `go test` uses: a top-level function named
// Test or TestXxx where Xxx does not start with a lower case letter, taking
// a single *testing.T.
func isTestFunc(fn *ast.FuncDecl) bool {
	if fn.Recv != nil || fn.Type.TypeParams != nil || fn.Type.Results != nil {
		return false
	}
	rest, ok := strings.CutPrefix(fn.Name.Name, "Test")
	if !ok {
		return false
	}
	if rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.IsLower(r) {
			return false
		}
	}
	params := fn.Type.Params.List
	if len(params) != 1 || len(params[0].Names) > 1 {
		return false
	}
	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	return ok && sel.Sel.Name == "T"
}
