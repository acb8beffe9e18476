package lang

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"

	"github.com/dshills/guide/internal/spec"
)

func noTests(yield func(string) bool) {}

// typescript is a placeholder: discovery finds nothing and an existing
// results file cannot be read yet.
type typescript struct{}

func (typescript) Language() Language                         { return TypeScript }
func (typescript) ResultsFile() string                        { return "results.json" }
func (typescript) DiscoverTests(root string) iter.Seq[string] { return noTests }

func (typescript) LoadTestResults(_, path string) ([]spec.TestResult, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return nil, fmt.Errorf("loading %s: %w", path, ErrNotImplemented)
}

func (typescript) Docstring(root, ref string) (string, error) {
	return "", fmt.Errorf("%s: %w", ref, ErrNotImplemented)
}

// markdown projects have no executable tests.
type markdown struct{}

func (markdown) Language() Language                         { return Markdown }
func (markdown) ResultsFile() string                        { return "placeholder.md" }
func (markdown) DiscoverTests(root string) iter.Seq[string] { return noTests }

func (markdown) LoadTestResults(_, path string) ([]spec.TestResult, error) {
	return nil, nil
}

func (markdown) Docstring(root, ref string) (string, error) {
	return "", fmt.Errorf("%s: %w", ref, ErrNotImplemented)
}
