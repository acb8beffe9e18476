// Package lang implements per-language test discovery, result ingestion
// and docstring lookup. The set of languages is closed.
package lang

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/guide/internal/spec"
)

// Language identifies a project's implementation language.
type Language string

const (
	Python     Language = "py"
	Go         Language = "go"
	TypeScript Language = "ts"
	Markdown   Language = "md"
)

var (
	// ErrNotImplemented is returned by backends for operations their
	// language does not support yet.
	ErrNotImplemented = errors.New("not implemented for this language")

	// ErrUnresolved is returned when a test ref cannot be traced back to
	// its source definition.
	ErrUnresolved = errors.New("test ref could not be resolved")
)

// ParseError is a malformed line in a structured results log.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: invalid JSON: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Backend is the per-language view of a project's tests.
type Backend interface {
	Language() Language

	// ResultsFile is the name of the results log inside the results dir.
	ResultsFile() string

	// DiscoverTests yields the qualified refs of every test defined under
	// root. Each call rescans the tree.
	DiscoverTests(root string) iter.Seq[string]

	// LoadTestResults reads the results log at path. Result refs are made
	// relative to root, like those from DiscoverTests. A missing file
	// yields no results and no error.
	LoadTestResults(root, path string) ([]spec.TestResult, error)

	// Docstring returns the documentation attached to the test ref under
	// root. Failures wrap ErrUnresolved or ErrNotImplemented.
	Docstring(root, ref string) (string, error)
}

// Options tune backend construction.
type Options struct {
	// CacheSize bounds the number of parsed source files kept in memory.
	CacheSize int
	Logger    *slog.Logger
}

const defaultCacheSize = 256

func (o Options) withDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = defaultCacheSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Parse validates a language name.
func Parse(name string) (Language, error) {
	switch l := Language(name); l {
	case Python, Go, TypeScript, Markdown:
		return l, nil
	default:
		return "", fmt.Errorf("unknown language %q: valid languages are py, go, ts, md", name)
	}
}

// Implemented reports whether discovery and ingestion are real for l.
// Placeholder languages never report declared tests as missing.
func Implemented(l Language) bool {
	return l == Python || l == Go
}

// Get returns the backend for l.
func Get(l Language, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch l {
	case Python:
		return newPython(opts)
	case Go:
		return newGolang(opts)
	case TypeScript:
		return typescript{}, nil
	case Markdown:
		return markdown{}, nil
	default:
		return nil, fmt.Errorf("unknown language %q: valid languages are py, go, ts, md", l)
	}
}

// Detect guesses the language of the project rooted at dir from its
// manifest files, falling back to Markdown.
func Detect(dir string) Language {
	for _, m := range []struct {
		file string
		lang Language
	}{
		{"pyproject.toml", Python},
		{"go.mod", Go},
		{"package.json", TypeScript},
	} {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err == nil {
			return m.lang
		}
	}
	return Markdown
}
