package lang

import (
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// skippedDirs are never searched for tests.
var skippedDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"venv":          true,
	"site-packages": true,
	"vendor":        true,
	"testdata":      true,
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skippedDirs[name]
}

// skipGoDir also drops "_" directories, which the go tool ignores.
func skipGoDir(name string) bool {
	return skipDir(name) || strings.HasPrefix(name, "_")
}

// sourceFiles yields the paths of files under root accepted by match, in
// lexical order, pruning directories for which skip is true. Unreadable
// directories are logged and skipped.
func sourceFiles(root string, skip, match func(name string) bool, log *slog.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Debug("skipping unreadable path", "path", path, "err", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && skip(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !match(d.Name()) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			log.Debug("walk failed", "root", root, "err", err)
		}
	}
}

// relSlash returns path relative to root using forward slashes.
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// sourceCache memoizes parsed files. Entries are keyed by path and
// modification time so edited files are parsed again.
type sourceCache[V any] struct {
	entries *lru.Cache[string, V]
}

func newSourceCache[V any](size int) (*sourceCache[V], error) {
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &sourceCache[V]{entries: c}, nil
}

func (c *sourceCache[V]) get(path string, parse func(string) (V, error)) (V, error) {
	var zero V
	info, err := os.Stat(path)
	if err != nil {
		return zero, err
	}
	key := path + "@" + info.ModTime().String()
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err := parse(path)
	if err != nil {
		return zero, err
	}
	c.entries.Add(key, v)
	return v, nil
}
