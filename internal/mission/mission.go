// Package mission loads and persists a project's mission.yaml: its design
// tree, the signal of the last sync and opaque dataset declarations.
package mission

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dshills/guide/internal/lang"
	"github.com/dshills/guide/internal/signal"
	"github.com/dshills/guide/internal/spec"
)

// FileName is the name of the persisted project document.
const FileName = "mission.yaml"

// DatasetsDirName is created next to mission.yaml by Touch.
const DatasetsDirName = "datasets"

// ErrNotFound is returned when no mission.yaml exists in a directory or
// any of its parents.
var ErrNotFound = errors.New("no " + FileName + " found")

// Mission is the persisted state of one project. Field order matches the
// order written to disk.
type Mission struct {
	ID     string        `yaml:"id"`
	Name   string        `yaml:"name"`
	Lang   lang.Language `yaml:"lang"`
	Design spec.Design   `yaml:"design"`
	Signal []signal.Test `yaml:"signal"`

	// Datasets is carried through untouched.
	Datasets *yaml.Node `yaml:"datasets,omitempty"`

	// Dir is the directory holding mission.yaml. It is never persisted.
	Dir string `yaml:"-"`
}

// New returns an empty mission rooted at dir.
func New(dir, name string, l lang.Language) *Mission {
	return &Mission{
		ID:   Acronym(name),
		Name: name,
		Lang: l,
		Design: spec.Design{Spec: spec.Spec{
			Key:   "S0",
			Defn:  name,
			Specs: []*spec.Spec{},
		}},
		Signal: []signal.Test{},
		Dir:    dir,
	}
}

// Path returns the location of the mission file.
func (m *Mission) Path() string {
	return filepath.Join(m.Dir, FileName)
}

// Acronym returns the lower-case initials of the words in name.
func Acronym(name string) string {
	var sb strings.Builder
	for _, w := range strings.Fields(name) {
		r := []rune(w)[0]
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// Load reads and validates the mission file at path. Unknown keys are
// rejected so a misspelled field is reported instead of silently lost.
func Load(path string) (*Mission, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir = filepath.Dir(abs)
	if m.Lang == "" {
		m.Lang = lang.Detect(m.Dir)
	}
	return m, nil
}

// Decode parses a mission document, normalizes it and checks its
// invariants. Dir is left empty.
func Decode(data []byte) (*Mission, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Mission
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, err
	}
	if m.ID == "" {
		m.ID = Acronym(m.Name)
	}
	if m.Lang != "" {
		if _, err := lang.Parse(string(m.Lang)); err != nil {
			return nil, err
		}
	}
	if m.Signal == nil {
		m.Signal = []signal.Test{}
	}
	m.Design.AssignKeys()
	if err := m.Design.Validate(); err != nil {
		return nil, fmt.Errorf("design: %w", err)
	}
	for _, t := range m.Signal {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("signal %s: %w", t.ID, err)
		}
	}
	return &m, nil
}

// Marshal encodes m with two-space indentation.
func (m *Mission) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding mission: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding mission: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes m to its Path atomically and returns the bytes written.
// Readers see either the previous file or the new one, never a mix.
func (m *Mission) Save() ([]byte, error) {
	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(m.Path(), data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mission-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// FindNearest returns the path of the first mission.yaml found in dir or
// one of its parents.
func FindNearest(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s upward)", ErrNotFound, dir)
		}
		dir = parent
	}
}

// TouchOptions configure Touch. Empty fields are derived from the
// directory.
type TouchOptions struct {
	Name       string
	Lang       lang.Language
	ResultsDir string
}

// Touch returns the nearest mission above dir, creating one in dir when
// none exists, and makes sure its results and datasets directories exist.
// The second return value reports whether a new file was written.
func Touch(dir string, opts TouchOptions) (*Mission, bool, error) {
	created := false
	m, err := loadNearest(dir)
	switch {
	case errors.Is(err, ErrNotFound):
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, false, err
		}
		name := opts.Name
		if name == "" {
			name = filepath.Base(abs)
		}
		l := opts.Lang
		if l == "" {
			l = lang.Detect(abs)
		}
		m = New(abs, name, l)
		if _, err := m.Save(); err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	}

	results := opts.ResultsDir
	if results == "" {
		results = "results"
	}
	for _, sub := range []string{results, DatasetsDirName} {
		if err := os.MkdirAll(filepath.Join(m.Dir, sub), 0o755); err != nil {
			return nil, false, fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	return m, created, nil
}

func loadNearest(dir string) (*Mission, error) {
	path, err := FindNearest(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
