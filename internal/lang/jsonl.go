package lang

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// decodeLines decodes each non-blank line of the JSONL file at path into a
// fresh T and passes it to fn. A missing file is not an error; any line
// that is not valid JSON aborts with a *ParseError.
func decodeLines[T any](path string, fn func(T)) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening results: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Captured output can make single lines large.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return &ParseError{Path: path, Line: lineno, Err: err}
		}
		fn(v)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	return nil
}
