package pysrc

import (
	"bytes"
	"fmt"
	"strings"
)

// SyntaxError reports source the scanner cannot make sense of.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// logicalLine is one Python statement line after joining continuation
// lines and dropping comments. String literals are kept verbatim.
type logicalLine struct {
	line   int
	indent int
	text   string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// tabSize is the tab stop Python uses when measuring indentation.
const tabSize = 8

func splitLogical(src []byte) ([]logicalLine, error) {
	src = bytes.TrimPrefix(src, utf8BOM)

	var (
		out       []logicalLine
		cur       strings.Builder
		line      = 1
		start     int
		indent    int
		depth     int
		lineStart = true
	)

	emit := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			out = append(out, logicalLine{line: start, indent: indent, text: text})
		}
		cur.Reset()
	}

	i := 0
	for i < len(src) {
		if lineStart {
			col, j := measureIndent(src, i)
			if j >= len(src) {
				break
			}
			if c := src[j]; c == '\n' || c == '\r' || c == '#' {
				for j < len(src) && src[j] != '\n' {
					j++
				}
				if j < len(src) {
					j++
					line++
				}
				i = j
				continue
			}
			start, indent, i, lineStart = line, col, j, false
		}

		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '"' || c == '\'':
			end, lines, err := scanString(src, i, line)
			if err != nil {
				return nil, err
			}
			cur.Write(src[i:end])
			line += lines
			i = end
		case c == '\\':
			j := i + 1
			if j < len(src) && src[j] == '\r' {
				j++
			}
			if j < len(src) && src[j] == '\n' {
				cur.WriteByte(' ')
				line++
				i = j + 1
				continue
			}
			cur.WriteByte(c)
			i++
		case c == '(' || c == '[' || c == '{':
			depth++
			cur.WriteByte(c)
			i++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("unmatched %q", c)}
			}
			cur.WriteByte(c)
			i++
		case c == '\n':
			line++
			i++
			if depth > 0 {
				cur.WriteByte(' ')
				continue
			}
			emit()
			lineStart = true
		case c == '\r':
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	if depth > 0 {
		return nil, &SyntaxError{Line: line, Msg: "unexpected EOF: unclosed bracket"}
	}
	emit()
	return out, nil
}

// measureIndent returns the indentation column of the physical line
// starting at src[i] and the offset of its first non-blank byte.
func measureIndent(src []byte, i int) (int, int) {
	col := 0
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ':
			col++
		case '\t':
			col = (col/tabSize + 1) * tabSize
		case '\f':
			col = 0
		default:
			return col, i
		}
	}
	return col, i
}

// scanString returns the offset just past the literal starting at src[i]
// and the number of newlines it spans.
func scanString(src []byte, i, line int) (int, int, error) {
	q := src[i]
	triple := i+2 < len(src) && src[i+1] == q && src[i+2] == q
	j := i + 1
	if triple {
		j = i + 3
	}
	lines := 0
	for j < len(src) {
		c := src[j]
		switch {
		case c == '\\':
			if j+1 < len(src) && src[j+1] == '\n' {
				lines++
			}
			j += 2
			continue
		case c == '\n':
			if !triple {
				return 0, 0, &SyntaxError{Line: line, Msg: "unterminated string literal"}
			}
			lines++
		case c == q:
			if !triple {
				return j + 1, lines, nil
			}
			if j+2 < len(src) && src[j+1] == q && src[j+2] == q {
				return j + 3, lines, nil
			}
		}
		j++
	}
	return 0, 0, &SyntaxError{Line: line, Msg: "unterminated string literal"}
}

// stringLiteral reports whether text is a single statement made only of
// string literals and returns their concatenated contents. Bytes and
// f-strings are not docstrings.
func stringLiteral(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	var sb strings.Builder
	for text != "" {
		p := 0
		for p < len(text) && p < 2 && strings.IndexByte("rRuU", text[p]) >= 0 {
			p++
		}
		if p >= len(text) || (text[p] != '"' && text[p] != '\'') {
			return "", false
		}
		end, _, err := scanString([]byte(text), p, 0)
		if err != nil {
			return "", false
		}
		lit := text[p:end]
		quote := 1
		if len(lit) >= 6 && lit[1] == lit[0] && lit[2] == lit[0] {
			quote = 3
		}
		sb.WriteString(lit[quote : len(lit)-quote])
		text = strings.TrimSpace(text[end:])
		if strings.HasPrefix(text, ";") {
			break
		}
	}
	return sb.String(), true
}
