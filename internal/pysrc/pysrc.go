// Package pysrc reads the structure of Python source files without running
// them: module level functions and classes, their nested definitions and
// docstrings. It is deliberately shallow; expressions are never parsed.
package pysrc

import (
	"fmt"
	"os"
	"strings"
)

// Kind distinguishes function and class definitions.
type Kind int

const (
	Func Kind = iota
	Class
)

func (k Kind) String() string {
	if k == Class {
		return "class"
	}
	return "def"
}

// Node is a def or class statement.
type Node struct {
	Kind     Kind
	Name     string
	Line     int
	Doc      string
	Children []*Node
}

// Module is the parsed outline of one source file.
type Module struct {
	Path  string
	Nodes []*Node
}

// compoundKeywords open an indented block that does not create a scope.
var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"try": true, "except": true, "finally": true, "with": true,
	"async": true, "match": true, "case": true,
}

type block struct {
	indent int
	node   *Node
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse builds the outline of src. It fails on unterminated strings,
// unbalanced brackets and inconsistent indentation.
func Parse(src []byte) (*Module, error) {
	lines, err := splitLogical(src)
	if err != nil {
		return nil, err
	}

	m := &Module{}
	levels := []int{0}
	var (
		stack        []block
		expectIndent bool
		pending      *Node
		pendingAt    int
		lastLine     int
	)

	for _, ll := range lines {
		lastLine = ll.line
		top := levels[len(levels)-1]
		switch {
		case ll.indent > top:
			if !expectIndent {
				return nil, &SyntaxError{Line: ll.line, Msg: "unexpected indent"}
			}
			levels = append(levels, ll.indent)
		case expectIndent:
			return nil, &SyntaxError{Line: ll.line, Msg: "expected an indented block"}
		default:
			for ll.indent < levels[len(levels)-1] {
				levels = levels[:len(levels)-1]
			}
			if ll.indent != levels[len(levels)-1] {
				return nil, &SyntaxError{Line: ll.line, Msg: "unindent does not match any outer indentation level"}
			}
		}
		expectIndent = false

		for len(stack) > 0 && stack[len(stack)-1].indent >= ll.indent {
			stack = stack[:len(stack)-1]
		}

		if pending != nil {
			if ll.indent > pendingAt {
				if doc, ok := stringLiteral(ll.text); ok {
					pending.Doc = doc
				}
			}
			pending = nil
		}

		head, body, hasColon := splitHeader(ll.text)
		kind, name, isDef := definition(head)
		if isDef {
			if name == "" {
				return nil, &SyntaxError{Line: ll.line, Msg: "invalid " + kind.String() + " statement"}
			}
			if !hasColon {
				return nil, &SyntaxError{Line: ll.line, Msg: "expected ':'"}
			}
			n := &Node{Kind: kind, Name: name, Line: ll.line}
			if parent := enclosing(stack); parent != nil {
				parent.Children = append(parent.Children, n)
			} else {
				m.Nodes = append(m.Nodes, n)
			}
			if body == "" {
				expectIndent = true
				stack = append(stack, block{indent: ll.indent, node: n})
				pending, pendingAt = n, ll.indent
			} else if doc, ok := stringLiteral(body); ok {
				n.Doc = doc
			}
			continue
		}

		if hasColon && body == "" && compoundKeywords[firstWord(head)] {
			expectIndent = true
			stack = append(stack, block{indent: ll.indent})
		}
	}
	if expectIndent {
		return nil, &SyntaxError{Line: lastLine, Msg: "expected an indented block"}
	}
	return m, nil
}

// Lookup follows a path of names from the module level, e.g.
// ("TestParser", "test_tokens"). Later definitions shadow earlier ones,
// as they would at import time.
func (m *Module) Lookup(names ...string) (*Node, bool) {
	if len(names) == 0 {
		return nil, false
	}
	nodes := m.Nodes
	var found *Node
	for _, name := range names {
		found = nil
		for _, n := range nodes {
			if n.Name == name {
				found = n
			}
		}
		if found == nil {
			return nil, false
		}
		nodes = found.Children
	}
	return found, true
}

func enclosing(stack []block) *Node {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].node != nil {
			return stack[i].node
		}
	}
	return nil
}

// splitHeader splits a statement at its first top-level colon.
func splitHeader(text string) (head, body string, ok bool) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '"', '\'':
			end, _, err := scanString([]byte(text), i, 0)
			if err != nil {
				return text, "", false
			}
			i = end - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				if i+1 < len(text) && text[i+1] == '=' {
					continue
				}
				return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:]), true
			}
		}
	}
	return text, "", false
}

// definition recognises "def name(", "async def name(" and "class Name".
func definition(head string) (Kind, string, bool) {
	rest, ok := strings.CutPrefix(head, "async ")
	if ok {
		rest = strings.TrimSpace(rest)
	} else {
		rest = head
	}
	var kind Kind
	switch {
	case strings.HasPrefix(rest, "def ") || strings.HasPrefix(rest, "def\t"):
		kind, rest = Func, rest[4:]
	case !ok && (strings.HasPrefix(rest, "class ") || strings.HasPrefix(rest, "class\t")):
		kind, rest = Class, rest[6:]
	default:
		return 0, "", false
	}
	return kind, identifier(strings.TrimSpace(rest)), true
}

func identifier(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || end > 0 && c >= '0' && c <= '9' || c >= 0x80 {
			end++
			continue
		}
		break
	}
	return s[:end]
}

func firstWord(s string) string {
	end := 0
	for end < len(s) && (s[end] == '_' || s[end] >= 'a' && s[end] <= 'z' || s[end] >= 'A' && s[end] <= 'Z') {
		end++
	}
	return s[:end]
}
