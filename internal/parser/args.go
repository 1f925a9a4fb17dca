package parser

import (
	"strconv"
	"strings"
)

// Unquote returns the value of a string literal in Go, Python or JavaScript
// syntax. ok is false when s is not a plain literal.
func Unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	// Python string prefixes (f-strings are kept verbatim).
	if len(s) > 2 && (s[0] == 'r' || s[0] == 'f' || s[0] == 'b') && (s[1] == '"' || s[1] == '\'') {
		s = s[1:]
	}
	if len(s) < 2 {
		return "", false
	}

	first, last := s[0], s[len(s)-1]
	switch {
	case first == '"' && last == '"':
		if v, err := strconv.Unquote(s); err == nil {
			return v, true
		}
		return s[1 : len(s)-1], true
	case first == '\'' && last == '\'':
		return s[1 : len(s)-1], true
	case first == '`' && last == '`':
		return s[1 : len(s)-1], true
	}
	return "", false
}

// StringArg returns the unquoted positional argument at index i.
func (c Construct) StringArg(i int) (string, bool) {
	positional := 0
	for _, a := range c.Args {
		if _, _, kw := splitKeyword(a); kw {
			continue
		}
		if positional == i {
			return Unquote(a)
		}
		positional++
	}
	return "", false
}

// PositionalArg returns the raw positional argument at index i.
func (c Construct) PositionalArg(i int) (string, bool) {
	positional := 0
	for _, a := range c.Args {
		if _, _, kw := splitKeyword(a); kw {
			continue
		}
		if positional == i {
			return strings.TrimSpace(a), true
		}
		positional++
	}
	return "", false
}

// KeywordArg returns the raw value of a name=value argument.
func (c Construct) KeywordArg(name string) (string, bool) {
	for _, a := range c.Args {
		if k, v, ok := splitKeyword(a); ok && k == name {
			return v, true
		}
	}
	return "", false
}

// splitKeyword recognizes Python keyword arguments. Comparisons such as a==b
// are not keywords.
func splitKeyword(arg string) (string, string, bool) {
	arg = strings.TrimSpace(arg)
	idx := strings.IndexByte(arg, '=')
	if idx <= 0 || idx == len(arg)-1 || arg[idx+1] == '=' {
		return "", "", false
	}
	name := strings.TrimSpace(arg[:idx])
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", "", false
		}
	}
	return name, strings.TrimSpace(arg[idx+1:]), true
}

// ListItems splits a bracketed list literal such as ["GET", "POST"].
func ListItems(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nil
	}
	open, close := s[0], s[len(s)-1]
	if !(open == '[' && close == ']' || open == '(' && close == ')' || open == '{' && close == '}') {
		return nil
	}
	items, _ := splitArgs(s, 0)
	return items
}

// splitArgs splits the top-level comma separated items of the bracketed
// expression starting at src[open]. It returns the items and the index just
// past the closing bracket, or -1 when the bracket is never closed.
func splitArgs(src string, open int) ([]string, int) {
	if open >= len(src) {
		return nil, -1
	}
	closer := map[byte]byte{'(': ')', '[': ']', '{': '}'}[src[open]]
	if closer == 0 {
		return nil, -1
	}

	var (
		items []string
		depth = 0
		start = open + 1
		quote byte
	)
	for i := open; i < len(src); i++ {
		ch := src[i]
		if quote != 0 {
			if ch == '\\' && quote != '`' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if item := strings.TrimSpace(src[start:i]); item != "" {
					items = append(items, item)
				}
				return items, i + 1
			}
		case ',':
			if depth == 1 {
				items = append(items, strings.TrimSpace(src[start:i]))
				start = i + 1
			}
		}
	}
	return items, -1
}

func lineAt(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}
