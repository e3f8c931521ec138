// Package parser splits a multi-statement SQL string into individual statements.
package parser

import "strings"

type state int

const (
	stateCode state = iota
	stateSingleQuote
	stateDoubleQuote
	stateBacktick
	stateLineComment
	stateBlockComment
)

// Split returns the statements of query in order, trimmed and without the
// separating semicolons. Semicolons inside string literals, quoted
// identifiers and comments do not separate statements. Segments that hold
// nothing but whitespace and comments are dropped.
func Split(query string) []string {
	statements := []string{}

	var current strings.Builder
	hasCode := false
	st := stateCode

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if hasCode && stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		var next byte
		if i+1 < len(query) {
			next = query[i+1]
		}

		switch st {
		case stateSingleQuote:
			current.WriteByte(c)
			if c == '\'' {
				if next == '\'' {
					current.WriteByte(next)
					i++
				} else {
					st = stateCode
				}
			}
			continue
		case stateDoubleQuote:
			current.WriteByte(c)
			if c == '"' {
				if next == '"' {
					current.WriteByte(next)
					i++
				} else {
					st = stateCode
				}
			}
			continue
		case stateBacktick:
			current.WriteByte(c)
			if c == '`' {
				st = stateCode
			}
			continue
		case stateLineComment:
			current.WriteByte(c)
			if c == '\n' {
				st = stateCode
			}
			continue
		case stateBlockComment:
			current.WriteByte(c)
			if c == '*' && next == '/' {
				current.WriteByte(next)
				i++
				st = stateCode
			}
			continue
		}

		switch {
		case c == ';':
			flush()
		case c == '\'':
			st = stateSingleQuote
			hasCode = true
			current.WriteByte(c)
		case c == '"':
			st = stateDoubleQuote
			hasCode = true
			current.WriteByte(c)
		case c == '`':
			st = stateBacktick
			hasCode = true
			current.WriteByte(c)
		case c == '-' && next == '-':
			st = stateLineComment
			current.WriteString("--")
			i++
		case c == '/' && next == '*':
			st = stateBlockComment
			current.WriteString("/*")
			i++
		default:
			if !isSpace(c) {
				hasCode = true
			}
			current.WriteByte(c)
		}
	}
	flush()

	return statements
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
