package filter

import (
	"fmt"
	"strings"
)

type lexer struct {
	src []byte
	pos int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peek() byte {
	if l.pos < len(l.src) {
		return l.src[l.pos]
	}
	return 0
}

// Scan returns the position, the token and the literal value of the next token.
func (l *lexer) Scan() (int, Token, string) {
	for isSpace(l.peek()) {
		l.pos++
	}

	start := l.pos
	if l.pos >= len(l.src) {
		return start, eol, ""
	}

	ch := l.src[l.pos]
	l.pos++

	switch {
	case isLetter(ch):
		for isLetter(l.peek()) || isDigit(l.peek()) {
			l.pos++
		}
		word := string(l.src[start:l.pos])
		switch strings.ToLower(word) {
		case "and":
			return start, and, ""
		case "or":
			return start, or, ""
		case "true", "false":
			return start, boolean, strings.ToLower(word)
		}
		return start, identifier, word
	case isDigit(ch):
		return l.scanNumber(start)
	}

	switch ch {
	case '(':
		return start, lbracket, ""
	case ')':
		return start, rbracket, ""
	case '=':
		return start, equal, ""
	case '~':
		return start, like, ""
	case '!':
		switch l.peek() {
		case '=':
			l.pos++
			return start, notEqual, ""
		case '~':
			l.pos++
			return start, notLike, ""
		}
		return start, illegal, "expected = or ~ after !"
	case '<':
		if l.peek() == '=' {
			l.pos++
			return start, lte, ""
		}
		return start, less, ""
	case '>':
		if l.peek() == '=' {
			l.pos++
			return start, gte, ""
		}
		return start, greater, ""
	case '"', '\'':
		end := strings.IndexByte(string(l.src[l.pos:]), ch)
		if end < 0 {
			l.pos = len(l.src)
			return start, illegal, "unclosed string"
		}
		val := string(l.src[l.pos : l.pos+end])
		l.pos += end + 1
		if val == "" {
			return start, illegal, "empty string"
		}
		return start, stringLit, val
	case '/':
		return l.scanRegex(start)
	}

	return start, illegal, fmt.Sprintf("unexpected char %q", ch)
}

func (l *lexer) scanNumber(start int) (int, Token, string) {
	for isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' {
		l.pos++
		if !isDigit(l.peek()) {
			return start, illegal, "malformed number"
		}
		for isDigit(l.peek()) {
			l.pos++
		}
	}

	numEnd := l.pos
	for isLetter(l.peek()) {
		l.pos++
	}
	if l.pos == numEnd {
		return start, number, string(l.src[start:l.pos])
	}

	unit := strings.ToLower(string(l.src[numEnd:l.pos]))
	if _, ok := durationUnits[unit]; !ok {
		return start, illegal, fmt.Sprintf("unknown duration unit %q", unit)
	}
	return start, duration, string(l.src[start:l.pos])
}

func (l *lexer) scanRegex(start int) (int, Token, string) {
	var b strings.Builder
	for {
		ch := l.peek()
		switch {
		case ch == 0:
			return start, illegal, "unclosed regex"
		case ch == '/':
			l.pos++
			return start, regexLit, b.String()
		case ch == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			b.WriteByte('/')
			l.pos += 2
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
