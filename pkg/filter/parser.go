package filter

import (
	"fmt"
	"slices"
)

// ParseError is the type of error returned by Parse.
type ParseError struct {
	// Byte offset where the error occurred.
	Position int
	Message  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Position, e.Message)
}

type parser struct {
	lexer *lexer
	pos   int    // position of last token (tok)
	tok   Token  // last lexed token
	val   string // string value of last token (or "")
}

// Parse turns a filter into an expression tree whose Sql method renders a
// WHERE clause over the runs table.
//
// The recursive descent methods panic with a ParseError; Parse recovers it
// and returns it as an error. Any other panic is re-raised.
func Parse(src []byte) (expr Expression, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(ParseError)
			if !ok {
				panic(r)
			}
			expr = nil
			err = pe
		}
	}()

	p := parser{lexer: newLexer(src)}
	p.next()
	if p.tok == eol {
		return nil, ParseError{0, "empty filter"}
	}

	expr = p.expression()
	p.expect(eol)
	return expr, nil
}

// expression: term ( "or" term )*
func (p *parser) expression() Expression {
	expr := p.term()
	for p.matches(or) {
		op := p.tok
		p.next()
		expr = &binaryExpression{Left: expr, Op: op, Right: p.term()}
	}
	return expr
}

// term: factor ( "and" factor )*
func (p *parser) term() Expression {
	expr := p.factor()
	for p.matches(and) {
		op := p.tok
		p.next()
		expr = &binaryExpression{Left: expr, Op: op, Right: p.factor()}
	}
	return expr
}

// factor: comparison | "(" expression ")"
func (p *parser) factor() Expression {
	if p.matches(lbracket) {
		p.next()
		expr := p.expression()
		p.expect(rbracket)
		p.next()
		return expr
	}
	return p.comparison()
}

func (p *parser) comparison() Expression {
	p.expect(identifier)
	f, ok := lookupField(p.val)
	if !ok {
		panic(p.errorf("unknown field %q", p.val))
	}
	left := &fieldExpression{field: f}
	p.next()

	op := p.tok
	switch {
	case op.isRegex():
		if f.kind != textKind {
			panic(p.errorf("field %s is a %s, regex needs a text field", f.name, f.kind))
		}
		p.next()
		p.expect(regexLit)
		right := newRegexExpression(p.pos, p.val)
		p.next()
		return &binaryExpression{Left: left, Op: op, Right: right}
	case op.isOrdering():
		if f.kind == textKind || f.kind == boolKind {
			panic(p.errorf("field %s is a %s and cannot be ordered", f.name, f.kind))
		}
	case op == equal || op == notEqual:
	default:
		panic(p.errorf("expected operator instead of %s", op))
	}
	p.next()

	return &binaryExpression{Left: left, Op: op, Right: p.value(f)}
}

// value parses the right side of a comparison on f.
func (p *parser) value(f field) Expression {
	var expr Expression
	switch {
	case f.kind == textKind && p.tok == stringLit:
		expr = &stringExpression{Value: p.val}
	case f.kind == timeKind && p.tok == stringLit:
		expr = newTimeExpression(p.pos, p.val)
	case f.kind == durationKind && (p.tok == duration || p.tok == number):
		expr = newDurationExpression(p.pos, p.val)
	case f.kind == numberKind && p.tok == number:
		expr = newNumberExpression(p.pos, p.val)
	case f.kind == boolKind && p.tok == boolean:
		expr = &booleanExpression{Value: p.val == "true"}
	default:
		panic(p.errorf("expected %s value for %s instead of %s", f.kind, f.name, p.tok))
	}
	p.next()
	return expr
}

func (p *parser) next() {
	p.pos, p.tok, p.val = p.lexer.Scan()
	if p.tok == illegal {
		panic(p.errorf("%s", p.val))
	}
}

func (p *parser) matches(tokens ...Token) bool {
	return slices.Contains(tokens, p.tok)
}

func (p *parser) expect(tok Token) {
	if p.tok != tok {
		panic(p.errorf("expected %s instead of %s", tok, p.tok))
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return ParseError{p.pos, fmt.Sprintf(format, args...)}
}
