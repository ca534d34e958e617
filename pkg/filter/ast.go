package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationUnits converts a duration suffix to milliseconds, the unit stored in db.
var durationUnits = map[string]float64{
	"ms": 1,
	"s":  1000,
	"m":  60 * 1000,
	"h":  60 * 60 * 1000,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Expression is the abstract syntax tree for any expression.
type Expression interface {
	String() string
	Sql() string
}

// binaryExpression is a comparison like "flow = 'x'" or a logical "a and b".
type binaryExpression struct {
	Left  Expression
	Op    Token
	Right Expression
}

func (e *binaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *binaryExpression) Sql() string {
	switch e.Op {
	case like:
		return fmt.Sprintf("regexp_matches(%s, %s)", e.Left.Sql(), e.Right.Sql())
	case notLike:
		return fmt.Sprintf("NOT regexp_matches(%s, %s)", e.Left.Sql(), e.Right.Sql())
	default:
		return fmt.Sprintf("(%s %s %s)", e.Left.Sql(), e.Op.Sql(), e.Right.Sql())
	}
}

type fieldExpression struct {
	field field
}

func (e *fieldExpression) String() string {
	return e.field.name
}

func (e *fieldExpression) Sql() string {
	return e.field.column
}

type stringExpression struct {
	Value string
}

func (e *stringExpression) String() string {
	return strconv.Quote(e.Value)
}

func (e *stringExpression) Sql() string {
	return quote(e.Value)
}

type regexExpression struct {
	Pattern string
}

func newRegexExpression(pos int, pattern string) *regexExpression {
	if _, err := regexp.Compile(pattern); err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid regex: %s", err)})
	}
	return &regexExpression{Pattern: pattern}
}

func (e *regexExpression) String() string {
	return fmt.Sprintf("/%s/", e.Pattern)
}

func (e *regexExpression) Sql() string {
	return quote(e.Pattern)
}

type booleanExpression struct {
	Value bool
}

func (e *booleanExpression) String() string {
	return strconv.FormatBool(e.Value)
}

func (e *booleanExpression) Sql() string {
	if e.Value {
		return "TRUE"
	}
	return "FALSE"
}

type numberExpression struct {
	Value float64
}

func newNumberExpression(pos int, val string) *numberExpression {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid number %q", val)})
	}
	return &numberExpression{Value: v}
}

func (e *numberExpression) String() string {
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

func (e *numberExpression) Sql() string {
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

// durationExpression holds a duration in milliseconds.
type durationExpression struct {
	Millis float64
}

func newDurationExpression(pos int, val string) *durationExpression {
	i := strings.IndexFunc(val, func(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' })
	num, unit := val, "ms"
	if i >= 0 {
		num, unit = val[:i], strings.ToLower(val[i:])
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid duration %q", val)})
	}
	return &durationExpression{Millis: v * durationUnits[unit]}
}

func (e *durationExpression) String() string {
	return time.Duration(e.Millis * float64(time.Millisecond)).String()
}

func (e *durationExpression) Sql() string {
	return strconv.FormatFloat(e.Millis, 'f', -1, 64)
}

type timeExpression struct {
	Value time.Time
}

func newTimeExpression(pos int, val string) *timeExpression {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return &timeExpression{Value: t.UTC()}
		}
	}
	panic(ParseError{pos, fmt.Sprintf("invalid timestamp %q", val)})
}

func (e *timeExpression) String() string {
	return e.Value.Format(time.RFC3339)
}

func (e *timeExpression) Sql() string {
	return fmt.Sprintf("TIMESTAMP '%s'", e.Value.Format("2006-01-02 15:04:05"))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
