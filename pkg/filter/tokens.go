package filter

type Token int

const (
	illegal Token = iota
	eol
	and
	or
	equal
	notEqual
	greater
	gte
	less
	lte
	like
	notLike
	lbracket
	rbracket
	stringLit
	regexLit
	number
	duration
	boolean
	identifier
)

var tokenNames = map[Token]string{
	illegal:    "illegal",
	eol:        "eol",
	and:        "and",
	or:         "or",
	equal:      "equal",
	notEqual:   "notEqual",
	greater:    "greater",
	gte:        "gte",
	less:       "less",
	lte:        "lte",
	like:       "like",
	notLike:    "notLike",
	lbracket:   "lbracket",
	rbracket:   "rbracket",
	stringLit:  "stringLit",
	regexLit:   "regexLit",
	number:     "number",
	duration:   "duration",
	boolean:    "boolean",
	identifier: "identifier",
}

func (t Token) String() string {
	return tokenNames[t]
}

var tokenSql = map[Token]string{
	and:      "AND",
	or:       "OR",
	equal:    "=",
	notEqual: "!=",
	greater:  ">",
	gte:      ">=",
	less:     "<",
	lte:      "<=",
}

func (t Token) Sql() string {
	return tokenSql[t]
}

func (t Token) isOrdering() bool {
	switch t {
	case greater, gte, less, lte:
		return true
	}
	return false
}

func (t Token) isRegex() bool {
	return t == like || t == notLike
}
