// Package filter parses the query language of the run history into a SQL
// WHERE expression.
//
// Grammar
//
//	expression : term ( "or" term )* ;
//	term       : factor ( "and" factor )* ;
//	factor     : comparison | "(" expression ")" ;
//	comparison : FIELD ( "=" | "!=" | "<" | "<=" | ">" | ">=" ) value
//	           | FIELD ( "~" | "!~" ) REGEX ;
//	value      : STRING | NUMBER | DURATION | BOOLEAN ;
//
//	FIELD    : [a-zA-Z_]+ ;
//	REGEX    : '/' ( '\/' | . )*? '/' ;
//	STRING   : "'" .*? "'" | '"' .*? '"' ;
//	NUMBER   : [0-9]+ ( '.' [0-9]+ )? ;
//	DURATION : NUMBER ( "ms" | "s" | "m" | "h" ) ;
//	BOOLEAN  : "true" | "false" ;
//
// Fields are typed and checked while parsing:
//
//	flow, fixture, image, status  text, compared with strings or regexes
//	started, finished             timestamps, compared with strings like '2026-10-01'
//	duration                      compared with durations, plain numbers are milliseconds
//	failures                      number of failed checks
//	passed                        boolean
//
// Example:
//
//	flow = 'compose' and (failures > 0 or duration > 5m)
package filter
