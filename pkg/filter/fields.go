package filter

import (
	"maps"
	"slices"
	"strings"
)

type kind int

const (
	textKind kind = iota
	timeKind
	durationKind
	numberKind
	boolKind
)

func (k kind) String() string {
	switch k {
	case textKind:
		return "text"
	case timeKind:
		return "timestamp"
	case durationKind:
		return "duration"
	case numberKind:
		return "number"
	case boolKind:
		return "boolean"
	default:
		return "unknown"
	}
}

type field struct {
	name   string
	column string
	kind   kind
}

// fields maps the filter identifiers to the columns of the runs table.
var fields = map[string]field{
	"flow":     {name: "flow", column: "flow", kind: textKind},
	"fixture":  {name: "fixture", column: "fixture", kind: textKind},
	"image":    {name: "image", column: "image", kind: textKind},
	"status":   {name: "status", column: "status", kind: textKind},
	"started":  {name: "started", column: "started_at", kind: timeKind},
	"finished": {name: "finished", column: "finished_at", kind: timeKind},
	"duration": {name: "duration", column: "duration_ms", kind: durationKind},
	"failures": {name: "failures", column: "failures", kind: numberKind},
	"passed":   {name: "passed", column: "(status = 'passed')", kind: boolKind},
}

func lookupField(name string) (field, bool) {
	f, ok := fields[strings.ToLower(name)]
	return f, ok
}

// Fields returns the names usable in a filter, sorted.
func Fields() []string {
	return slices.Sorted(maps.Keys(fields))
}
