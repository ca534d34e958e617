package expectations

import (
	"maps"
	"regexp"
	"slices"
)

type Image struct {
	Reference        string
	Port             int
	AdminPasswordEnv string
}

type Credentials struct {
	AdminLogin   string
	WeakLogin    string
	WeakPassword string
}

// Markers are the log lines the configuration script of the image emits.
type Markers struct {
	Ready             string
	AlreadyConfigured string
	Setup             string
	StartFailure      string
}

type Plugin struct {
	Name    string
	Version string
}

type QualityGate struct {
	Name    string
	Default bool
}

// Table is an immutable set of expected server resources. Accessors return copies.
type Table struct {
	name        string
	image       Image
	credentials Credentials
	markers     Markers
	plugins     []Plugin
	gates       []QualityGate
	pattern     *regexp.Regexp
	profiles    map[string][]string
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Image() Image {
	return t.image
}

func (t *Table) Credentials() Credentials {
	return t.credentials
}

func (t *Table) Markers() Markers {
	return t.markers
}

// Plugins returns the required plugins in fixture order.
func (t *Table) Plugins() []Plugin {
	return slices.Clone(t.plugins)
}

func (t *Table) QualityGates() []QualityGate {
	return slices.Clone(t.gates)
}

// ProfileNamePattern selects which live profiles count towards the required sets.
func (t *Table) ProfileNamePattern() *regexp.Regexp {
	return t.pattern
}

// Languages returns the languages with required profiles, sorted.
func (t *Table) Languages() []string {
	return slices.Sorted(maps.Keys(t.profiles))
}

// QualityProfiles returns the required profile names of language.
func (t *Table) QualityProfiles(language string) []string {
	return slices.Clone(t.profiles[language])
}
