package expectations

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFixture = "lequal-8.9"

	schemaURL          = "table.schema.json"
	defaultNamePattern = ".*"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

//go:embed schema/table.schema.json
var schemaJSON []byte

var (
	schema     *jsonschema.Schema
	schemaOnce sync.Once
	schemaErr  error
)

type document struct {
	Name  string `yaml:"name"`
	Image struct {
		Reference        string `yaml:"reference"`
		Port             int    `yaml:"port"`
		AdminPasswordEnv string `yaml:"adminPasswordEnv"`
	} `yaml:"image"`
	Credentials struct {
		AdminLogin   string `yaml:"adminLogin"`
		WeakLogin    string `yaml:"weakLogin"`
		WeakPassword string `yaml:"weakPassword"`
	} `yaml:"credentials"`
	Markers struct {
		Ready             string `yaml:"ready"`
		AlreadyConfigured string `yaml:"alreadyConfigured"`
		Setup             string `yaml:"setup"`
		StartFailure      string `yaml:"startFailure"`
	} `yaml:"markers"`
	Plugins []struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"plugins"`
	QualityGates []struct {
		Name    string `yaml:"name"`
		Default bool   `yaml:"default"`
	} `yaml:"qualityGates"`
	QualityProfiles struct {
		NamePattern string              `yaml:"namePattern"`
		Languages   map[string][]string `yaml:"languages"`
	} `yaml:"qualityProfiles"`
}

// Available lists the embedded fixtures.
func Available() []string {
	entries, err := fs.ReadDir(fixtures, "fixtures")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	slices.Sort(names)
	return names
}

// Load returns the embedded fixture called name.
func Load(name string) (*Table, error) {
	data, err := fixtures.ReadFile(path.Join("fixtures", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown fixture %q (available: %s)", name, strings.Join(Available(), ", "))
	}
	return Parse(data)
}

// LoadFile reads a fixture from disk.
func LoadFile(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Parse(data)
}

// Resolve loads filename when set and the embedded fixture name otherwise.
func Resolve(name, filename string) (*Table, error) {
	if filename != "" {
		return LoadFile(filename)
	}
	if name == "" {
		name = DefaultFixture
	}
	return Load(name)
}

// Parse validates a YAML fixture against the table schema and builds the Table.
func Parse(data []byte) (*Table, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return newTable(doc)
}

func newTable(doc document) (*Table, error) {
	pattern := doc.QualityProfiles.NamePattern
	if pattern == "" {
		pattern = defaultNamePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid profile name pattern %q: %w", pattern, err)
	}

	t := &Table{
		name: doc.Name,
		image: Image{
			Reference:        doc.Image.Reference,
			Port:             doc.Image.Port,
			AdminPasswordEnv: doc.Image.AdminPasswordEnv,
		},
		credentials: Credentials{
			AdminLogin:   doc.Credentials.AdminLogin,
			WeakLogin:    doc.Credentials.WeakLogin,
			WeakPassword: doc.Credentials.WeakPassword,
		},
		markers: Markers{
			Ready:             doc.Markers.Ready,
			AlreadyConfigured: doc.Markers.AlreadyConfigured,
			Setup:             doc.Markers.Setup,
			StartFailure:      doc.Markers.StartFailure,
		},
		pattern:  re,
		profiles: make(map[string][]string, len(doc.QualityProfiles.Languages)),
	}

	seen := make(map[string]bool, len(doc.Plugins))
	for _, p := range doc.Plugins {
		if seen[p.Name] {
			return nil, fmt.Errorf("plugin %q listed twice", p.Name)
		}
		seen[p.Name] = true
		t.plugins = append(t.plugins, Plugin{Name: p.Name, Version: p.Version})
	}

	clear(seen)
	for _, g := range doc.QualityGates {
		if seen[g.Name] {
			return nil, fmt.Errorf("quality gate %q listed twice", g.Name)
		}
		seen[g.Name] = true
		t.gates = append(t.gates, QualityGate{Name: g.Name, Default: g.Default})
	}

	for lang, names := range doc.QualityProfiles.Languages {
		for _, n := range names {
			if !re.MatchString(n) {
				return nil, fmt.Errorf("profile %q of %s does not match %q", n, lang, pattern)
			}
		}
		t.profiles[lang] = slices.Clone(names)
	}

	return t, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

func validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling fixture schema: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding fixture: %w", err)
	}

	// the validator works on the encoding/json value model
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("converting fixture: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("converting fixture: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}
	return nil
}
