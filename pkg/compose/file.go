package compose

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/template"
	"gopkg.in/yaml.v3"
)

// File is the supported subset of the compose format.
type File struct {
	Name     string                `yaml:"name"`
	Services map[string]Service    `yaml:"services"`
	Volumes  map[string]VolumeSpec `yaml:"volumes"`
}

type Service struct {
	Image         string      `yaml:"image"`
	ContainerName string      `yaml:"container_name"`
	Command       StringList  `yaml:"command"`
	Environment   Environment `yaml:"environment"`
	Ports         []string    `yaml:"ports"`
	Volumes       []string    `yaml:"volumes"`
	DependsOn     DependsOn   `yaml:"depends_on"`
}

// VolumeSpec is a top-level volume. Name overrides the project-prefixed name.
type VolumeSpec struct {
	Name string `yaml:"name"`
}

// Environment accepts both the map and the KEY=VALUE list forms. Keys given
// without a value are resolved by Parse.
type Environment map[string]string

func (e *Environment) UnmarshalYAML(node *yaml.Node) error {
	env := make(Environment)
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			value := node.Content[i+1]
			if value.Tag == "!!null" {
				env[node.Content[i].Value] = ""
				continue
			}
			env[node.Content[i].Value] = value.Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			key, value, _ := strings.Cut(item.Value, "=")
			env[key] = value
		}
	default:
		return fmt.Errorf("line %d: environment must be a map or a list", node.Line)
	}
	*e = env
	return nil
}

// StringList accepts a single string split on spaces or a list of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// DependsOn accepts the list form and the map form. Conditions of the map form are ignored.
type DependsOn []string

func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*d = items
	case yaml.MappingNode:
		items := make([]string, 0, len(node.Content)/2)
		for i := 0; i < len(node.Content); i += 2 {
			items = append(items, node.Content[i].Value)
		}
		sort.Strings(items)
		*d = items
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a map", node.Line)
	}
	return nil
}

// Load reads and parses a compose file, interpolating variables from env.
func Load(path string, env map[string]string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	return Parse(data, env)
}

// Parse decodes a compose document. Scalar values are interpolated before decoding.
func Parse(data []byte, env map[string]string) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}

	if err := interpolateNode(&root, env); err != nil {
		return nil, err
	}
	passEnvironment(&root, env)

	var f File
	if err := root.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode compose file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Services) == 0 {
		return errors.New("compose file declares no service")
	}
	for name, svc := range f.Services {
		if svc.Image == "" {
			return fmt.Errorf("service %q: image is required", name)
		}
		for _, dep := range svc.DependsOn {
			if _, ok := f.Services[dep]; !ok {
				return fmt.Errorf("service %q depends on unknown service %q", name, dep)
			}
		}
		for _, p := range svc.Ports {
			if _, _, err := parsePort(p); err != nil {
				return fmt.Errorf("service %q: %w", name, err)
			}
		}
		for _, v := range svc.Volumes {
			source, _, err := parseVolume(v)
			if err != nil {
				return fmt.Errorf("service %q: %w", name, err)
			}
			if _, ok := f.Volumes[source]; !ok {
				return fmt.Errorf("service %q uses undeclared volume %q", name, source)
			}
		}
	}
	return nil
}

func interpolateNode(node *yaml.Node, env map[string]string) error {
	if node.Kind == yaml.ScalarNode {
		value, err := Interpolate(node.Value, env)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		node.Value = value
		return nil
	}
	for _, child := range node.Content {
		if err := interpolateNode(child, env); err != nil {
			return err
		}
	}
	return nil
}

// Interpolate expands $VAR, ${VAR}, ${VAR:-default}, ${VAR-default},
// ${VAR:?message} and nested defaults from env. "$$" yields a literal "$".
func Interpolate(s string, env map[string]string) (string, error) {
	return template.Substitute(s, func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	})
}

// passEnvironment resolves the environment entries declared without a value
// from env, the way compose passes variables through. Entries unset in env are dropped.
func passEnvironment(root *yaml.Node, env map[string]string) {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	services := mappingValue(doc, "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return
	}
	for i := 1; i < len(services.Content); i += 2 {
		environment := mappingValue(services.Content[i], "environment")
		if environment == nil {
			continue
		}
		switch environment.Kind {
		case yaml.SequenceNode:
			kept := environment.Content[:0]
			for _, item := range environment.Content {
				if item.Kind == yaml.ScalarNode && !strings.Contains(item.Value, "=") {
					value, ok := env[item.Value]
					if !ok {
						continue
					}
					item.Value = item.Value + "=" + value
				}
				kept = append(kept, item)
			}
			environment.Content = kept
		case yaml.MappingNode:
			kept := environment.Content[:0]
			for j := 0; j+1 < len(environment.Content); j += 2 {
				key, value := environment.Content[j], environment.Content[j+1]
				if value.Tag == "!!null" {
					v, ok := env[key.Value]
					if !ok {
						continue
					}
					value.Tag, value.Value = "!!str", v
				}
				kept = append(kept, key, value)
			}
			environment.Content = kept
		}
	}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// parsePort reads "HOST:CONTAINER" or "CONTAINER" with an optional "/tcp" suffix.
// A bare container port is published on the same host port.
func parsePort(spec string) (int, int, error) {
	spec, proto, _ := strings.Cut(spec, "/")
	if proto != "" && proto != "tcp" {
		return 0, 0, fmt.Errorf("port %q: only tcp is supported", spec)
	}

	parts := strings.Split(spec, ":")
	var hostRaw, containerRaw string
	switch len(parts) {
	case 1:
		hostRaw, containerRaw = parts[0], parts[0]
	case 2:
		hostRaw, containerRaw = parts[0], parts[1]
	default:
		return 0, 0, fmt.Errorf("port %q: host address bindings are not supported", spec)
	}

	host, err := portNumber(hostRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("port %q: %w", spec, err)
	}
	container, err := portNumber(containerRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("port %q: %w", spec, err)
	}
	return host, container, nil
}

func portNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port number %q", s)
	}
	return n, nil
}

// parseVolume reads "VOLUME:PATH[:MODE]". Only named volumes are supported.
func parseVolume(spec string) (string, string, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", fmt.Errorf("volume %q: expected NAME:PATH", spec)
	}
	source, target := parts[0], parts[1]
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~") {
		return "", "", fmt.Errorf("volume %q: bind mounts are not supported", spec)
	}
	if !strings.HasPrefix(target, "/") {
		return "", "", fmt.Errorf("volume %q: target must be an absolute path", spec)
	}
	return source, target, nil
}
