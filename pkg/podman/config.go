package podman

import "maps"

// ContainerConfig describes a container to create and start.
type ContainerConfig struct {
	name        string
	image       string
	cmd         []string
	ports       map[int]int
	envVars     map[string]string
	volumes     map[string]string
	network     string
	aliases     []string
	hostNetwork bool
}

// NewContainerConfig creates a new ContainerConfig with mandatory name and image.
func NewContainerConfig(name, image string) *ContainerConfig {
	return &ContainerConfig{
		name:    name,
		image:   image,
		ports:   make(map[int]int),
		envVars: make(map[string]string),
		volumes: make(map[string]string),
	}
}

// WithPort adds a port mapping (hostPort -> containerPort).
func (c *ContainerConfig) WithPort(hostPort, containerPort int) *ContainerConfig {
	c.ports[hostPort] = containerPort
	return c
}

// WithEnvVar adds a single environment variable.
func (c *ContainerConfig) WithEnvVar(key, value string) *ContainerConfig {
	c.envVars[key] = value
	return c
}

// WithEnvVars adds multiple environment variables.
func (c *ContainerConfig) WithEnvVars(envVars map[string]string) *ContainerConfig {
	maps.Copy(c.envVars, envVars)
	return c
}

// WithVolume adds a named volume mapping (volumeName -> containerPath).
func (c *ContainerConfig) WithVolume(volumeName, containerPath string) *ContainerConfig {
	c.volumes[volumeName] = containerPath
	return c
}

// WithCmd sets the command to run in the container.
func (c *ContainerConfig) WithCmd(cmd ...string) *ContainerConfig {
	c.cmd = cmd
	return c
}

// WithNetwork attaches the container to a bridge network under the given aliases.
func (c *ContainerConfig) WithNetwork(name string, aliases ...string) *ContainerConfig {
	c.network = name
	c.aliases = aliases
	c.hostNetwork = false
	return c
}

// WithHostNetwork runs the container in the host network namespace. Port mappings are ignored.
func (c *ContainerConfig) WithHostNetwork() *ContainerConfig {
	c.hostNetwork = true
	c.network = ""
	return c
}

func (c *ContainerConfig) Name() string {
	return c.name
}

func (c *ContainerConfig) Image() string {
	return c.image
}

func (c *ContainerConfig) Cmd() []string {
	return append([]string(nil), c.cmd...)
}

func (c *ContainerConfig) EnvVars() map[string]string {
	return maps.Clone(c.envVars)
}

func (c *ContainerConfig) Ports() map[int]int {
	return maps.Clone(c.ports)
}

func (c *ContainerConfig) Volumes() map[string]string {
	return maps.Clone(c.volumes)
}

func (c *ContainerConfig) Network() string {
	return c.network
}

func (c *ContainerConfig) Aliases() []string {
	return append([]string(nil), c.aliases...)
}
