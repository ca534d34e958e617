package compose

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/podman"
)

// Runtime is the container engine a project is deployed on.
type Runtime interface {
	StartContainer(ctx context.Context, cfg *podman.ContainerConfig) (string, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error
}

// Project is a compose file bound to a project name and a runtime.
type Project struct {
	name    string
	file    *File
	order   []string
	runtime Runtime
	logger  *zap.SugaredLogger
}

// NewProject resolves the start order of file. name overrides the name declared in the file.
func NewProject(file *File, name string, runtime Runtime) (*Project, error) {
	if name == "" {
		name = file.Name
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("compose project name is required")
	}

	order, err := startOrder(file.Services)
	if err != nil {
		return nil, err
	}

	return &Project{
		name:    name,
		file:    file,
		order:   order,
		runtime: runtime,
		logger:  zap.S().Named("compose").With("project", name),
	}, nil
}

func (p *Project) Name() string {
	return p.name
}

// Services returns the service names in start order.
func (p *Project) Services() []string {
	return slices.Clone(p.order)
}

func (p *Project) NetworkName() string {
	return p.name + "_default"
}

// ContainerName returns the explicit container_name of service or "<project>-<service>-1".
func (p *Project) ContainerName(service string) (string, error) {
	svc, ok := p.file.Services[service]
	if !ok {
		return "", srvErrors.NewResourceNotFoundError("service", service)
	}
	if svc.ContainerName != "" {
		return svc.ContainerName, nil
	}
	return fmt.Sprintf("%s-%s-1", p.name, service), nil
}

// VolumeName returns the runtime name of a top-level volume.
func (p *Project) VolumeName(volume string) string {
	if spec, ok := p.file.Volumes[volume]; ok && spec.Name != "" {
		return spec.Name
	}
	return p.name + "_" + volume
}

// Volumes returns the runtime names of every top-level volume, sorted.
func (p *Project) Volumes() []string {
	names := make([]string, 0, len(p.file.Volumes))
	for _, v := range slices.Sorted(maps.Keys(p.file.Volumes)) {
		names = append(names, p.VolumeName(v))
	}
	return names
}

// Up creates the network and the volumes then starts every service in dependency order.
// A leftover container with the same name is replaced.
func (p *Project) Up(ctx context.Context) error {
	if err := p.runtime.CreateNetwork(ctx, p.NetworkName()); err != nil {
		return err
	}
	for _, v := range p.Volumes() {
		if err := p.runtime.CreateVolume(ctx, v); err != nil {
			return err
		}
	}

	for _, service := range p.order {
		cfg, err := p.containerConfig(service)
		if err != nil {
			return err
		}

		exists, err := p.runtime.Exists(ctx, cfg.Name())
		if err != nil {
			return err
		}
		if exists {
			p.logger.Infow("replacing leftover container", "service", service, "container", cfg.Name())
			if err := p.runtime.RemoveContainer(ctx, cfg.Name()); err != nil {
				return err
			}
		}

		if _, err := p.runtime.StartContainer(ctx, cfg); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service, err)
		}
		p.logger.Infow("service started", "service", service, "container", cfg.Name())
	}
	return nil
}

// Down stops and removes the containers in reverse start order, then the network.
// It keeps going after a failure and returns every error.
func (p *Project) Down(ctx context.Context) error {
	var errs []error
	for _, service := range slices.Backward(p.order) {
		name, _ := p.ContainerName(service)
		exists, err := p.runtime.Exists(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists {
			continue
		}
		if err := p.runtime.StopContainer(ctx, name); err != nil {
			p.logger.Debugw("stop failed, forcing removal", "container", name, "error", err)
		}
		if err := p.runtime.RemoveContainer(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		p.logger.Infow("service removed", "service", service, "container", name)
	}
	if err := p.runtime.RemoveNetwork(ctx, p.NetworkName()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RemoveVolumes removes every project volume. Containers must be removed first.
func (p *Project) RemoveVolumes(ctx context.Context) error {
	var errs []error
	for _, v := range p.Volumes() {
		if err := p.runtime.RemoveVolume(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Project) containerConfig(service string) (*podman.ContainerConfig, error) {
	svc := p.file.Services[service]
	name, err := p.ContainerName(service)
	if err != nil {
		return nil, err
	}

	cfg := podman.NewContainerConfig(name, svc.Image).
		WithEnvVars(svc.Environment).
		WithNetwork(p.NetworkName(), service)
	if len(svc.Command) > 0 {
		cfg.WithCmd(svc.Command...)
	}

	for _, spec := range svc.Ports {
		host, container, err := parsePort(spec)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", service, err)
		}
		cfg.WithPort(host, container)
	}

	volumes := slices.Clone(svc.Volumes)
	sort.Strings(volumes)
	for _, spec := range volumes {
		source, target, err := parseVolume(spec)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", service, err)
		}
		cfg.WithVolume(p.VolumeName(source), target)
	}
	return cfg, nil
}
