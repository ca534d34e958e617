package podman

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"github.com/containers/podman/v5/pkg/bindings/network"
	"github.com/containers/podman/v5/pkg/bindings/volumes"
	"github.com/containers/podman/v5/pkg/domain/entities"
	"github.com/containers/podman/v5/pkg/specgen"
	nettypes "go.podman.io/common/libnetwork/types"
	"go.uber.org/zap"
)

const stopTimeoutSeconds uint = 30

// LogQuery narrows a log read. The zero value reads the whole log.
type LogQuery struct {
	// Tail keeps only the last N lines when greater than zero.
	Tail int
	// Since drops lines emitted before this instant when not zero.
	Since time.Time
}

// Runner is a thin wrapper around the Podman API for container operations.
type Runner struct {
	conn   context.Context
	logger *zap.SugaredLogger
}

func NewRunner(socket string) (*Runner, error) {
	conn, err := bindings.NewConnection(context.Background(), socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to podman: %w", err)
	}
	return &Runner{conn: conn, logger: zap.S().Named("podman")}, nil
}

// call derives a bindings context from the connection that is also cancelled with ctx.
func (p *Runner) call(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(p.conn)
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (p *Runner) StartContainer(ctx context.Context, cfg *ContainerConfig) (string, error) {
	conn, cancel := p.call(ctx)
	defer cancel()

	s := specgen.NewSpecGenerator(cfg.image, false)
	s.Name = cfg.name
	s.Command = cfg.cmd
	s.Env = cfg.envVars

	switch {
	case cfg.hostNetwork:
		s.NetNS = specgen.Namespace{NSMode: specgen.Host}
	case cfg.network != "":
		s.NetNS = specgen.Namespace{NSMode: specgen.Bridge}
		s.Networks = map[string]nettypes.PerNetworkOptions{
			cfg.network: {Aliases: cfg.aliases},
		}
	}

	if len(cfg.ports) > 0 && !cfg.hostNetwork {
		s.PortMappings = make([]nettypes.PortMapping, 0, len(cfg.ports))
		for hostPort, containerPort := range cfg.ports {
			s.PortMappings = append(s.PortMappings, nettypes.PortMapping{
				HostPort:      uint16(hostPort),
				ContainerPort: uint16(containerPort),
				Protocol:      "tcp",
			})
		}
	}

	if len(cfg.volumes) > 0 {
		s.Volumes = make([]*specgen.NamedVolume, 0, len(cfg.volumes))
		for volumeName, containerPath := range cfg.volumes {
			s.Volumes = append(s.Volumes, &specgen.NamedVolume{
				Name: volumeName,
				Dest: containerPath,
			})
		}
	}

	createResponse, err := containers.CreateWithSpec(conn, s, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", cfg.name, err)
	}

	if err := containers.Start(conn, createResponse.ID, nil); err != nil {
		return "", fmt.Errorf("failed to start container %s: %w", cfg.name, err)
	}

	p.logger.Infow("container started", "name", cfg.name, "image", cfg.image, "id", createResponse.ID)
	return createResponse.ID, nil
}

func (p *Runner) StopContainer(ctx context.Context, id string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	if err := containers.Stop(conn, id, new(containers.StopOptions).WithTimeout(stopTimeoutSeconds)); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	p.logger.Debugw("container stopped", "id", id)
	return nil
}

func (p *Runner) RestartContainer(ctx context.Context, id string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	if err := containers.Restart(conn, id, nil); err != nil {
		return fmt.Errorf("failed to restart container %s: %w", id, err)
	}
	p.logger.Infow("container restarted", "id", id)
	return nil
}

// RemoveContainer removes the container, killing it first if it is still running.
func (p *Runner) RemoveContainer(ctx context.Context, id string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	if _, err := containers.Remove(conn, id, new(containers.RemoveOptions).WithForce(true)); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	p.logger.Debugw("container removed", "id", id)
	return nil
}

func (p *Runner) Exists(ctx context.Context, id string) (bool, error) {
	conn, cancel := p.call(ctx)
	defer cancel()

	exists, err := containers.Exists(conn, id, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check container %s: %w", id, err)
	}
	return exists, nil
}

func (p *Runner) IsRunning(ctx context.Context, id string) (bool, error) {
	conn, cancel := p.call(ctx)
	defer cancel()

	data, err := containers.Inspect(conn, id, nil)
	if err != nil {
		return false, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}
	return data.State.Running, nil
}

// Logs returns stdout and stderr of the container, interleaved per stream.
func (p *Runner) Logs(ctx context.Context, id string, q LogQuery) (string, error) {
	conn, cancel := p.call(ctx)
	defer cancel()

	var (
		mu  sync.Mutex
		out strings.Builder
		wg  sync.WaitGroup
	)
	stdoutChan := make(chan string)
	stderrChan := make(chan string)
	collect := func(c chan string) {
		defer wg.Done()
		for line := range c {
			mu.Lock()
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteByte('\n')
			}
			mu.Unlock()
		}
	}
	wg.Add(2)
	go collect(stdoutChan)
	go collect(stderrChan)

	opts := new(containers.LogOptions).WithStdout(true).WithStderr(true)
	if q.Tail > 0 {
		opts = opts.WithTail(strconv.Itoa(q.Tail))
	}
	if !q.Since.IsZero() {
		opts = opts.WithSince(q.Since.UTC().Format(time.RFC3339Nano))
	}

	err := containers.Logs(conn, id, opts, stdoutChan, stderrChan)
	close(stdoutChan)
	close(stderrChan)
	wg.Wait()
	if err != nil {
		return "", fmt.Errorf("failed to get logs of %s: %w", id, err)
	}
	return out.String(), nil
}

func (p *Runner) CreateNetwork(ctx context.Context, name string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	exists, err := network.Exists(conn, name, nil)
	if err != nil {
		return fmt.Errorf("failed to check network %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := network.Create(conn, &nettypes.Network{Name: name}); err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return nil
}

func (p *Runner) RemoveNetwork(ctx context.Context, name string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	if _, err := network.Remove(conn, name, nil); err != nil {
		return fmt.Errorf("failed to remove network %s: %w", name, err)
	}
	return nil
}

func (p *Runner) CreateVolume(ctx context.Context, name string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	exists, err := volumes.Exists(conn, name, nil)
	if err != nil {
		return fmt.Errorf("failed to check volume %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := volumes.Create(conn, entities.VolumeCreateOptions{Name: name}, nil); err != nil {
		return fmt.Errorf("failed to create volume %s: %w", name, err)
	}
	return nil
}

func (p *Runner) RemoveVolume(ctx context.Context, name string) error {
	conn, cancel := p.call(ctx)
	defer cancel()

	if err := volumes.Remove(conn, name, nil); err != nil {
		return fmt.Errorf("failed to remove volume %s: %w", name, err)
	}
	p.logger.Debugw("volume removed", "name", name)
	return nil
}
