package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/readiness"
	"github.com/lequal/sonarqube-verify/pkg/sonarqube"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

const releaseTimeout = 2 * time.Minute

// AdminAPIFactory builds the admin API client of a service.
type AdminAPIFactory func(handle *models.ServiceHandle) verify.AdminAPI

// VerifierService runs the assertion battery against a single server container.
type VerifierService struct {
	cfg     *config.Configuration
	runtime ContainerRuntime
	table   *expectations.Table
	poller  *readiness.Poller
	newAPI  AdminAPIFactory
	logger  *zap.SugaredLogger
}

func NewVerifierService(cfg *config.Configuration, runtime ContainerRuntime, table *expectations.Table) *VerifierService {
	return &VerifierService{
		cfg:     cfg,
		runtime: runtime,
		table:   table,
		poller: readiness.NewPoller(runtime,
			readiness.WithInterval(cfg.Readiness.Interval),
			readiness.WithTimeout(cfg.Readiness.Timeout),
			readiness.WithFailureMarkers(table.Markers().StartFailure),
		),
		newAPI: func(h *models.ServiceHandle) verify.AdminAPI {
			return sonarqube.DefaultClient(h.URL, cfg.Service.AdminLogin, cfg.Service.AdminPassword)
		},
		logger: zap.S().Named("verifier_service"),
	}
}

// WithAdminAPIFactory replaces the HTTP client used against the service.
func (v *VerifierService) WithAdminAPIFactory(f AdminAPIFactory) *VerifierService {
	v.newAPI = f
	return v
}

// Acquire starts the server container when the run manages its lifecycle and
// attaches to the configured one otherwise. The release function removes the
// container only if Acquire started it.
func (v *VerifierService) Acquire(ctx context.Context) (*models.ServiceHandle, ReleaseFunc, error) {
	handle := &models.ServiceHandle{Name: v.cfg.Service.ContainerName, URL: v.cfg.Service.URL}

	exists, err := v.runtime.Exists(ctx, handle.Name)
	if err != nil {
		return nil, nil, err
	}

	if !v.cfg.Run.Enabled() {
		if !exists {
			return nil, nil, srvErrors.NewContainerNotFoundError(handle.Name)
		}
		v.logger.Infow("using running container", "container", handle.Name)
		return handle, noRelease, nil
	}

	if exists {
		return nil, nil, fmt.Errorf("container %s already exists, remove it or run with --run=no", handle.Name)
	}

	containerCfg, err := v.containerConfig()
	if err != nil {
		return nil, nil, err
	}

	v.logger.Infow("launching container", "container", handle.Name, "image", containerCfg.Image())
	if _, err := v.runtime.StartContainer(ctx, containerCfg); err != nil {
		// create may have succeeded before start failed
		if created, _ := v.runtime.Exists(ctx, handle.Name); created {
			_ = v.runtime.RemoveContainer(context.WithoutCancel(ctx), handle.Name)
		}
		return nil, nil, err
	}
	handle.Owned = true

	release := func(ctx context.Context) error {
		if v.cfg.KeepContainers {
			v.logger.Infow("keeping container", "container", handle.Name)
			return nil
		}
		v.logger.Infow("stopping container", "container", handle.Name)
		if err := v.runtime.StopContainer(ctx, handle.Name); err != nil {
			v.logger.Debugw("stop failed, forcing removal", "container", handle.Name, "error", err)
		}
		return v.runtime.RemoveContainer(ctx, handle.Name)
	}
	return handle, release, nil
}

// With acquires the service, waits for the readiness marker and runs fn.
// Release happens on every exit path, panics included.
func (v *VerifierService) With(ctx context.Context, fn func(ctx context.Context, handle *models.ServiceHandle) error) (err error) {
	handle, release, err := v.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := release(releaseCtx); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to release %s: %w", handle.Name, rerr))
		}
	}()

	if err := v.WaitReady(ctx, handle); err != nil {
		return err
	}

	return fn(ctx, handle)
}

// WaitReady blocks until the server logs its readiness marker.
func (v *VerifierService) WaitReady(ctx context.Context, handle *models.ServiceHandle) error {
	v.logger.Infow("waiting for server to be up", "container", handle.Name)
	return v.poller.Wait(ctx, handle.Name, v.table.Markers().Ready, podman.LogQuery{})
}

// AdminAPI returns the client used against handle.
func (v *VerifierService) AdminAPI(handle *models.ServiceHandle) verify.AdminAPI {
	return v.newAPI(handle)
}

// VerifyConfiguration runs every check of the assertion battery.
func (v *VerifierService) VerifyConfiguration(ctx context.Context) (*verify.Report, error) {
	var report *verify.Report
	err := v.With(ctx, func(ctx context.Context, handle *models.ServiceHandle) error {
		report = verify.NewRunner(v.table, v.newAPI(handle)).Run(ctx)
		return nil
	})
	return report, err
}

// Image returns the image reference the service is started from.
func (v *VerifierService) Image() string {
	if v.cfg.Service.Image != "" {
		return v.cfg.Service.Image
	}
	return v.table.Image().Reference
}

func (v *VerifierService) containerConfig() (*podman.ContainerConfig, error) {
	image := v.table.Image()
	hostPort, err := hostPort(v.cfg.Service.URL, image.Port)
	if err != nil {
		return nil, err
	}
	return podman.NewContainerConfig(v.cfg.Service.ContainerName, v.Image()).
		WithPort(hostPort, image.Port).
		WithEnvVar(image.AdminPasswordEnv, v.cfg.Service.AdminPassword), nil
}

// hostPort is the port of rawURL, or fallback when the URL has none.
func hostPort(rawURL string, fallback int) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid service url %q: %w", rawURL, err)
	}
	if u.Port() == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0, fmt.Errorf("invalid port in service url %q: %w", rawURL, err)
	}
	return port, nil
}
