package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/readiness"
	"github.com/lequal/sonarqube-verify/pkg/scheduler"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

const secretGuardPrefix = "sonarqube-verify-secret-"

// SecretCase is one way of starting the server with an unusable admin secret.
type SecretCase struct {
	Name string
	// Secret is nil when the variable is not set at all.
	Secret *string
}

// SecretGuardService checks that the server refuses to start without a usable admin secret.
type SecretGuardService struct {
	runtime   ContainerRuntime
	table     *expectations.Table
	image     string
	window    time.Duration
	poller    *readiness.Poller
	scheduler *scheduler.Scheduler[string]
	logger    *zap.SugaredLogger
}

// NewSecretGuardService runs its cases on sched. window bounds how long each
// throw-away container is observed.
func NewSecretGuardService(runtime ContainerRuntime, table *expectations.Table, image string, window, interval time.Duration, sched *scheduler.Scheduler[string]) *SecretGuardService {
	if image == "" {
		image = table.Image().Reference
	}
	return &SecretGuardService{
		runtime:   runtime,
		table:     table,
		image:     image,
		window:    window,
		poller:    readiness.NewPoller(runtime, readiness.WithInterval(interval)),
		scheduler: sched,
		logger:    zap.S().Named("secret_guard_service"),
	}
}

// Cases returns the unset secret and the weak secret cases.
func (s *SecretGuardService) Cases() []SecretCase {
	weak := s.table.Credentials().WeakPassword
	return []SecretCase{
		{Name: "secret unset"},
		{Name: "weak secret", Secret: &weak},
	}
}

// Run starts every case in parallel and reports one result per case.
// Cancelling ctx stops the running cases.
func (s *SecretGuardService) Run(ctx context.Context) *verify.Report {
	report := &verify.Report{Fixture: s.table.Name(), StartedAt: time.Now()}

	cases := s.Cases()
	futures := make([]*scheduler.Future[string], len(cases))
	for i, c := range cases {
		f := s.scheduler.AddWork(func(ctx context.Context) (string, error) {
			return s.runCase(ctx, c)
		})
		stop := context.AfterFunc(ctx, f.Stop)
		defer stop()
		futures[i] = f
	}

	for i, f := range futures {
		start := time.Now()
		res, err := f.Wait(ctx)
		if err == nil {
			err = res.Err
		}
		name := "refuse start: " + cases[i].Name
		if err != nil {
			s.logger.Errorw("case failed", "case", cases[i].Name, "error", err)
		}
		report.Add(name, err, time.Since(start))
	}

	report.FinishedAt = time.Now()
	return report
}

// runCase starts a throw-away container and returns its logs. The container is
// always removed.
func (s *SecretGuardService) runCase(ctx context.Context, c SecretCase) (string, error) {
	name := secretGuardPrefix + uuid.NewString()
	cfg := podman.NewContainerConfig(name, s.image)
	if c.Secret != nil {
		cfg.WithEnvVar(s.table.Image().AdminPasswordEnv, *c.Secret)
	}

	if _, err := s.runtime.StartContainer(ctx, cfg); err != nil {
		return "", err
	}
	defer func() {
		if err := s.runtime.RemoveContainer(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warnw("failed to remove container", "container", name, "error", err)
		}
	}()

	markers := s.table.Markers()
	logs, err := s.poller.Observe(ctx, name, s.window, podman.LogQuery{}, markers.StartFailure, markers.Ready)
	if err != nil {
		return logs, err
	}
	return logs, checkRefusal(logs, markers)
}

func checkRefusal(logs string, markers expectations.Markers) error {
	if strings.Contains(logs, markers.Ready) {
		return fmt.Errorf("server became ready, %q was logged", markers.Ready)
	}
	if !strings.Contains(logs, markers.StartFailure) {
		return fmt.Errorf("failure marker %q not logged within the startup window", markers.StartFailure)
	}
	return nil
}
