package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/pkg/compose"
	"github.com/lequal/sonarqube-verify/pkg/datastore"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/readiness"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

const (
	CheckFirstStart       = "ready after first start"
	CheckSetupRan         = "setup ran on first start"
	CheckRestart          = "ready after restart"
	CheckNoReconfigure    = "no reconfiguration on restart"
	CheckStoredGatesOnce  = "quality gates stored once"
	composeReleaseTimeout = 5 * time.Minute
)

type HostChecker interface {
	CheckMaxMapCount() error
}

// QualityGateCounter reads the server database directly.
type QualityGateCounter interface {
	CountQualityGates(ctx context.Context, name string) (int, error)
	Close() error
}

type DatastoreOpener func(ctx context.Context, dsn string) (QualityGateCounter, error)

func openDatastore(ctx context.Context, dsn string) (QualityGateCounter, error) {
	d, err := datastore.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ComposeService verifies that restarting the server of a composition backed
// by an external database does not run the one-time configuration again.
type ComposeService struct {
	cfg     *config.Configuration
	runtime ContainerRuntime
	project *compose.Project
	table   *expectations.Table
	hosts   HostChecker
	open    DatastoreOpener
	poller  *readiness.Poller
	logger  *zap.SugaredLogger
}

func NewComposeService(cfg *config.Configuration, runtime ContainerRuntime, project *compose.Project, table *expectations.Table, hosts HostChecker) *ComposeService {
	return &ComposeService{
		cfg:     cfg,
		runtime: runtime,
		project: project,
		table:   table,
		hosts:   hosts,
		open:    openDatastore,
		poller: readiness.NewPoller(runtime,
			readiness.WithInterval(cfg.Readiness.Interval),
			readiness.WithTimeout(cfg.Readiness.Timeout),
			readiness.WithFailureMarkers(table.Markers().StartFailure),
		),
		logger: zap.S().Named("compose_service"),
	}
}

func (s *ComposeService) WithDatastoreOpener(open DatastoreOpener) *ComposeService {
	s.open = open
	return s
}

// VerifyNoReconfiguration brings the composition up, requires the setup marker
// in the first start logs, restarts the server once and inspects the logs of
// the second start. The composition and its volumes
// are removed on every exit path.
//
// Lifecycle failures are returned as errors. Failed checks are in the report.
func (s *ComposeService) VerifyNoReconfiguration(ctx context.Context) (report *verify.Report, err error) {
	if err := s.hosts.CheckMaxMapCount(); err != nil {
		return nil, err
	}

	container, err := s.project.ContainerName(s.cfg.Compose.Service)
	if err != nil {
		return nil, err
	}

	report = &verify.Report{Fixture: s.table.Name(), StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	defer func() {
		if terr := s.teardown(ctx); terr != nil {
			err = errors.Join(err, terr)
		}
	}()

	s.logger.Infow("starting composition", "project", s.project.Name(), "services", s.project.Services())
	if err := s.project.Up(ctx); err != nil {
		return report, err
	}

	markers := s.table.Markers()

	start := time.Now()
	err = s.poller.Wait(ctx, container, markers.Ready, podman.LogQuery{})
	report.Add(CheckFirstStart, err, time.Since(start))
	if err != nil {
		return report, nil
	}

	start = time.Now()
	firstLogs, err := s.runtime.Logs(ctx, container, podman.LogQuery{})
	if err != nil {
		return report, err
	}
	report.Add(CheckSetupRan, checkSetupRan(firstLogs, markers), time.Since(start))

	restartedAt := time.Now()
	if err := s.runtime.RestartContainer(ctx, container); err != nil {
		return report, err
	}

	secondStart := podman.LogQuery{Since: restartedAt}
	err = s.poller.Wait(ctx, container, markers.Ready, secondStart)
	report.Add(CheckRestart, err, time.Since(restartedAt))
	if err != nil {
		return report, nil
	}

	start = time.Now()
	logs, err := s.runtime.Logs(ctx, container, secondStart)
	if err != nil {
		return report, err
	}
	report.Add(CheckNoReconfigure, checkNotReconfigured(logs, markers), time.Since(start))

	if s.cfg.Compose.DatastoreDSN == "" {
		s.logger.Info("no datastore dsn, skipping database check")
		return report, nil
	}
	start = time.Now()
	report.Add(CheckStoredGatesOnce, s.checkGatesStoredOnce(ctx), time.Since(start))
	return report, nil
}

func (s *ComposeService) checkGatesStoredOnce(ctx context.Context) error {
	db, err := s.open(ctx, s.cfg.Compose.DatastoreDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, gate := range s.table.QualityGates() {
		n, err := db.CountQualityGates(ctx, gate.Name)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("quality gate %q stored %d times, expected once", gate.Name, n)
		}
	}
	return nil
}

func (s *ComposeService) teardown(ctx context.Context) error {
	if s.cfg.KeepContainers {
		s.logger.Infow("keeping composition", "project", s.project.Name())
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), composeReleaseTimeout)
	defer cancel()

	s.logger.Infow("removing composition", "project", s.project.Name())
	downErr := s.project.Down(ctx)
	volErr := s.project.RemoveVolumes(ctx)
	return errors.Join(downErr, volErr)
}

// checkSetupRan requires the setup marker in the first start logs.
func checkSetupRan(logs string, markers expectations.Markers) error {
	if !strings.Contains(logs, markers.Setup) {
		return fmt.Errorf("setup marker %q not logged on first start", markers.Setup)
	}
	return nil
}

func checkNotReconfigured(logs string, markers expectations.Markers) error {
	if !strings.Contains(logs, markers.AlreadyConfigured) {
		return fmt.Errorf("marker %q missing after restart", markers.AlreadyConfigured)
	}
	if strings.Contains(logs, markers.Setup) {
		return fmt.Errorf("one-time setup ran again: %q logged after restart", markers.Setup)
	}
	return nil
}
