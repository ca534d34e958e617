package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/config"
)

type configuration struct {
	*config.Configuration
	SkipSecretGuard bool
	SkipCompose     bool
}

var cfg = configuration{Configuration: config.NewConfigurationWithOptionsAndDefaults()}

func (c configuration) Validate() error {
	if c.Service.AdminPassword == "" {
		return errors.New("admin password is empty")
	}
	return c.Configuration.Validate()
}

func main() {
	flag.Var(&cfg.Run, "run", "start the server container (yes) or use a running one (no)")
	flag.StringVar(&cfg.Service.ContainerName, "container-name", cfg.Service.ContainerName, "Server container name")
	flag.StringVar(&cfg.Service.URL, "url", cfg.Service.URL, "Server base URL")
	flag.StringVar(&cfg.Service.AdminPassword, "admin-password", os.Getenv("SONARQUBE_ADMIN_PASSWORD"), "Admin password")
	flag.StringVar(&cfg.Service.Image, "image", "", "Server image, defaults to the one of the fixture")
	flag.StringVar(&cfg.Podman.Socket, "podman-socket", "unix:///run/user/1000/podman/podman.sock", "Podman socket path")
	flag.StringVar(&cfg.Fixture.Name, "fixture", cfg.Fixture.Name, "Embedded expectation fixture")
	flag.StringVar(&cfg.Compose.File, "compose-file", cfg.Compose.File, "Composition file of the restart scenario")
	flag.StringVar(&cfg.Compose.DatastoreDSN, "datastore-dsn", cfg.Compose.DatastoreDSN, "PostgreSQL DSN of the composition, empty to skip the database check")
	flag.DurationVar(&cfg.Readiness.Timeout, "readiness-timeout", cfg.Readiness.Timeout, "How long to wait for the server")
	flag.DurationVar(&cfg.Readiness.StartupWindow, "startup-window", cfg.Readiness.StartupWindow, "How long a refused start is observed")
	flag.BoolVar(&cfg.SkipSecretGuard, "skip-secret-guard", false, "Skip the scenario starting the server without a usable secret")
	flag.BoolVar(&cfg.SkipCompose, "skip-compose", false, "Skip the restart scenario")
	flag.BoolVar(&cfg.KeepContainers, "keep-containers", false, "Keep containers running after test completion (useful for debugging)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if cfg.Readiness.Interval > cfg.Readiness.Timeout {
		cfg.Readiness.Interval = time.Second
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
