package cmd

import (
	"github.com/spf13/pflag"

	"github.com/lequal/sonarqube-verify/internal/config"
)

func registerServiceFlags(fs *pflag.FlagSet, cfg *config.Configuration) {
	run := fs.VarPF(&cfg.Run, "run", "", "start and remove the server container (yes) or verify a running one (no)")
	run.NoOptDefVal = "yes"
	fs.StringVar(&cfg.Service.ContainerName, "container-name", cfg.Service.ContainerName, "name of the server container")
	fs.StringVar(&cfg.Service.URL, "url", cfg.Service.URL, "base URL of the server")
	fs.StringVar(&cfg.Service.AdminLogin, "admin-login", cfg.Service.AdminLogin, "login of the admin account")
	registerCredentialFlags(fs, cfg)
	fs.StringVar(&cfg.Service.Image, "image", cfg.Service.Image, "image reference overriding the one of the fixture")
}

func registerCredentialFlags(fs *pflag.FlagSet, cfg *config.Configuration) {
	fs.StringVar(&cfg.Service.AdminPassword, "admin-password", cfg.Service.AdminPassword, "password of the admin account")
}

func registerRuntimeFlags(fs *pflag.FlagSet, cfg *config.Configuration) {
	fs.StringVar(&cfg.Podman.Socket, "podman-socket", cfg.Podman.Socket, "podman API socket")
	fs.BoolVar(&cfg.KeepContainers, "keep-containers", cfg.KeepContainers, "do not remove what the run started")
	fs.DurationVar(&cfg.Readiness.Interval, "readiness-interval", cfg.Readiness.Interval, "delay between two log reads")
	fs.DurationVar(&cfg.Readiness.Timeout, "readiness-timeout", cfg.Readiness.Timeout, "how long to wait for the server to be ready")
	fs.DurationVar(&cfg.Readiness.StartupWindow, "startup-window", cfg.Readiness.StartupWindow, "how long a server expected to refuse to start is observed")
	fs.StringVar(&cfg.Fixture.Name, "fixture", cfg.Fixture.Name, "embedded expectation fixture")
	fs.StringVar(&cfg.Fixture.Path, "fixture-file", cfg.Fixture.Path, "expectation fixture file, overrides --fixture")
}

func registerHistoryFlags(fs *pflag.FlagSet, cfg *config.Configuration) {
	fs.BoolVar(&cfg.History.Enabled, "history-enabled", cfg.History.Enabled, "record the run in the history database")
	registerHistoryPathFlag(fs, cfg)
}

func registerHistoryPathFlag(fs *pflag.FlagSet, cfg *config.Configuration) {
	fs.StringVar(&cfg.History.Path, "history-path", cfg.History.Path, "path of the history database")
}

func registerComposeFlags(fs *pflag.FlagSet, cfg *config.Configuration) {
	fs.StringVar(&cfg.Compose.File, "compose-file", cfg.Compose.File, "composition file")
	fs.StringVar(&cfg.Compose.Project, "compose-project", cfg.Compose.Project, "project name, prefixes network and volume names")
	fs.StringVar(&cfg.Compose.Service, "compose-service", cfg.Compose.Service, "service running the server")
	fs.StringVar(&cfg.Compose.DatastoreDSN, "datastore-dsn", cfg.Compose.DatastoreDSN, "PostgreSQL DSN of the server database, empty to skip the database check")
}
