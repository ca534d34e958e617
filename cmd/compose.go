package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/pkg/compose"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/hostcheck"
	"github.com/lequal/sonarqube-verify/pkg/podman"
)

func NewComposeCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Verify that a restart does not configure the server twice",
		Long: `Bring up the composition (server and PostgreSQL), wait for the server, restart
it and check that the second start skips the one-time configuration. The
composition and its volumes are removed afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfiguration(cfg); err != nil {
				return err
			}
			return runCompose(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	registerCredentialFlags(cmd.Flags(), cfg)
	registerRuntimeFlags(cmd.Flags(), cfg)
	registerComposeFlags(cmd.Flags(), cfg)
	registerHistoryFlags(cmd.Flags(), cfg)

	return cmd
}

func runCompose(ctx context.Context, cfg *config.Configuration, out io.Writer) error {
	table, err := expectations.Resolve(cfg.Fixture.Name, cfg.Fixture.Path)
	if err != nil {
		return err
	}

	env := environ()
	env[table.Image().AdminPasswordEnv] = cfg.Service.AdminPassword
	file, err := compose.Load(cfg.Compose.File, env)
	if err != nil {
		return err
	}

	runtime, err := podman.NewRunner(cfg.Podman.Socket)
	if err != nil {
		return err
	}

	project, err := compose.NewProject(file, cfg.Compose.Project, runtime)
	if err != nil {
		return err
	}

	svc := services.NewComposeService(cfg, runtime, project, table, hostcheck.NewChecker())
	report, err := svc.VerifyNoReconfiguration(ctx)
	if report != nil {
		printReport(out, "Restart of "+project.Name(), report)
		image := file.Services[cfg.Compose.Service].Image
		recordHistory(ctx, cfg, models.FlowCompose, image, report)
		if !report.Passed() {
			err = errors.Join(err, errVerificationFailed)
		}
	}
	return err
}

// environ returns the process environment used to interpolate the composition file.
func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
