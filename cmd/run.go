package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/scheduler"
)

// secretGuardWorkers runs the unset and the weak secret cases side by side.
const secretGuardWorkers = 2

var errVerificationFailed = errors.New("verification failed")

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	var checkSecretGuard bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify a single server container",
		Long: `Start the server container (or use a running one with --run=no), wait until
it logs its readiness marker, then check its plugins, quality gates, quality
profiles and that the default admin password is refused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfiguration(cfg); err != nil {
				return err
			}
			return runSingle(cmd.Context(), cfg, checkSecretGuard, cmd.OutOrStdout())
		},
	}

	registerServiceFlags(cmd.Flags(), cfg)
	registerRuntimeFlags(cmd.Flags(), cfg)
	registerHistoryFlags(cmd.Flags(), cfg)
	cmd.Flags().BoolVar(&checkSecretGuard, "check-secret-guard", false, "also check that the server refuses to start without a usable admin password")

	return cmd
}

func validateConfiguration(cfg *config.Configuration) error {
	if cfg.Service.AdminPassword == "" {
		return fmt.Errorf("admin-password cannot be empty")
	}
	if cfg.Readiness.Timeout <= cfg.Readiness.Interval {
		return fmt.Errorf("readiness-timeout must be greater than readiness-interval")
	}
	if cfg.Fixture.Path == "" && !isEmbeddedFixture(cfg.Fixture.Name) {
		return fmt.Errorf("unknown fixture %q", cfg.Fixture.Name)
	}
	return cfg.Validate()
}

func isEmbeddedFixture(name string) bool {
	for _, f := range expectations.Available() {
		if f == name {
			return true
		}
	}
	return false
}

func runSingle(ctx context.Context, cfg *config.Configuration, checkSecretGuard bool, out io.Writer) error {
	table, err := expectations.Resolve(cfg.Fixture.Name, cfg.Fixture.Path)
	if err != nil {
		return err
	}

	runtime, err := podman.NewRunner(cfg.Podman.Socket)
	if err != nil {
		return err
	}

	verifier := services.NewVerifierService(cfg, runtime, table)
	report, err := verifier.VerifyConfiguration(ctx)
	if err != nil {
		return err
	}
	printReport(out, "Configuration", report)
	recordHistory(ctx, cfg, models.FlowSingle, verifier.Image(), report)
	anyFailed := !report.Passed()

	if checkSecretGuard {
		sched := scheduler.NewScheduler[string](secretGuardWorkers)
		defer sched.Close()

		guard := services.NewSecretGuardService(runtime, table, verifier.Image(),
			cfg.Readiness.StartupWindow, cfg.Readiness.Interval, sched)
		guardReport := guard.Run(ctx)
		printReport(out, "Secret guard", guardReport)
		recordHistory(ctx, cfg, models.FlowSecretGuard, verifier.Image(), guardReport)
		anyFailed = anyFailed || !guardReport.Passed()
	}

	if anyFailed {
		return errVerificationFailed
	}
	zap.S().Named("cmd").Info("verification passed")
	return nil
}
