package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/internal/store"
	"github.com/lequal/sonarqube-verify/internal/store/migrations"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	heading   = color.New(color.Bold)
)

func printReport(w io.Writer, name string, report *verify.Report) {
	heading.Fprintf(w, "%s (fixture %s)\n", name, report.Fixture)
	for _, r := range report.Results {
		if r.Passed {
			fmt.Fprintf(w, "  %s %s (%s)\n", passLabel("PASS"), r.Name, r.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(w, "  %s %s: %v\n", failLabel("FAIL"), r.Name, r.Err)
	}
}

// openHistory opens the history database and applies the pending migrations.
func openHistory(ctx context.Context, path string) (*store.Store, error) {
	db, err := store.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.NewStore(db), nil
}

// recordHistory saves the report when history is enabled. Failures are only logged.
func recordHistory(ctx context.Context, cfg *config.Configuration, flow models.Flow, image string, report *verify.Report) {
	if !cfg.History.Enabled {
		return
	}
	logger := zap.S().Named("cmd")

	s, err := openHistory(ctx, cfg.History.Path)
	if err != nil {
		logger.Warnw("history not recorded", "error", err)
		return
	}
	defer s.Close()

	run, err := services.NewHistoryService(s).Record(ctx, flow, image, report)
	if err != nil {
		logger.Warnw("history not recorded", "error", err)
		return
	}
	logger.Infow("run recorded", "id", run.ID, "path", cfg.History.Path)
}
