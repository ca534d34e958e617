package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/store"
	"github.com/lequal/sonarqube-verify/pkg/filter"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

// HistoryService records verification runs and queries them back.
type HistoryService struct {
	store *store.Store
}

func NewHistoryService(s *store.Store) *HistoryService {
	return &HistoryService{store: s}
}

// Record saves report as a run of flow and returns it.
func (h *HistoryService) Record(ctx context.Context, flow models.Flow, image string, report *verify.Report) (models.Run, error) {
	run := RunFromReport(flow, image, report)
	if err := h.store.Runs().Save(ctx, run); err != nil {
		return run, err
	}
	zap.S().Named("history_service").Debugw("run recorded", "id", run.ID, "flow", flow, "status", run.Status)
	return run, nil
}

// List returns the latest runs matching expression. An empty expression matches every run.
func (h *HistoryService) List(ctx context.Context, expression string, limit int) ([]models.Run, error) {
	f := store.NewRunQueryFilter().Latest().Limit(limit)
	if expression != "" {
		expr, err := filter.Parse([]byte(expression))
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		f.ByExpression(expr)
	}
	return h.store.Runs().List(ctx, f)
}

func RunFromReport(flow models.Flow, image string, report *verify.Report) models.Run {
	run := models.Run{
		ID:         uuid.NewString(),
		Flow:       flow,
		Fixture:    report.Fixture,
		Image:      image,
		Status:     models.RunStatusPassed,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	if !report.Passed() {
		run.Status = models.RunStatusFailed
	}
	for _, r := range report.Results {
		rec := models.CheckRecord{Name: r.Name, Passed: r.Passed, Duration: r.Duration}
		if r.Err != nil {
			rec.Message = r.Err.Error()
		}
		run.Checks = append(run.Checks, rec)
	}
	return run
}
