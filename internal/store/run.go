package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lequal/sonarqube-verify/internal/models"
	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
)

const (
	runsTable      = "runs"
	runColID       = "id"
	runColFlow     = "flow"
	runColFixture  = "fixture"
	runColImage    = "image"
	runColStatus   = "status"
	runColStarted  = "started_at"
	runColFinished = "finished_at"
	runColDuration = "duration_ms"
	runColFailures = "failures"

	checksTable      = "run_checks"
	checkColRunID    = "run_id"
	checkColPosition = "position"
	checkColName     = "name"
	checkColPassed   = "passed"
	checkColMessage  = "message"
	checkColDuration = "duration_ms"
)

var runColumns = []string{
	runColID, runColFlow, runColFixture, runColImage, runColStatus, runColStarted, runColFinished,
}

type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Save records a run and its checks.
func (s *RunStore) Save(ctx context.Context, run models.Run) error {
	query, args, err := sq.Insert(runsTable).
		Columns(runColID, runColFlow, runColFixture, runColImage, runColStatus,
			runColStarted, runColFinished, runColDuration, runColFailures).
		Values(run.ID, string(run.Flow), run.Fixture, run.Image, run.Status.Value(),
			run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Duration().Milliseconds(), run.Failures()).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert for run %s: %w", run.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	if len(run.Checks) == 0 {
		return nil
	}

	builder := sq.Insert(checksTable).
		Columns(checkColRunID, checkColPosition, checkColName, checkColPassed, checkColMessage, checkColDuration)
	for i, c := range run.Checks {
		var message sql.NullString
		if c.Message != "" {
			message = sql.NullString{String: c.Message, Valid: true}
		}
		builder = builder.Values(run.ID, i, c.Name, c.Passed, message, c.Duration.Milliseconds())
	}
	query, args, err = builder.ToSql()
	if err != nil {
		return fmt.Errorf("building insert for checks of run %s: %w", run.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting checks of run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns a run with its checks.
func (s *RunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	query, args, err := sq.Select(runColumns...).
		From(runsTable).
		Where(sq.Eq{runColID: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query for run %s: %w", id, err)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewResourceNotFoundError("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run %s: %w", id, err)
	}

	checks, err := s.checks(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Checks = checks[id]
	return run, nil
}

// List returns the runs matching filter, with their checks. A nil filter returns every run.
func (s *RunStore) List(ctx context.Context, filter *RunQueryFilter) ([]models.Run, error) {
	builder := sq.Select(runColumns...).From(runsTable)
	if filter != nil {
		builder = filter.Apply(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list query: %w", err)
	}
	defer rows.Close()

	var (
		runs []models.Run
		ids  []string
	)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
		ids = append(ids, run.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	checks, err := s.checks(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Checks = checks[runs[i].ID]
	}
	return runs, nil
}

// checks returns the checks of the given runs, grouped by run id and ordered by position.
func (s *RunStore) checks(ctx context.Context, runIDs ...string) (map[string][]models.CheckRecord, error) {
	query, args, err := sq.Select(checkColRunID, checkColName, checkColPassed, checkColMessage, checkColDuration).
		From(checksTable).
		Where(sq.Eq{checkColRunID: runIDs}).
		OrderBy(checkColRunID, checkColPosition).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building checks query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing checks query: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.CheckRecord, len(runIDs))
	for rows.Next() {
		var (
			runID    string
			c        models.CheckRecord
			message  sql.NullString
			duration int64
		)
		if err := rows.Scan(&runID, &c.Name, &c.Passed, &message, &duration); err != nil {
			return nil, fmt.Errorf("scanning check: %w", err)
		}
		c.Message = message.String
		c.Duration = time.Duration(duration) * time.Millisecond
		result[runID] = append(result[runID], c)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run    models.Run
		flow   string
		status string
	)
	if err := row.Scan(&run.ID, &flow, &run.Fixture, &run.Image, &status, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.Flow = models.Flow(flow)
	run.Status = models.RunStatus(status)
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return &run, nil
}
