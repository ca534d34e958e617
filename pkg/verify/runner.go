package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/sonarqube"
)

const (
	CategoryStatus      = "status"
	CategoryPlugin      = "plugin"
	CategoryQualityGate = "quality gate"
	CategoryProfile     = "quality profile"
	CategoryCredentials = "default credentials"
)

// AdminAPI is the read-only part of the server web API the checks rely on.
type AdminAPI interface {
	Status(ctx context.Context) (*sonarqube.SystemStatus, error)
	InstalledPlugins(ctx context.Context) ([]sonarqube.Plugin, error)
	QualityGates(ctx context.Context) ([]sonarqube.QualityGate, error)
	QualityProfiles(ctx context.Context) ([]sonarqube.QualityProfile, error)
	Login(ctx context.Context, login, password string) (int, error)
}

// Runner compares the live server state with an expectation table.
// Each check fetches its category once and stops at the first divergence.
type Runner struct {
	table  *expectations.Table
	api    AdminAPI
	logger *zap.SugaredLogger
}

func NewRunner(table *expectations.Table, api AdminAPI) *Runner {
	return &Runner{
		table:  table,
		api:    api,
		logger: zap.S().Named("verify"),
	}
}

// CheckStatus requires the server to report itself UP.
func (r *Runner) CheckStatus(ctx context.Context) error {
	status, err := r.api.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get server status: %w", err)
	}
	if status.Status != sonarqube.StatusUp {
		return srvErrors.NewExpectationMismatchError(CategoryStatus, "server", sonarqube.StatusUp, status.Status)
	}
	return nil
}

// CheckPlugins requires every plugin of the table to be installed with the exact version.
func (r *Runner) CheckPlugins(ctx context.Context) error {
	live, err := r.api.InstalledPlugins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plugins: %w", err)
	}

	installed := make(map[string]string, len(live))
	for _, p := range live {
		installed[p.Name] = p.Version
	}

	for _, want := range r.table.Plugins() {
		got, ok := installed[want.Name]
		if !ok {
			return srvErrors.NewPluginNotFoundError(want.Name)
		}
		if got != want.Version {
			return srvErrors.NewExpectationMismatchError(CategoryPlugin, want.Name, want.Version, got)
		}
	}
	r.logger.Debugw("plugins verified", "required", len(r.table.Plugins()), "installed", len(live))
	return nil
}

// CheckQualityGates requires every gate of the table to exist, then to carry the expected default flag.
func (r *Runner) CheckQualityGates(ctx context.Context) error {
	live, err := r.api.QualityGates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list quality gates: %w", err)
	}

	for _, want := range r.table.QualityGates() {
		var found *sonarqube.QualityGate
		for i := range live {
			if live[i].Name == want.Name {
				found = &live[i]
				break
			}
		}
		if found == nil {
			return srvErrors.NewQualityGateNotFoundError(want.Name)
		}
		if found.IsDefault != want.Default {
			return srvErrors.NewExpectationMismatchError(
				CategoryQualityGate, want.Name,
				"default="+strconv.FormatBool(want.Default),
				"default="+strconv.FormatBool(found.IsDefault),
			)
		}
	}
	return nil
}

// CheckQualityProfiles requires, per language, every profile of the table to be
// among the live profiles of that language whose name matches the table pattern.
func (r *Runner) CheckQualityProfiles(ctx context.Context) error {
	live, err := r.api.QualityProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list quality profiles: %w", err)
	}

	pattern := r.table.ProfileNamePattern()
	byLanguage := make(map[string]map[string]bool)
	for _, p := range live {
		if !pattern.MatchString(p.Name) {
			continue
		}
		if byLanguage[p.Language] == nil {
			byLanguage[p.Language] = make(map[string]bool)
		}
		byLanguage[p.Language][p.Name] = true
	}

	for _, lang := range r.table.Languages() {
		for _, name := range r.table.QualityProfiles(lang) {
			if !byLanguage[lang][name] {
				return srvErrors.NewQualityProfileNotFoundError(fmt.Sprintf("%s (%s)", name, lang))
			}
		}
	}
	return nil
}

// CheckDefaultCredentialsRejected requires the weak credential pair to be refused with 401.
// A 2xx means the default password still works; a 5xx means the login crashed the server.
func (r *Runner) CheckDefaultCredentialsRejected(ctx context.Context) error {
	creds := r.table.Credentials()
	code, err := r.api.Login(ctx, creds.WeakLogin, creds.WeakPassword)
	if err != nil {
		return fmt.Errorf("failed to call login endpoint: %w", err)
	}
	if code != http.StatusUnauthorized {
		return srvErrors.NewUnexpectedStatusError(sonarqube.LoginPath, code, http.StatusUnauthorized)
	}
	return nil
}

type check struct {
	name string
	fn   func(context.Context) error
}

func (r *Runner) checks() []check {
	return []check{
		{CategoryStatus, r.CheckStatus},
		{CategoryPlugin, r.CheckPlugins},
		{CategoryQualityGate, r.CheckQualityGates},
		{CategoryProfile, r.CheckQualityProfiles},
		{CategoryCredentials, r.CheckDefaultCredentialsRejected},
	}
}

// Run executes every check and collects the outcomes. A failing category does not stop the others.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{Fixture: r.table.Name(), StartedAt: time.Now()}
	for _, c := range r.checks() {
		start := time.Now()
		err := c.fn(ctx)
		result := CheckResult{Name: c.name, Passed: err == nil, Err: err, Duration: time.Since(start)}
		if err != nil {
			r.logger.Errorw("check failed", "check", c.name, "error", err)
		} else {
			r.logger.Infow("check passed", "check", c.name)
		}
		report.Results = append(report.Results, result)
	}
	report.FinishedAt = time.Now()
	return report
}

type CheckResult struct {
	Name     string
	Passed   bool
	Err      error
	Duration time.Duration
}

type Report struct {
	Fixture    string
	Results    []CheckResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Err joins the errors of the failed checks.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Add appends the outcome of a check run outside the runner.
func (r *Report) Add(name string, err error, d time.Duration) {
	r.Results = append(r.Results, CheckResult{Name: name, Passed: err == nil, Err: err, Duration: d})
}
