package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/store"
	"github.com/lequal/sonarqube-verify/internal/store/migrations"
	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/filter"
)

var _ = Describe("RunStore", func() {
	var (
		ctx context.Context
		s   *store.Store
		db  *sql.DB
		day time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		day = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

		var err error
		db, err = store.NewDB(store.MemoryPath)
		Expect(err).NotTo(HaveOccurred())

		Expect(migrations.Run(ctx, db)).To(Succeed())

		s = store.NewStore(db)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRun := func(id string, flow models.Flow, started time.Time, checks ...models.CheckRecord) models.Run {
		status := models.RunStatusPassed
		for _, c := range checks {
			if !c.Passed {
				status = models.RunStatusFailed
			}
		}
		return models.Run{
			ID:         id,
			Flow:       flow,
			Fixture:    "lequal-8.9",
			Image:      "lequal/sonarqube:latest",
			Status:     status,
			StartedAt:  started,
			FinishedAt: started.Add(4 * time.Minute),
			Checks:     checks,
		}
	}

	passed := func(name string) models.CheckRecord {
		return models.CheckRecord{Name: name, Passed: true, Duration: 120 * time.Millisecond}
	}
	failed := func(name, message string) models.CheckRecord {
		return models.CheckRecord{Name: name, Message: message, Duration: time.Second}
	}

	Context("Save and Get", func() {
		// Given a run with a failing check
		// When it is saved and read back
		// Then every field and check round-trips in order
		It("should read back a saved run", func() {
			// Arrange
			run := newRun("run-1", models.FlowSingle, day,
				passed("status"),
				failed("plugin", `plugin "Checkstyle": expected 8.40, got 8.39`),
				passed("quality gate"),
			)

			// Act
			Expect(s.Runs().Save(ctx, run)).To(Succeed())
			got, err := s.Runs().Get(ctx, "run-1")

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Flow).To(Equal(models.FlowSingle))
			Expect(got.Status).To(Equal(models.RunStatusFailed))
			Expect(got.StartedAt).To(BeTemporally("==", day))
			Expect(got.Duration()).To(Equal(4 * time.Minute))
			Expect(got.Checks).To(Equal(run.Checks))
			Expect(got.Failures()).To(Equal(1))
		})

		It("should save a run without checks", func() {
			Expect(s.Runs().Save(ctx, newRun("empty", models.FlowSecretGuard, day))).To(Succeed())

			got, err := s.Runs().Get(ctx, "empty")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Checks).To(BeEmpty())
		})

		It("should return ResourceNotFoundError for an unknown run", func() {
			_, err := s.Runs().Get(ctx, "nope")
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})

		It("should refuse a duplicated id", func() {
			run := newRun("run-1", models.FlowSingle, day)
			Expect(s.Runs().Save(ctx, run)).To(Succeed())
			Expect(s.Runs().Save(ctx, run)).To(MatchError(ContainSubstring("inserting run run-1")))
		})
	})

	Context("List", func() {
		BeforeEach(func() {
			Expect(s.Runs().Save(ctx, newRun("a", models.FlowSingle, day, passed("status")))).To(Succeed())
			Expect(s.Runs().Save(ctx, newRun("b", models.FlowCompose, day.Add(time.Hour), failed("idempotence", "setup ran twice")))).To(Succeed())
			Expect(s.Runs().Save(ctx, newRun("c", models.FlowSingle, day.Add(2*time.Hour), passed("status"), failed("plugin", "missing")))).To(Succeed())
		})

		ids := func(runs []models.Run) []string {
			out := make([]string, 0, len(runs))
			for _, r := range runs {
				out = append(out, r.ID)
			}
			return out
		}

		It("should list every run with a nil filter", func() {
			runs, err := s.Runs().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(runs)).To(ConsistOf("a", "b", "c"))
		})

		It("should list the latest runs first", func() {
			runs, err := s.Runs().List(ctx, store.NewRunQueryFilter().Latest().Limit(2))
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(runs)).To(Equal([]string{"c", "b"}))
			Expect(runs[0].Checks).To(HaveLen(2))
			Expect(runs[1].Checks[0].Message).To(Equal("setup ran twice"))
		})

		It("should filter by flow and status", func() {
			runs, err := s.Runs().List(ctx, store.NewRunQueryFilter().
				ByFlow(models.FlowSingle).
				ByStatus(models.RunStatusFailed))
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(runs)).To(Equal([]string{"c"}))
		})

		It("should filter with an expression", func() {
			expr, err := filter.Parse([]byte("failures > 0 and started < '2026-10-01 10:00:00'"))
			Expect(err).NotTo(HaveOccurred())

			runs, err := s.Runs().List(ctx, store.NewRunQueryFilter().ByExpression(expr).Latest())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(runs)).To(Equal([]string{"b"}))
		})

		It("should return nothing when no run matches", func() {
			runs, err := s.Runs().List(ctx, store.NewRunQueryFilter().ByFlow(models.FlowSecretGuard))
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(BeEmpty())
		})
	})

	Context("NewDB", func() {
		It("should create the database directory", func() {
			path := filepath.Join(GinkgoT().TempDir(), "nested", "history.duckdb")

			fileDB, err := store.NewDB(path)
			Expect(err).NotTo(HaveOccurred())
			defer fileDB.Close()

			_, err = os.Stat(filepath.Dir(path))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
