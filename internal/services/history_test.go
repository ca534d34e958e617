package services_test

import (
	"context"
	"database/sql"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/internal/store"
	"github.com/lequal/sonarqube-verify/internal/store/migrations"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

var _ = Describe("HistoryService", func() {
	var (
		ctx     context.Context
		db      *sql.DB
		history *services.HistoryService
		start   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

		var err error
		db, err = store.NewDB(store.MemoryPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrations.Run(ctx, db)).To(Succeed())

		history = services.NewHistoryService(store.NewStore(db))
	})

	AfterEach(func() {
		db.Close()
	})

	report := func(started time.Time, errs ...error) *verify.Report {
		r := &verify.Report{Fixture: "lequal-8.9", StartedAt: started}
		for i, err := range errs {
			r.Add([]string{"status", "plugin", "quality gate"}[i], err, time.Second)
		}
		r.FinishedAt = started.Add(time.Duration(len(errs)) * time.Second)
		return r
	}

	It("should convert a failed report", func() {
		run := services.RunFromReport(models.FlowSingle, "lequal/sonarqube:latest",
			report(start, nil, errors.New(`plugin "PMD" not found`)))

		Expect(run.ID).NotTo(BeEmpty())
		Expect(run.Status).To(Equal(models.RunStatusFailed))
		Expect(run.Failures()).To(Equal(1))
		Expect(run.Checks[1].Message).To(Equal(`plugin "PMD" not found`))
		Expect(run.Checks[0].Message).To(BeEmpty())
		Expect(run.Duration()).To(Equal(2 * time.Second))
	})

	It("should record runs and list them from the latest", func() {
		_, err := history.Record(ctx, models.FlowSingle, "lequal/sonarqube:latest", report(start, nil))
		Expect(err).NotTo(HaveOccurred())
		_, err = history.Record(ctx, models.FlowCompose, "lequal/sonarqube:latest", report(start.Add(time.Hour), nil, errors.New("boom")))
		Expect(err).NotTo(HaveOccurred())

		runs, err := history.List(ctx, "", 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].Flow).To(Equal(models.FlowCompose))
		Expect(runs[0].Checks).To(HaveLen(2))
	})

	It("should filter with an expression", func() {
		_, err := history.Record(ctx, models.FlowSingle, "lequal/sonarqube:latest", report(start, nil))
		Expect(err).NotTo(HaveOccurred())
		_, err = history.Record(ctx, models.FlowCompose, "lequal/sonarqube:latest", report(start.Add(time.Hour), errors.New("boom")))
		Expect(err).NotTo(HaveOccurred())

		runs, err := history.List(ctx, "failures > 0 and flow = 'compose'", 10)

		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Status).To(Equal(models.RunStatusFailed))
	})

	It("should reject an invalid filter", func() {
		_, err := history.List(ctx, "colour = 'red'", 10)

		Expect(err).To(MatchError(ContainSubstring("invalid filter")))
	})
})
