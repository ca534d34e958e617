package filter

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Filter Integration with DuckDB", func() {
	var db *sql.DB

	BeforeEach(func() {
		connector, err := duckdb.NewConnector("", nil)
		Expect(err).ToNot(HaveOccurred())

		db = sql.OpenDB(connector)
		Expect(db.Ping()).To(Succeed())

		_, err = db.Exec(`
			CREATE TABLE runs (
				id VARCHAR PRIMARY KEY,
				flow VARCHAR NOT NULL,
				fixture VARCHAR NOT NULL,
				image VARCHAR NOT NULL,
				status VARCHAR NOT NULL,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL,
				duration_ms BIGINT NOT NULL,
				failures INTEGER NOT NULL
			)`)
		Expect(err).ToNot(HaveOccurred())

		day := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
		insert := func(id, flow, image, status string, started time.Time, d time.Duration, failures int) {
			_, err := db.Exec(`INSERT INTO runs VALUES (?, ?, 'lequal-8.9', ?, ?, ?, ?, ?, ?)`,
				id, flow, image, status, started, started.Add(d), d.Milliseconds(), failures)
			Expect(err).ToNot(HaveOccurred())
		}
		insert("run-1", "single", "lequal/sonarqube:latest", "passed", day, 3*time.Minute, 0)
		insert("run-2", "compose", "lequal/sonarqube:latest", "failed", day.Add(time.Hour), 9*time.Minute, 1)
		insert("run-3", "secret-guard", "lequal/sonarqube:8.9", "passed", day.AddDate(0, 0, 1), 40*time.Second, 0)
		insert("run-4", "single", "lequal/sonarqube:8.9", "failed", day.AddDate(0, 0, 2), 12*time.Minute, 3)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	queryRuns := func(filterExpr string) ([]string, error) {
		expr, err := Parse([]byte(filterExpr))
		if err != nil {
			return nil, err
		}

		rows, err := db.Query(`SELECT id FROM runs WHERE ` + expr.Sql() + ` ORDER BY id`)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w\nFilter SQL: %s", err, expr.Sql())
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}

	DescribeTable("should select matching runs",
		func(filterExpr string, expected []string) {
			ids, err := queryRuns(filterExpr)
			Expect(err).ToNot(HaveOccurred())
			if len(expected) == 0 {
				Expect(ids).To(BeEmpty())
				return
			}
			Expect(ids).To(Equal(expected))
		},
		Entry("by flow", "flow = 'single'", []string{"run-1", "run-4"}),
		Entry("by status", "status != 'passed'", []string{"run-2", "run-4"}),
		Entry("by passed flag", "passed = true", []string{"run-1", "run-3"}),
		Entry("by image regex", "image ~ /:8\\.9$/", []string{"run-3", "run-4"}),
		Entry("by negated regex", "flow !~ /^s/", []string{"run-2"}),
		Entry("by duration", "duration > 5m", []string{"run-2", "run-4"}),
		Entry("by short duration", "duration < 1m", []string{"run-3"}),
		Entry("by failures", "failures >= 1", []string{"run-2", "run-4"}),
		Entry("by start date", "started >= '2026-10-02'", []string{"run-3", "run-4"}),
		Entry("by finish time", "finished < '2026-10-01 09:00:00'", []string{"run-1"}),
		Entry("combined", "flow = 'single' and (failures > 0 or duration < 1m)", []string{"run-4"}),
		Entry("no match", "fixture = 'other'", nil),
	)
})
