package filter

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	DescribeTable("valid expressions",
		func(input, tree, sql string) {
			expr, err := Parse([]byte(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(expr.String()).To(Equal(tree))
			Expect(expr.Sql()).To(Equal(sql))
		},
		Entry("text equality", "flow = 'compose'",
			`(flow equal "compose")`, "(flow = 'compose')"),
		Entry("text inequality", `status != "passed"`,
			`(status notEqual "passed")`, "(status != 'passed')"),
		Entry("quotes are escaped", `image = "it's"`,
			`(image equal "it's")`, "(image = 'it''s')"),
		Entry("regex", "fixture ~ /^lequal-/",
			"(fixture like /^lequal-/)", "regexp_matches(fixture, '^lequal-')"),
		Entry("negated regex", "image !~ /latest$/",
			"(image notLike /latest$/)", "NOT regexp_matches(image, 'latest$')"),
		Entry("duration with unit", "duration > 5m",
			"(duration greater 5m0s)", "(duration_ms > 300000)"),
		Entry("duration in milliseconds", "duration <= 1500",
			"(duration lte 1.5s)", "(duration_ms <= 1500)"),
		Entry("fractional duration", "duration < 1.5h",
			"(duration less 1h30m0s)", "(duration_ms < 5400000)"),
		Entry("number", "failures >= 2",
			"(failures gte 2)", "(failures >= 2)"),
		Entry("boolean", "passed = false",
			"(passed equal false)", "((status = 'passed') = FALSE)"),
		Entry("date", "started >= '2026-10-01'",
			"(started gte 2026-10-01T00:00:00Z)", "(started_at >= TIMESTAMP '2026-10-01 00:00:00')"),
		Entry("timestamp", "finished < '2026-10-01T12:30:00+02:00'",
			"(finished less 2026-10-01T10:30:00Z)", "(finished_at < TIMESTAMP '2026-10-01 10:30:00')"),
		Entry("fields are case insensitive", "FLOW = 'single'",
			`(flow equal "single")`, "(flow = 'single')"),
		Entry("and binds tighter than or", "flow = 'a' or flow = 'b' and failures > 0",
			`((flow equal "a") or ((flow equal "b") and (failures greater 0)))`,
			"((flow = 'a') OR ((flow = 'b') AND (failures > 0)))"),
		Entry("brackets", "(flow = 'a' or flow = 'b') and failures > 0",
			`(((flow equal "a") or (flow equal "b")) and (failures greater 0))`,
			"(((flow = 'a') OR (flow = 'b')) AND (failures > 0))"),
	)

	DescribeTable("invalid expressions",
		func(input, message string) {
			_, err := Parse([]byte(input))
			Expect(err).To(HaveOccurred())

			var pe ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Message).To(ContainSubstring(message))
		},
		Entry("empty", "   ", "empty filter"),
		Entry("unknown field", "color = 'red'", `unknown field "color"`),
		Entry("missing operator", "flow 'a'", "expected operator"),
		Entry("missing value", "flow =", "expected text value for flow instead of eol"),
		Entry("number for text", "flow = 3", "expected text value"),
		Entry("string for duration", "duration > '5m'", "expected duration value"),
		Entry("duration for number", "failures > 5m", "expected number value"),
		Entry("ordering on text", "flow > 'a'", "cannot be ordered"),
		Entry("ordering on boolean", "passed > true", "cannot be ordered"),
		Entry("regex on number", "failures ~ /1/", "regex needs a text field"),
		Entry("string with regex operator", "flow ~ 'a'", "expected regexLit"),
		Entry("invalid regex", "flow ~ /[/", "invalid regex"),
		Entry("invalid date", "started > 'yesterday'", `invalid timestamp "yesterday"`),
		Entry("unbalanced bracket", "(flow = 'a'", "expected rbracket"),
		Entry("trailing tokens", "flow = 'a' flow", "expected eol"),
		Entry("dangling and", "flow = 'a' and", "expected identifier"),
	)

	It("should point at the offending token", func() {
		_, err := Parse([]byte("flow = 'a' and color = 'b'"))

		var pe ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Position).To(Equal(15))
		Expect(err.Error()).To(HavePrefix("parse error at 15:"))
	})

	It("should list the known fields", func() {
		Expect(Fields()).To(Equal([]string{
			"duration", "failures", "finished", "fixture", "flow", "image", "passed", "started", "status",
		}))
	})
})
