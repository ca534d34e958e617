package filter

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func scanAll(input string) string {
	l := newLexer([]byte(input))
	var out []string
	for {
		_, tok, val := l.Scan()
		if val != "" && tok != illegal {
			out = append(out, tok.String()+":"+val)
		} else {
			out = append(out, tok.String())
		}
		if tok == eol || tok == illegal {
			return strings.Join(out, " ")
		}
	}
}

var _ = Describe("Lexer", func() {
	DescribeTable("Scan",
		func(input, output string) {
			Expect(scanAll(input)).To(Equal(output))
		},
		Entry("comparison operators", "= != < <= > >=", "equal notEqual less lte greater gte eol"),
		Entry("regex operators", "~ !~", "like notLike eol"),
		Entry("keywords are case insensitive", "and OR And", "and or and eol"),
		Entry("brackets", "( )", "lbracket rbracket eol"),
		Entry("identifier", "flow", "identifier:flow eol"),
		Entry("boolean", "TRUE false", "boolean:true boolean:false eol"),
		Entry("single quoted string", "'compose'", "stringLit:compose eol"),
		Entry("double quoted string", `"lequal-8.9"`, "stringLit:lequal-8.9 eol"),
		Entry("number", "12 3.5", "number:12 number:3.5 eol"),
		Entry("durations", "500ms 30s 5m 1h 1.5M", "duration:500ms duration:30s duration:5m duration:1h duration:1.5M eol"),
		Entry("regex", "/^RNC.*/", "regexLit:^RNC.* eol"),
		Entry("escaped slash in regex", `/a\/b/`, "regexLit:a/b eol"),
		Entry("whitespace", " \t\nflow\r\n", "identifier:flow eol"),
		Entry("full expression",
			"flow = 'compose' and (failures > 0 or duration >= 5m)",
			"identifier:flow equal stringLit:compose and lbracket identifier:failures greater number:0 or identifier:duration gte duration:5m rbracket eol"),
	)

	DescribeTable("illegal input",
		func(input string) {
			Expect(scanAll(input)).To(HaveSuffix("illegal"))
		},
		Entry("lonely bang", "!"),
		Entry("unclosed string", "'abc"),
		Entry("empty string", "''"),
		Entry("unclosed regex", "/abc"),
		Entry("unknown unit", "5gb"),
		Entry("malformed number", "5."),
		Entry("unexpected char", "#"),
	)

	It("should report token positions", func() {
		l := newLexer([]byte("  flow = 'x'"))
		pos, tok, _ := l.Scan()
		Expect(tok).To(Equal(identifier))
		Expect(pos).To(Equal(2))
		pos, tok, _ = l.Scan()
		Expect(tok).To(Equal(equal))
		Expect(pos).To(Equal(7))
	})
})
