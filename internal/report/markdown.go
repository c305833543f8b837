package report

import (
	"fmt"
	"strings"
)

// Markdown renders the summary and the returning customers as a markdown
// document. Cell text is escaped so names cannot break the tables.
func Markdown(s Summary, returning []Row) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Data from: %s\n\n", escapeCell(s.Title))
	b.WriteString("| Metric | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total leads | %d |\n", s.TotalLeads)
	fmt.Fprintf(&b, "| Customers with multiple submissions | %d |\n", s.MultiLead)
	fmt.Fprintf(&b, "| Returning customers | %d |\n", s.Returning)

	b.WriteString("\n### Returning customers\n\n")
	if len(returning) == 0 {
		b.WriteString("_None._\n")
		return b.String()
	}

	b.WriteString("| Name | Phone | Leads | Span | First | Last |\n|---|---|---:|---|---|---|\n")
	for _, r := range returning {
		first, last := "", ""
		if n := len(r.Submitted); n > 0 {
			first = r.Submitted[0].Format(submittedLayout)
			last = r.Submitted[n-1].Format(submittedLayout)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
			escapeCell(r.Name), escapeCell(r.Phone), r.Leads, formatDrift(r.Drift), first, last)
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer(
	"|", `\|`,
	"\n", " ",
	"\r", " ",
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	">", "&gt;",
	"#", `\#`,
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
