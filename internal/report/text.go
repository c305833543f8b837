package report

import (
	"fmt"
	"io"
	"strings"
)

const submittedLayout = "2006-01-02 15:04:05"

// WriteText writes the console summary. rows, when present, are listed under
// the counts with each customer's submission times.
func WriteText(w io.Writer, s Summary, rows []Row) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead Duplicate Summary\n")
	b.WriteString(strings.Repeat("=", 38) + "\n")
	fmt.Fprintf(&b, "Data from: %s\n", s.Title)
	fmt.Fprintf(&b, "Total leads: %d\n", s.TotalLeads)
	fmt.Fprintf(&b, "Customers with multiple submissions: %d\n", s.MultiLead)
	fmt.Fprintf(&b, "Returning customers: %d\n", s.Returning)

	if rows != nil {
		b.WriteString("\nCustomers\n")
		b.WriteString(strings.Repeat("-", 38) + "\n")
		if len(rows) == 0 {
			b.WriteString("No customers found.\n")
		}
		for _, r := range rows {
			status := "multi"
			if r.Leads < 2 {
				status = "single"
			} else if r.Returning {
				status = "returning"
			}
			fmt.Fprintf(&b, "%s | %s | leads %d | %s | span %s\n",
				r.Name, r.Phone, r.Leads, status, formatDrift(r.Drift))
			for i, ts := range r.Submitted {
				fmt.Fprintf(&b, "  Lead %d: %s\n", i+1, ts.Format(submittedLayout))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
