// Package report renders analysis results: a bar chart, a console summary
// and a markdown summary for the web view.
package report

import (
	"fmt"
	"time"
)

// Summary is what every sink consumes: the three counts and a title.
type Summary struct {
	Title      string `json:"title"`
	TotalLeads int    `json:"total_leads"`
	MultiLead  int    `json:"multi_lead"`
	Returning  int    `json:"returning"`
}

// Row is one customer line in a text or markdown report.
type Row struct {
	Name      string
	Phone     string
	Leads     int
	Returning bool
	Drift     time.Duration
	Submitted []time.Time // input order
}

// formatDrift renders a span as whole days and hours, e.g. "9d 0h".
func formatDrift(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	return fmt.Sprintf("%dd %dh", days, hours)
}
