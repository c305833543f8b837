package ops

import (
	"crypto/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/lead"
	"github.com/hpungsan/leadscan/internal/report"
)

// Customer sets accepted by FilterCustomers.
const (
	SetAll       = "all"
	SetMulti     = "multi"
	SetReturning = "returning"
)

// CustomerSummary is the exported view of one customer.
type CustomerSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	LeadCount    int           `json:"lead_count"`
	Multi        bool          `json:"multi"`
	Returning    bool          `json:"returning"`
	DriftSeconds int64         `json:"drift_seconds"`
	FirstAt      time.Time     `json:"first_submitted_at"`
	LastAt       time.Time     `json:"last_submitted_at"`
	Leads        []LeadSummary `json:"leads,omitempty"`
}

// LeadSummary is one submission of a customer, in input order.
type LeadSummary struct {
	PostalCode  string    `json:"postal_code,omitempty"`
	Delivery    string    `json:"delivery,omitempty"`
	Size        string    `json:"size,omitempty"`
	City        string    `json:"city,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// summarizeCustomer builds the exported view of c.
func summarizeCustomer(c *lead.Customer, cl lead.Classification) CustomerSummary {
	leads := c.Leads()
	summary := CustomerSummary{
		ID:           c.Identity.ID().String(),
		Name:         c.Identity.Name,
		Phone:        c.Identity.Phone,
		LeadCount:    len(leads),
		Multi:        cl.IsMulti(c),
		Returning:    cl.IsReturning(c),
		DriftSeconds: int64(c.Drift() / time.Second),
		FirstAt:      c.First().SubmittedAt,
		LastAt:       c.Last().SubmittedAt,
		Leads:        make([]LeadSummary, 0, len(leads)),
	}
	for _, l := range leads {
		summary.Leads = append(summary.Leads, LeadSummary{
			PostalCode:  l.PostalCode,
			Delivery:    l.Delivery,
			Size:        l.Size,
			City:        l.City,
			SubmittedAt: l.SubmittedAt,
		})
	}
	return summary
}

// FilterCustomers returns the customers in set ("all", "multi" or "returning"),
// keeping their order. An empty set means "all".
func FilterCustomers(customers []CustomerSummary, set string) ([]CustomerSummary, error) {
	set = strings.ToLower(strings.TrimSpace(set))
	if set == "" {
		set = SetAll
	}

	var keep func(CustomerSummary) bool
	switch set {
	case SetAll:
		keep = func(CustomerSummary) bool { return true }
	case SetMulti:
		keep = func(c CustomerSummary) bool { return c.Multi }
	case SetReturning:
		keep = func(c CustomerSummary) bool { return c.Returning }
	default:
		return nil, errors.NewInvalidRequest("set must be one of: all, multi, returning")
	}

	result := make([]CustomerSummary, 0, len(customers))
	for _, c := range customers {
		if keep(c) {
			result = append(result, c)
		}
	}
	return result, nil
}

// ReportRows converts customer summaries to report rows.
func ReportRows(customers []CustomerSummary) []report.Row {
	rows := make([]report.Row, 0, len(customers))
	for _, c := range customers {
		submitted := make([]time.Time, 0, len(c.Leads))
		for _, l := range c.Leads {
			submitted = append(submitted, l.SubmittedAt)
		}
		rows = append(rows, report.Row{
			Name:      c.Name,
			Phone:     c.Phone,
			Leads:     c.LeadCount,
			Returning: c.Returning,
			Drift:     time.Duration(c.DriftSeconds) * time.Second,
			Submitted: submitted,
		})
	}
	return rows
}

// DefaultTitle picks the chart title: the explicit title, then the
// configured default, then the input file's base name without extension.
func DefaultTitle(path, title, configured string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if t := strings.TrimSpace(configured); t != "" {
		return t
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
