package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Run is one analysis as written to an export store.
type Run struct {
	ID               string
	Tag              string
	Title            string
	SourcePath       string
	TotalLeads       int
	MultiLead        int
	Returning        int
	ThresholdSeconds int64
	CreatedAt        int64 // Unix seconds
	Customers        []RunCustomer
}

// RunCustomer is one customer row of a Run, in first-seen order.
type RunCustomer struct {
	ID           string
	Name         string
	Phone        string
	LeadCount    int
	Multi        bool
	Returning    bool
	DriftSeconds int64
	Leads        []RunLead
}

// RunLead is one lead row of a RunCustomer, in input order.
type RunLead struct {
	PostalCode  string
	Delivery    string
	Size        string
	City        string
	SubmittedAt int64 // Unix seconds
}

const (
	insertRunSQL = `INSERT INTO %s (
			id, tag, title, source_path, total_leads, customer_count,
			multi_lead_count, returning_count, threshold_seconds, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertCustomerSQL = `INSERT INTO %s (
			run_id, customer_id, position, name, phone, lead_count,
			is_multi, is_returning, drift_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertLeadSQL = `INSERT INTO %s (
			id, run_id, customer_id, position, postal_code, delivery, size, city, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// SaveRun writes run with all of its customers and leads in one transaction.
// Either everything is stored or nothing is.
func (s *Store) SaveRun(ctx context.Context, run *Run) (err error) {
	if run == nil || run.ID == "" {
		return eris.New("run id is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	runSQL := s.rebind(fmt.Sprintf(insertRunSQL, s.table("scan_runs")))
	customerSQL := s.rebind(fmt.Sprintf(insertCustomerSQL, s.table("scan_customers")))
	leadSQL := s.rebind(fmt.Sprintf(insertLeadSQL, s.table("scan_leads")))

	_, err = tx.ExecContext(ctx, runSQL,
		run.ID, nullString(run.Tag), run.Title, run.SourcePath, run.TotalLeads,
		len(run.Customers), run.MultiLead, run.Returning, run.ThresholdSeconds, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "insert run %s", run.ID)
	}

	for i, c := range run.Customers {
		_, err = tx.ExecContext(ctx, customerSQL,
			run.ID, c.ID, i, c.Name, c.Phone, c.LeadCount,
			c.Multi, c.Returning, c.DriftSeconds,
		)
		if err != nil {
			return eris.Wrapf(err, "insert customer %s", c.ID)
		}

		for j, l := range c.Leads {
			_, err = tx.ExecContext(ctx, leadSQL,
				uuid.NewString(), run.ID, c.ID, j,
				nullString(l.PostalCode), nullString(l.Delivery), nullString(l.Size), nullString(l.City),
				l.SubmittedAt,
			)
			if err != nil {
				return eris.Wrapf(err, "insert lead %d of customer %s", j, c.ID)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "commit run")
	}
	return nil
}

// CountRuns returns the number of runs stored.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table("scan_runs"))
	if err := s.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "count runs")
	}
	return n, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
