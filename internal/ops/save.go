package ops

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/leadscan/internal/db"
	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/lead"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Tag string // optional label stored with the run
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	RunID     string `json:"run_id"`
	Dialect   string `json:"dialect"`
	Customers int    `json:"customers"`
	Leads     int    `json:"leads"`
}

// Save writes an analysis, with its customers and leads, to an export store.
// The run is stored in one transaction; nothing is read back.
func Save(ctx context.Context, store *db.Store, out *AnalyzeOutput, input SaveInput) (*SaveOutput, error) {
	if store == nil {
		return nil, errors.NewInvalidRequest("store is required")
	}
	if out == nil {
		return nil, errors.NewInvalidRequest("analysis is required")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	run := &db.Run{
		ID:               id,
		Tag:              strings.TrimSpace(input.Tag),
		Title:            out.Title,
		SourcePath:       out.Path,
		TotalLeads:       out.TotalLeads,
		MultiLead:        out.MultiLead,
		Returning:        out.Returning,
		ThresholdSeconds: int64(lead.ReturningThreshold / time.Second),
		CreatedAt:        time.Now().Unix(),
	}

	leads := 0
	for _, c := range out.AllCustomers() {
		rc := db.RunCustomer{
			ID:           c.ID,
			Name:         c.Name,
			Phone:        c.Phone,
			LeadCount:    c.LeadCount,
			Multi:        c.Multi,
			Returning:    c.Returning,
			DriftSeconds: c.DriftSeconds,
			Leads:        make([]db.RunLead, 0, len(c.Leads)),
		}
		for _, l := range c.Leads {
			rc.Leads = append(rc.Leads, db.RunLead{
				PostalCode:  l.PostalCode,
				Delivery:    l.Delivery,
				Size:        l.Size,
				City:        l.City,
				SubmittedAt: l.SubmittedAt.Unix(),
			})
		}
		leads += len(rc.Leads)
		run.Customers = append(run.Customers, rc)
	}

	if err := store.SaveRun(ctx, run); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("save")
		}
		zap.L().Warn("save run failed", zap.String("dialect", store.Dialect.String()), zap.Error(err))
		return nil, errors.NewInternal(err)
	}

	zap.L().Info("run saved",
		zap.String("run_id", run.ID),
		zap.String("dialect", store.Dialect.String()),
		zap.Int("customers", len(run.Customers)),
		zap.Int("leads", leads),
	)
	return &SaveOutput{
		RunID:     run.ID,
		Dialect:   store.Dialect.String(),
		Customers: len(run.Customers),
		Leads:     leads,
	}, nil
}
