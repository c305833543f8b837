package ops

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/lead"
	"github.com/hpungsan/leadscan/internal/report"
)

// AnalyzeInput contains parameters for the Analyze operation.
type AnalyzeInput struct {
	Path             string // required, CSV file
	Title            string // optional, default: file base name
	IncludeCustomers bool   // include per-customer summaries in the output
}

// AnalyzeOutput contains the result of the Analyze operation.
type AnalyzeOutput struct {
	Path           string            `json:"path"`
	Title          string            `json:"title"`
	TotalLeads     int               `json:"total_leads"`
	Customers      int               `json:"customers"`
	MultiLead      int               `json:"multi_lead"`
	Returning      int               `json:"returning"`
	ThresholdHours int               `json:"threshold_hours"`
	AnalyzedAt     int64             `json:"analyzed_at"`
	CustomerList   []CustomerSummary `json:"customer_list,omitempty"`

	// all holds every customer in first-seen order, whether or not
	// CustomerList was requested.
	all []CustomerSummary
}

// AllCustomers returns every customer in first-seen order.
func (o *AnalyzeOutput) AllCustomers() []CustomerSummary {
	return o.all
}

// Summary returns the counts handed to report sinks.
func (o *AnalyzeOutput) Summary() report.Summary {
	return report.Summary{
		Title:      o.Title,
		TotalLeads: o.TotalLeads,
		MultiLead:  o.MultiLead,
		Returning:  o.Returning,
	}
}

// Analyze reads a lead CSV, groups leads by customer and classifies
// multi-lead and returning customers. A malformed row aborts the run with no
// partial result.
func Analyze(ctx context.Context, input AnalyzeInput) (*AnalyzeOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewFileNotFound(input.Path)
		}
		return nil, errors.NewInternal(err)
	}
	if info.IsDir() {
		return nil, errors.NewInvalidRequest("path must be a file, not a directory")
	}

	file, err := os.Open(input.Path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer file.Close()

	log := zap.L().With(zap.String("path", input.Path))
	log.Info("start parse of file")

	reader := lead.NewReader(file)
	header, err := reader.Header()
	if err != nil {
		return nil, err
	}
	log.Debug("column headers", zap.Strings("columns", header))

	agg := lead.NewAggregator()
	for {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("analyze")
		default:
		}

		l, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("parse failed", zap.Int("rows", reader.Rows()), zap.Error(err))
			return nil, err
		}
		agg.Add(l)
	}

	lines := reader.Rows()
	if header != nil {
		lines++
	}
	log.Info("total lines", zap.Int("lines", lines))

	customers := agg.Customers()
	cl := lead.Classify(customers, lead.ReturningThreshold)

	all := make([]CustomerSummary, 0, customers.Len())
	for _, c := range customers.All() {
		all = append(all, summarizeCustomer(c, cl))
	}

	out := &AnalyzeOutput{
		Path:           input.Path,
		Title:          DefaultTitle(input.Path, input.Title, ""),
		TotalLeads:     customers.LeadCount(),
		Customers:      customers.Len(),
		MultiLead:      len(cl.Multi),
		Returning:      len(cl.Returning),
		ThresholdHours: int(lead.ReturningThreshold / time.Hour),
		AnalyzedAt:     time.Now().Unix(),
		all:            all,
	}
	if input.IncludeCustomers {
		out.CustomerList = all
	}

	log.Debug("classified customers",
		zap.Int("total_leads", out.TotalLeads),
		zap.Int("customers", out.Customers),
		zap.Int("multi_lead", out.MultiLead),
		zap.Int("returning", out.Returning),
	)
	return out, nil
}
