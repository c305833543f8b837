package ops

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/hpungsan/leadscan/internal/errors"
)

// ExportSchemaVersion is written to every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // required, .jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	LeadscanExport bool   `json:"_leadscan_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
	Title          string `json:"title"`
	Source         string `json:"source"`
	TotalLeads     int    `json:"total_leads"`
	Customers      int    `json:"customers"`
	MultiLead      int    `json:"multi_lead"`
	Returning      int    `json:"returning"`
}

// Export writes an analysis to a JSONL file: one header line, then one line
// per customer in first-seen order.
func Export(ctx context.Context, out *AnalyzeOutput, input ExportInput) (*ExportOutput, error) {
	if out == nil {
		return nil, errors.NewInvalidRequest("analysis is required")
	}
	if err := ValidateOutputPath(input.Path, ".jsonl"); err != nil {
		return nil, err
	}

	exportedAt := time.Now().Unix()
	count := 0

	_, err := writeFileAtomic(input.Path, func(w io.Writer) error {
		enc := json.NewEncoder(w)

		header := ExportHeader{
			LeadscanExport: true,
			SchemaVersion:  ExportSchemaVersion,
			ExportedAt:     exportedAt,
			Title:          out.Title,
			Source:         out.Path,
			TotalLeads:     out.TotalLeads,
			Customers:      out.Customers,
			MultiLead:      out.MultiLead,
			Returning:      out.Returning,
		}
		if err := enc.Encode(header); err != nil {
			return err
		}

		for _, c := range out.AllCustomers() {
			select {
			case <-ctx.Done():
				return errors.NewCancelled("export")
			default:
			}

			if err := enc.Encode(c); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       input.Path,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}
