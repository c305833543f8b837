package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/leadscan/internal/config"
	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{cfg: cfg}
}

// AnalyzeRequest represents the arguments for leads_analyze.
type AnalyzeRequest struct {
	Path             string `json:"path"`
	Title            string `json:"title,omitempty"`
	IncludeCustomers bool   `json:"include_customers,omitempty"`
}

// CustomersRequest represents the arguments for leads_customers.
type CustomersRequest struct {
	Path string `json:"path"`
	Set  string `json:"set,omitempty"`
}

// ChartRequest represents the arguments for leads_chart.
type ChartRequest struct {
	Path     string  `json:"path"`
	OutPath  string  `json:"out_path"`
	Title    string  `json:"title,omitempty"`
	Format   string  `json:"format,omitempty"`
	WidthCM  float64 `json:"width_cm,omitempty"`
	HeightCM float64 `json:"height_cm,omitempty"`
}

// CustomersResult is the leads_customers response.
type CustomersResult struct {
	Path      string                `json:"path"`
	Set       string                `json:"set"`
	Count     int                   `json:"count"`
	Customers []ops.CustomerSummary `json:"customers"`
}

// ChartResult is the leads_chart response.
type ChartResult struct {
	*ops.ChartOutput
	Title      string `json:"title"`
	TotalLeads int    `json:"total_leads"`
	MultiLead  int    `json:"multi_lead"`
	Returning  int    `json:"returning"`
}

func (h *Handlers) analyze(ctx context.Context, path, title string, includeCustomers bool) (*ops.AnalyzeOutput, error) {
	return ops.Analyze(ctx, ops.AnalyzeInput{
		Path:             path,
		Title:            ops.DefaultTitle(path, title, h.cfg.DefaultTitle),
		IncludeCustomers: includeCustomers,
	})
}

// HandleAnalyze handles the leads_analyze tool call.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.analyze(ctx, input.Path, input.Title, input.IncludeCustomers)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCustomers handles the leads_customers tool call.
func (h *Handlers) HandleCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CustomersRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	// Reject a bad set before reading the file
	set := strings.ToLower(strings.TrimSpace(input.Set))
	if set == "" {
		set = ops.SetAll
	}
	if _, err := ops.FilterCustomers(nil, set); err != nil {
		return errorResult(err), nil
	}

	out, err := h.analyze(ctx, input.Path, "", false)
	if err != nil {
		return errorResult(err), nil
	}

	customers, err := ops.FilterCustomers(out.AllCustomers(), set)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(CustomersResult{
		Path:      out.Path,
		Set:       set,
		Count:     len(customers),
		Customers: customers,
	})
}

// HandleChart handles the leads_chart tool call.
func (h *Handlers) HandleChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.OutPath) == "" {
		return errorResult(errors.NewInvalidRequest("out_path is required")), nil
	}

	out, err := h.analyze(ctx, input.Path, input.Title, false)
	if err != nil {
		return errorResult(err), nil
	}

	width, height := input.WidthCM, input.HeightCM
	if width == 0 {
		width = h.cfg.ChartWidthCM
	}
	if height == 0 {
		height = h.cfg.ChartHeightCM
	}

	chart, err := ops.Chart(ctx, out, ops.ChartInput{
		Path:     input.OutPath,
		Format:   input.Format,
		WidthCM:  width,
		HeightCM: height,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ChartResult{
		ChartOutput: chart,
		Title:       out.Title,
		TotalLeads:  out.TotalLeads,
		MultiLead:   out.MultiLead,
		Returning:   out.Returning,
	})
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.ScanError
	if stderrors.As(err, &sErr) {
		// Keep any wrapper context in front of the coded message
		message := sErr.Message
		if prefix := strings.TrimSuffix(err.Error(), sErr.Error()); prefix != err.Error() {
			message = prefix + message
		}

		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": message,
			"status":  sErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		zap.L().Warn("unexpected tool error", zap.Error(err))
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
