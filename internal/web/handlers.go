package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/hpungsan/leadscan/internal/config"
	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/ops"
	"github.com/hpungsan/leadscan/internal/report"
)

// Handlers contains HTTP route handlers for one analysis.
type Handlers struct {
	out      *ops.AnalyzeOutput
	cfg      *config.Config
	renderer *Renderer
}

// summaryResponse is the body of GET /api/summary.
type summaryResponse struct {
	report.Summary
	Path           string `json:"path"`
	Customers      int    `json:"customers"`
	ThresholdHours int    `json:"threshold_hours"`
	AnalyzedAt     int64  `json:"analyzed_at"`
}

// customersResponse is the body of GET /api/customers.
type customersResponse struct {
	Set       string                `json:"set"`
	Count     int                   `json:"count"`
	Customers []ops.CustomerSummary `json:"customers"`
}

// HandleIndex handles GET / — the summary, the chart and the returning customers.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	returning, err := ops.FilterCustomers(h.out.AllCustomers(), ops.SetReturning)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	multi, err := ops.FilterCustomers(h.out.AllCustomers(), ops.SetMulti)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	md := report.Markdown(h.out.Summary(), ops.ReportRows(returning))

	h.renderer.renderPage(w, "index", IndexPageData{
		PageData: PageData{
			Title:   h.out.Title,
			Version: h.renderer.version,
		},
		Analysis:     h.out,
		SummaryHTML:  h.renderer.renderMarkdown(md),
		Multi:        multi,
		DownloadName: ops.SanitizeForFilename(h.out.Title),
	})
}

// HandleChart returns a handler for GET /chart.{png,svg}. ?download=1 adds
// an attachment Content-Disposition named after the title.
func (h *Handlers) HandleChart(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		width, height := h.cfg.ChartWidthCM, h.cfg.ChartHeightCM
		if width <= 0 {
			width = ops.DefaultChartWidthCM
		}
		if height <= 0 {
			height = ops.DefaultChartHeightCM
		}

		var buf bytes.Buffer
		if err := report.WriteChart(&buf, h.out.Summary(), format, report.Centimeters(width), report.Centimeters(height)); err != nil {
			h.renderer.renderError(w, r, errors.NewInternal(err))
			return
		}

		w.Header().Set("Content-Type", report.ContentType(format))
		w.Header().Set("Cache-Control", "no-store")
		if r.URL.Query().Get("download") != "" {
			w.Header().Set("Content-Disposition",
				fmt.Sprintf(`attachment; filename="%s.%s"`, ops.SanitizeForFilename(h.out.Title), format))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// HandleSummary handles GET /api/summary.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, summaryResponse{
		Summary:        h.out.Summary(),
		Path:           h.out.Path,
		Customers:      h.out.Customers,
		ThresholdHours: h.out.ThresholdHours,
		AnalyzedAt:     h.out.AnalyzedAt,
	})
}

// HandleCustomers handles GET /api/customers?set=all|multi|returning.
func (h *Handlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	set := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("set")))
	customers, err := ops.FilterCustomers(h.out.AllCustomers(), set)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if set == "" {
		set = ops.SetAll
	}

	renderJSON(w, http.StatusOK, customersResponse{
		Set:       set,
		Count:     len(customers),
		Customers: customers,
	})
}
