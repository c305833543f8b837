package ops

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/leadscan/internal/errors"
	"github.com/hpungsan/leadscan/internal/report"
)

// Default chart size in centimeters.
const (
	DefaultChartWidthCM  = 16
	DefaultChartHeightCM = 12
)

// ChartInput contains parameters for the Chart operation.
type ChartInput struct {
	Path     string  // required, .png or .svg
	Format   string  // optional, default: from the path extension
	WidthCM  float64 // optional, default: 16
	HeightCM float64 // optional, default: 12
}

// ChartOutput contains the result of the Chart operation.
type ChartOutput struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Bytes  int64  `json:"bytes"`
}

// Chart renders the summary bar chart of an analysis to a file.
func Chart(ctx context.Context, out *AnalyzeOutput, input ChartInput) (*ChartOutput, error) {
	if out == nil {
		return nil, errors.NewInvalidRequest("analysis is required")
	}
	if err := ValidateOutputPath(input.Path, ".png", ".svg"); err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input.Path)), ".")
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = ext
	}
	if !report.ValidFormat(format) {
		return nil, errors.NewInvalidRequest("format must be png or svg")
	}
	if format != ext {
		return nil, errors.NewInvalidRequest("format " + format + " does not match file extension ." + ext)
	}

	width, height := input.WidthCM, input.HeightCM
	if width == 0 {
		width = DefaultChartWidthCM
	}
	if height == 0 {
		height = DefaultChartHeightCM
	}
	if width < 0 || height < 0 {
		return nil, errors.NewInvalidRequest("chart size must be positive")
	}

	select {
	case <-ctx.Done():
		return nil, errors.NewCancelled("chart")
	default:
	}

	n, err := writeFileAtomic(input.Path, func(w io.Writer) error {
		return report.WriteChart(w, out.Summary(), format, report.Centimeters(width), report.Centimeters(height))
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("chart written", zap.String("path", input.Path), zap.String("format", format), zap.Int64("bytes", n))
	return &ChartOutput{Path: input.Path, Format: format, Bytes: n}, nil
}
