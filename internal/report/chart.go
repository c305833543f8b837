package report

import (
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Bar labels, left to right.
const (
	LabelTotal     = "Total Leads"
	LabelMulti     = "Customers with\nMultiple Submissions"
	LabelReturning = "Returning Customers"
)

// Chart formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

var barColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// ValidFormat reports whether format is a supported chart format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatPNG, FormatSVG:
		return true
	}
	return false
}

// ContentType returns the MIME type for a chart format.
func ContentType(format string) string {
	if strings.ToLower(format) == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Centimeters converts a size in centimeters to a plot length.
func Centimeters(cm float64) vg.Length {
	return vg.Length(cm) * vg.Centimeter
}

// Chart builds the three-bar summary chart. barWidth is the width of each bar.
func Chart(s Summary, barWidth vg.Length) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Data from: " + s.Title
	p.Y.Label.Text = "Leads"
	p.Y.Min = 0
	p.Y.Tick.Marker = integerTicks{}

	values := plotter.Values{
		float64(s.TotalLeads),
		float64(s.MultiLead),
		float64(s.Returning),
	}
	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, eris.Wrap(err, "build bar chart")
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(LabelTotal, LabelMulti, LabelReturning)

	// Keep empty charts from collapsing to a zero-height axis.
	if p.Y.Max < 1 {
		p.Y.Max = 1
	}
	return p, nil
}

// WriteChart renders the summary chart to w as PNG or SVG.
func WriteChart(w io.Writer, s Summary, format string, width, height vg.Length) error {
	format = strings.ToLower(format)
	if !ValidFormat(format) {
		return eris.Errorf("unsupported chart format %q", format)
	}
	if width <= 0 || height <= 0 {
		return eris.Errorf("invalid chart size %vx%v", width, height)
	}

	p, err := Chart(s, width/5)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return eris.Wrapf(err, "render %s chart", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return eris.Wrapf(err, "write %s chart", format)
	}
	return nil
}

// integerTicks keeps only whole-number ticks; lead counts are never fractional.
type integerTicks struct{}

func (integerTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for _, t := range (plot.DefaultTicks{}).Ticks(min, max) {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		if t.Label != "" {
			t.Label = strconv.FormatFloat(t.Value, 'f', 0, 64)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
