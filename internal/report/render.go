package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/labels"
)

// Taxonomies lists the charts in render order.
var Taxonomies = []labels.Taxonomy{labels.Classes40, labels.Classes13}

// WriteHTML renders one bar chart per taxonomy with a series per split.
func (h *Histogram) WriteHTML(w io.Writer, title string) error {
	page := components.NewPage()
	page.PageTitle = title
	for _, tax := range Taxonomies {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "520px"}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%d-class pixel counts", int(tax)), Subtitle: title}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 60, Interval: "0"}}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		bar.SetXAxis(Categories(tax))
		for _, split := range dataset.SplitNames {
			counts := h.Counts(tax, split)
			data := make([]opts.BarData, len(counts))
			for i, n := range counts {
				data[i] = opts.BarData{Value: n}
			}
			bar.AddSeries(string(split), data)
		}
		page.AddCharts(bar)
	}
	return page.Render(w)
}

// SavePlot writes a grouped bar chart of one taxonomy to path. The image
// format follows the file extension.
func (h *Histogram) SavePlot(tax labels.Taxonomy, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("NYUv2 %d-class pixel counts", int(tax))
	p.Y.Label.Text = "pixels"

	const width = 6
	for i, split := range dataset.SplitNames {
		counts := h.Counts(tax, split)
		values := make(plotter.Values, len(counts))
		for j, n := range counts {
			values[j] = float64(n)
		}
		bars, err := plotter.NewBarChart(values, vg.Points(width))
		if err != nil {
			return fmt.Errorf("bar chart %s: %w", split, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Points(width * (float64(i) - 0.5))
		p.Add(bars)
		p.Legend.Add(string(split), bars)
	}
	p.Legend.Top = true
	p.NominalX(Categories(tax)...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	if err := p.Save(18*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
