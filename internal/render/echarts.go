package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// heatColors is the viridis ramp used by every interactive heat map.
var heatColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// EChartsSink collects interactive charts and writes them as one HTML page
// on Close.
type EChartsSink struct {
	out        *Output
	name       string
	title      string
	assetsHost string
	page       *components.Page
	charts     int
}

// NewEChartsSink returns a sink writing name (e.g. "report.html").
// assetsHost may be empty to use the go-echarts default CDN.
func NewEChartsSink(out *Output, name, title, assetsHost string) *EChartsSink {
	page := components.NewPage()
	page.SetPageTitle(title)
	if assetsHost != "" {
		page.SetAssetsHost(assetsHost)
	}
	return &EChartsSink{out: out, name: name, title: title, assetsHost: assetsHost, page: page}
}

func (s *EChartsSink) init() opts.Initialization {
	o := opts.Initialization{PageTitle: s.title, Width: "900px", Height: "900px"}
	if s.assetsHost != "" {
		o.AssetsHost = s.assetsHost
	}
	return o
}

func axisTicks(ticks []string, n int) []string {
	if ticks != nil {
		return ticks
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (s *EChartsSink) heatmap(g Grid, blankZero bool) {
	rows, cols := g.Data.Dims()
	data := make([]opts.HeatMapData, 0, rows*cols)
	maxV := 0.0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Data.At(r, c)
			if blankZero && v == 0 {
				continue
			}
			if g.Percent {
				v *= 100
			}
			if v > maxV {
				maxV = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, v}})
		}
	}
	if maxV == 0 {
		maxV = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(s.init()),
		charts.WithTitleOpts(opts.Title{Title: g.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: g.XLabel, Data: axisTicks(g.XTicks, cols)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: g.YLabel, Data: axisTicks(g.YTicks, rows)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxV),
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	)
	hm.AddSeries(g.Name, data)
	s.page.AddCharts(hm)
	s.charts++
}

func (s *EChartsSink) BoardHeatmap(g Grid) error {
	if g.XLabel == "" {
		g.XLabel, g.YLabel = "Board column", "Board row"
	}
	s.heatmap(g, true)
	return nil
}

func (s *EChartsSink) BoardNumbers(g Grid) error { return s.BoardHeatmap(g) }

func (s *EChartsSink) Heatmap(g Grid) error {
	s.heatmap(g, false)
	return nil
}

func (s *EChartsSink) Bars(b Bars) error {
	data := make([]opts.BarData, len(b.Values))
	for i, v := range b.Values {
		data[i] = opts.BarData{Value: v}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.title, Width: "100%", Height: "600px", AssetsHost: s.assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: b.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: b.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: b.YLabel}),
	)
	bar.SetXAxis(b.Labels).
		AddSeries(b.Name, data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	s.page.AddCharts(bar)
	s.charts++
	return nil
}

// Table is not drawn on the interactive page.
func (s *EChartsSink) Table(Table) error { return nil }

// Close renders the page. Nothing is written when no chart was added.
func (s *EChartsSink) Close() error {
	if s.charts == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := s.page.Render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", s.name, err)
	}
	return s.out.Write(s.name, "html", buf.Bytes())
}
