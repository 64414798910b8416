package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/kilter.report/internal/fsutil"
)

var (
	annotationColor = color.RGBA{R: 138, G: 43, B: 226, A: 255} // blueviolet
	barColor        = color.RGBA{R: 49, G: 104, B: 142, A: 255}
)

// PlotSink draws PNG images with gonum/plot. Board grids are drawn over the
// board photo when one is given.
type PlotSink struct {
	out   *Output
	board image.Image
	size  vg.Length

	// MaxTableRows caps the rows drawn by Table; zero draws every row.
	MaxTableRows int
}

// NewPlotSink returns a PNG sink. board may be nil; inches is the side of
// the square board and heat map images.
func NewPlotSink(out *Output, board image.Image, inches float64) *PlotSink {
	if inches <= 0 {
		inches = 20
	}
	return &PlotSink{out: out, board: board, size: vg.Length(inches) * vg.Inch}
}

// LoadImage decodes a PNG or JPEG board photo.
func LoadImage(fsys fsutil.FileSystem, path string) (image.Image, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode board image %s: %w", path, err)
	}
	return img, nil
}

// gridXYZ adapts a matrix to plotter.GridXYZ. Columns are X, rows are Y.
type gridXYZ struct {
	m mat.Matrix
	// blankZero turns zero cells into NaN so they are left unpainted.
	blankZero bool
}

func (g gridXYZ) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g gridXYZ) Z(c, r int) float64 {
	v := g.m.At(r, c)
	if g.blankZero && v == 0 {
		return math.NaN()
	}
	return v
}

func (g gridXYZ) X(c int) float64 { return float64(c) }
func (g gridXYZ) Y(r int) float64 { return float64(r) }

func newHeatMap(g gridXYZ, alpha float64) *plotter.HeatMap {
	hm := plotter.NewHeatMap(g, palette.Heat(64, alpha))
	switch {
	case hm.Min > hm.Max:
		// Every cell blank.
		hm.Min, hm.Max = 0, 1
	case hm.Min == hm.Max:
		hm.Min = math.Min(0, hm.Min-1)
	}
	return hm
}

// cellLabels annotates every non-zero cell of m.
func cellLabels(g Grid, size vg.Length) (*plotter.Labels, error) {
	rows, cols := g.Data.Dims()
	var xyl plotter.XYLabels
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Data.At(r, c)
			if v == 0 || math.IsNaN(v) {
				continue
			}
			xyl.XYs = append(xyl.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			xyl.Labels = append(xyl.Labels, g.Format(v))
		}
	}
	if len(xyl.XYs) == 0 {
		return nil, nil
	}
	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = size
		labels.TextStyle[i].Color = annotationColor
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	return labels, nil
}

func (s *PlotSink) boardPlot(g Grid, heat bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = g.Title
	p.X.Label.Text = "Board column"
	p.Y.Label.Text = "Board row"

	rows, cols := g.Data.Dims()
	xmin, xmax := -0.5, float64(cols)-0.5
	ymin, ymax := -0.5, float64(rows)-0.5
	if s.board != nil {
		p.Add(plotter.NewImage(s.board, xmin, ymin, xmax, ymax))
	}
	if heat {
		p.Add(newHeatMap(gridXYZ{m: g.Data, blankZero: true}, 0.6))
	}
	if g.Annotate || !heat {
		labels, err := cellLabels(g, vg.Points(7))
		if err != nil {
			return nil, err
		}
		if labels != nil {
			p.Add(labels)
		}
	}
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax
	return p, nil
}

func (s *PlotSink) save(p *plot.Plot, w, h vg.Length, name string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return s.out.WriteFrom(name+".png", "png", wt)
}

func (s *PlotSink) BoardHeatmap(g Grid) error {
	p, err := s.boardPlot(g, true)
	if err != nil {
		return err
	}
	return s.save(p, s.size, s.size, g.Name)
}

func (s *PlotSink) BoardNumbers(g Grid) error {
	p, err := s.boardPlot(g, false)
	if err != nil {
		return err
	}
	return s.save(p, s.size, s.size, g.Name)
}

func (s *PlotSink) Heatmap(g Grid) error {
	p := plot.New()
	p.Title.Text = g.Title
	p.X.Label.Text = g.XLabel
	p.Y.Label.Text = g.YLabel

	p.Add(newHeatMap(gridXYZ{m: g.Data}, 1))
	labels, err := cellLabels(g, vg.Points(8))
	if err != nil {
		return err
	}
	if labels != nil {
		for i := range labels.TextStyle {
			labels.TextStyle[i].Color = color.Black
		}
		p.Add(labels)
	}
	if g.XTicks != nil {
		p.NominalX(g.XTicks...)
	}
	if g.YTicks != nil {
		p.NominalY(g.YTicks...)
	}
	return s.save(p, s.size, s.size, g.Name)
}

func (s *PlotSink) Bars(b Bars) error {
	p := plot.New()
	p.Title.Text = b.Title
	p.X.Label.Text = b.XLabel
	p.Y.Label.Text = b.YLabel

	if len(b.Values) == 0 {
		return s.save(p, 10*vg.Inch, 8*vg.Inch, b.Name)
	}

	bc, err := plotter.NewBarChart(plotter.Values(b.Values), vg.Points(18))
	if err != nil {
		return fmt.Errorf("bars %s: %w", b.Name, err)
	}
	bc.Color = barColor
	bc.LineStyle.Width = 0
	p.Add(bc)

	var xyl plotter.XYLabels
	for i, v := range b.Values {
		xyl.XYs = append(xyl.XYs, plotter.XY{X: float64(i), Y: v})
		xyl.Labels = append(xyl.Labels, b.Format(v))
	}
	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return fmt.Errorf("bars %s: %w", b.Name, err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(7)
		labels.TextStyle[i].XAlign = text.XCenter
	}
	labels.Offset = vg.Point{Y: vg.Points(2)}
	p.Add(labels)

	p.NominalX(b.Labels...)
	if len(b.Labels) > 15 {
		p.X.Tick.Label.Rotation = math.Pi / 2.5
		p.X.Tick.Label.XAlign = text.XRight
		p.X.Tick.Label.YAlign = text.YCenter
	}
	return s.save(p, 10*vg.Inch, 8*vg.Inch, b.Name)
}

// Table draws the table as text rows on a blank plot.
func (s *PlotSink) Table(t Table) error {
	p := plot.New()
	p.Title.Text = t.Title
	p.HideAxes()

	body := t.Rows
	if s.MaxTableRows > 0 && len(body) > s.MaxTableRows {
		body = body[:s.MaxTableRows]
	}
	rows := append([][]string{t.Header}, body...)
	var xyl plotter.XYLabels
	for r, row := range rows {
		for c, cell := range row {
			xyl.XYs = append(xyl.XYs, plotter.XY{X: float64(c), Y: float64(len(rows) - r)})
			xyl.Labels = append(xyl.Labels, cell)
		}
	}
	if len(xyl.XYs) > 0 {
		labels, err := plotter.NewLabels(xyl)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].Font.Size = vg.Points(9)
		}
		p.Add(labels)
	}
	p.X.Min, p.X.Max = -0.2, float64(len(t.Header))+0.5
	p.Y.Min, p.Y.Max = 0, float64(len(rows))+1
	return s.save(p, 10*vg.Inch, 10*vg.Inch, t.Name)
}

func (s *PlotSink) Close() error { return nil }
