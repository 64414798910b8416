package render

import (
	"bytes"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// TextSink writes ASCII tables. Matrices with tick labels and bar series are
// written as tables too; board grids are not.
type TextSink struct {
	out *Output
}

// NewTextSink returns a sink writing .txt tables.
func NewTextSink(out *Output) *TextSink {
	return &TextSink{out: out}
}

// FormatTable renders t as an ASCII table.
func FormatTable(t Table) []byte {
	var buf bytes.Buffer
	if t.Title != "" {
		buf.WriteString(t.Title)
		buf.WriteByte('\n')
	}
	tw := tablewriter.NewWriter(&buf)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(t.Header)
	tw.AppendBulk(t.Rows)
	tw.Render()
	return buf.Bytes()
}

func (s *TextSink) Table(t Table) error {
	return s.out.Write(t.Name+".txt", "text", FormatTable(t))
}

func (s *TextSink) Heatmap(g Grid) error {
	rows, cols := g.Data.Dims()
	t := Table{Name: g.Name, Title: g.Title}
	t.Header = append([]string{g.YLabel + " \\ " + g.XLabel}, axisTicks(g.XTicks, cols)...)
	yTicks := axisTicks(g.YTicks, rows)
	for r := 0; r < rows; r++ {
		row := make([]string, 0, cols+1)
		row = append(row, yTicks[r])
		for c := 0; c < cols; c++ {
			row = append(row, g.Format(g.Data.At(r, c)))
		}
		t.Rows = append(t.Rows, row)
	}
	return s.Table(t)
}

func (s *TextSink) Bars(b Bars) error {
	t := Table{Name: b.Name, Title: b.Title, Header: []string{"#", b.XLabel, b.YLabel}}
	for i, v := range b.Values {
		label := ""
		if i < len(b.Labels) {
			label = b.Labels[i]
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), label, b.Format(v)})
	}
	return s.Table(t)
}

func (s *TextSink) BoardHeatmap(Grid) error { return nil }
func (s *TextSink) BoardNumbers(Grid) error { return nil }
func (s *TextSink) Close() error            { return nil }
