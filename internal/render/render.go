// Package render turns finished grids, bar series and tables into report
// artifacts. A Sink decides colour mapping, annotation and file naming; the
// aggregation code only hands it data.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kilter.report/internal/fsutil"
	"github.com/banshee-data/kilter.report/internal/monitoring"
	"github.com/banshee-data/kilter.report/internal/security"
)

// Grid is a matrix to be drawn as a heat map or a grid of numbers.
// Row 0 is drawn at the bottom.
type Grid struct {
	// Name is the artifact file stem.
	Name  string
	Title string
	Data  mat.Matrix

	// Percent marks fractional values, shown as percentages with
	// Precision decimals. Other values are shown as integers.
	Percent   bool
	Precision int

	// Annotate writes the value into every non-zero cell.
	Annotate bool

	XLabel, YLabel string
	// XTicks and YTicks name the columns and rows; nil means numeric.
	XTicks, YTicks []string
}

// Format renders one cell value the way the grid is annotated.
func (g Grid) Format(v float64) string {
	if g.Percent {
		return fmt.Sprintf("%.*f%%", g.Precision, 100*v)
	}
	return fmt.Sprintf("%.0f", v)
}

// Bars is a labelled bar series.
type Bars struct {
	Name           string
	Title          string
	XLabel, YLabel string
	Labels         []string
	Values         []float64
	// Percent marks values already in the range 0-100.
	Percent bool
}

// Format renders one bar value.
func (b Bars) Format(v float64) string {
	if b.Percent {
		return fmt.Sprintf("%.1f%%", v)
	}
	return fmt.Sprintf("%.0f", v)
}

// Table is a titled table of preformatted cells.
type Table struct {
	Name   string
	Title  string
	Header []string
	Rows   [][]string
}

// Sink receives finished report data.
type Sink interface {
	// BoardHeatmap draws a board grid as a colour map over the board.
	BoardHeatmap(Grid) error
	// BoardNumbers draws the values of a board grid without colour.
	BoardNumbers(Grid) error
	// Heatmap draws a labelled matrix such as the grade by angle table.
	Heatmap(Grid) error
	Bars(Bars) error
	Table(Table) error
	// Close flushes anything the sink buffers.
	Close() error
}

// Artifact is one file written by a run.
type Artifact struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

// Output writes artifacts into one directory and remembers what it wrote.
type Output struct {
	fs  fsutil.FileSystem
	dir string

	// Metrics, when set, counts artifacts by kind.
	Metrics *monitoring.RunMetrics

	mu        sync.Mutex
	artifacts []Artifact
	dirs      map[string]bool
}

// NewOutput returns an Output writing below dir.
func NewOutput(fsys fsutil.FileSystem, dir string) *Output {
	return &Output{fs: fsys, dir: dir, dirs: make(map[string]bool)}
}

// Dir is the directory artifacts are written to.
func (o *Output) Dir() string { return o.dir }

// FS is the filesystem artifacts are written to.
func (o *Output) FS() fsutil.FileSystem { return o.fs }

// Write stores data as dir/name and records it under kind. name may
// contain subdirectories but must stay below dir.
func (o *Output) Write(name, kind string, data []byte) error {
	if err := security.ValidateArtifactName(name); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	path := filepath.Join(o.dir, name)
	if parent := filepath.Dir(path); !o.dirs[parent] {
		if err := o.fs.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		o.dirs[parent] = true
	}
	if err := o.fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	o.artifacts = append(o.artifacts, Artifact{Path: name, Kind: kind, Size: len(data)})
	if o.Metrics != nil {
		o.Metrics.Artifacts.WithLabelValues(kind).Inc()
	}
	monitoring.Logf("DONE: %s", path)
	return nil
}

// WriteFrom renders wt into dir/name.
func (o *Output) WriteFrom(name, kind string, wt io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return o.Write(name, kind, buf.Bytes())
}

// Artifacts lists the files written so far, in write order.
func (o *Output) Artifacts() []Artifact {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Artifact(nil), o.artifacts...)
}

// Multi fans every call out to several sinks. All sinks are called even if
// one fails; the errors are joined.
type Multi []Sink

func (m Multi) each(f func(Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := f(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) BoardHeatmap(g Grid) error {
	return m.each(func(s Sink) error { return s.BoardHeatmap(g) })
}

func (m Multi) BoardNumbers(g Grid) error {
	return m.each(func(s Sink) error { return s.BoardNumbers(g) })
}

func (m Multi) Heatmap(g Grid) error { return m.each(func(s Sink) error { return s.Heatmap(g) }) }

func (m Multi) Bars(b Bars) error { return m.each(func(s Sink) error { return s.Bars(b) }) }

func (m Multi) Table(t Table) error { return m.each(func(s Sink) error { return s.Table(t) }) }

func (m Multi) Close() error { return m.each(func(s Sink) error { return s.Close() }) }

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) BoardHeatmap(Grid) error { return nil }
func (Discard) BoardNumbers(Grid) error { return nil }
func (Discard) Heatmap(Grid) error      { return nil }
func (Discard) Bars(Bars) error         { return nil }
func (Discard) Table(Table) error       { return nil }
func (Discard) Close() error            { return nil }
