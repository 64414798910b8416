// Package crosstab aggregates climb statistics into the fixed grade by
// board-angle tables used by the report.
package crosstab

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// NumGrades is the number of grade buckets (4a/V0 through 8c+/V16).
	NumGrades = 24
	// NumAngles is the number of 5 degree angle buckets over 0-70 degrees.
	NumAngles = 15

	// difficultyOffset maps the stored difficulty scale onto grade bucket 0.
	difficultyOffset = 10
	angleBucketWidth = 5
)

// GradeLabels names each grade bucket as font/V-scale or French/YDS.
var GradeLabels = [NumGrades]string{
	"4a/V0 or 5b/5.9", "4b/V0 or 5c/5.10a", "4c/V0 or 6a/5.10b", "5a/V1 or 6a+/5.10c",
	"5b/V1 or 6b/5.10d", "5c/V2 or 6b+/5.11a", "6a/V3 or 6c/5.11b", "6a+/V3 or 6c+/5.11c",
	"6b/V4 or 7a/5.11d", "6b+/V4 or 7a+/5.12a", "6c/V5 or 7b/5.12b", "6c+/V5 or 7b+/5.12c",
	"7a/V6 or 7c/5.12d", "7a+/V7 or 7c+/5.13a", "7b/V8 or 8a/5.13b", "7b+/V8 or 8a+/5.13c",
	"7c/V9 or 8b/5.13d", "7c+/V10 or 8b+/5.14a", "8a/V11 or 8c/5.14b", "8a+/V12 or 8c+/5.14c",
	"8b/V13 or 9a/5.14d", "8b+/V14 or 9a+/5.15a", "8c/V15 or 9b/5.15b", "8c+/V16 or 9b+/5.15c",
}

// AngleLabels names each angle bucket by its lower bound.
var AngleLabels = func() [NumAngles]string {
	var out [NumAngles]string
	for i := range out {
		out[i] = fmt.Sprintf("%d°", i*angleBucketWidth)
	}
	return out
}()

// RangeError reports a difficulty or angle that falls outside the table.
type RangeError struct {
	Field string
	Value float64
	Index int
	Limit int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g maps to index %d, outside [0, %d)", e.Field, e.Value, e.Index, e.Limit)
}

// GradeIndex maps a stored difficulty onto a grade bucket. Fractional
// difficulties are truncated toward zero.
func GradeIndex(difficulty float64) (int, error) {
	if math.IsNaN(difficulty) || math.IsInf(difficulty, 0) {
		return -1, &RangeError{Field: "difficulty", Value: difficulty, Index: -1, Limit: NumGrades}
	}
	idx := int(math.Trunc(difficulty)) - difficultyOffset
	if idx < 0 || idx >= NumGrades {
		return idx, &RangeError{Field: "difficulty", Value: difficulty, Index: idx, Limit: NumGrades}
	}
	return idx, nil
}

// AngleIndex maps a board angle in degrees onto its 5 degree bucket.
func AngleIndex(degrees int) (int, error) {
	idx := int(math.Floor(float64(degrees) / angleBucketWidth))
	if idx < 0 || idx >= NumAngles {
		return idx, &RangeError{Field: "angle", Value: float64(degrees), Index: idx, Limit: NumAngles}
	}
	return idx, nil
}

// Stat is one row of climb statistics: a climb at one board angle.
type Stat struct {
	ClimbUUID  string
	Angle      int
	Difficulty float64
	Ascents    int
}

// Tabulator accumulates Stats into grade x angle tables. Rejected rows are
// counted but excluded from every table and total.
type Tabulator struct {
	climbs  *mat.Dense
	ascents *mat.Dense

	TotalClimbs  int
	TotalAscents int
	Rejected     int
}

// New returns an empty Tabulator.
func New() *Tabulator {
	return &Tabulator{
		climbs:  mat.NewDense(NumGrades, NumAngles, nil),
		ascents: mat.NewDense(NumGrades, NumAngles, nil),
	}
}

// Add records one row. An out-of-range difficulty or angle returns a
// *RangeError and leaves the tables unchanged.
func (t *Tabulator) Add(s Stat) error {
	g, err := GradeIndex(s.Difficulty)
	if err != nil {
		t.Rejected++
		return fmt.Errorf("climb %s: %w", s.ClimbUUID, err)
	}
	a, err := AngleIndex(s.Angle)
	if err != nil {
		t.Rejected++
		return fmt.Errorf("climb %s: %w", s.ClimbUUID, err)
	}

	t.climbs.Set(g, a, t.climbs.At(g, a)+1)
	t.ascents.Set(g, a, t.ascents.At(g, a)+float64(s.Ascents))
	t.TotalClimbs++
	t.TotalAscents += s.Ascents
	return nil
}

// Climbs returns the climb-count table (rows: grade, columns: angle).
func (t *Tabulator) Climbs() *mat.Dense { return mat.DenseCopyOf(t.climbs) }

// Ascents returns the ascent-weighted table.
func (t *Tabulator) Ascents() *mat.Dense { return mat.DenseCopyOf(t.ascents) }

// ClimbShare divides every cell by the total number of climbs. This is a
// global share, not a per-row or per-column distribution.
func (t *Tabulator) ClimbShare() *mat.Dense { return share(t.climbs, t.TotalClimbs) }

// AscentShare divides every cell by the total number of ascents.
func (t *Tabulator) AscentShare() *mat.Dense { return share(t.ascents, t.TotalAscents) }

func share(m *mat.Dense, total int) *mat.Dense {
	out := mat.NewDense(NumGrades, NumAngles, nil)
	if total == 0 {
		return out
	}
	out.Scale(1/float64(total), m)
	return out
}

// Marginals are the per-grade and per-angle histograms derived from the
// tables. Percent values are in the range 0-100.
type Marginals struct {
	ClimbsByGrade         []float64
	AscentsByGrade        []float64
	ClimbsByAngle         []float64
	AscentsByAngle        []float64
	ClimbsByGradePercent  []float64
	AscentsByGradePercent []float64
	ClimbsByAnglePercent  []float64
	AscentsByAnglePercent []float64
}

// Marginals sums the tables along each axis.
func (t *Tabulator) Marginals() Marginals {
	m := Marginals{
		ClimbsByGrade:  rowSums(t.climbs),
		AscentsByGrade: rowSums(t.ascents),
		ClimbsByAngle:  colSums(t.climbs),
		AscentsByAngle: colSums(t.ascents),
	}
	m.ClimbsByGradePercent = percent(m.ClimbsByGrade, t.TotalClimbs)
	m.AscentsByGradePercent = percent(m.AscentsByGrade, t.TotalAscents)
	m.ClimbsByAnglePercent = percent(m.ClimbsByAngle, t.TotalClimbs)
	m.AscentsByAnglePercent = percent(m.AscentsByAngle, t.TotalAscents)
	return m
}

func rowSums(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = floats.Sum(m.RawRowView(i))
	}
	return out
}

func colSums(m *mat.Dense) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = mat.Sum(m.ColView(j))
	}
	return out
}

func percent(v []float64, total int) []float64 {
	out := make([]float64, len(v))
	if total == 0 {
		return out
	}
	floats.ScaleTo(out, 100/float64(total), v)
	return out
}
