package aggregate

import (
	"fmt"
	"sort"

	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/crosstab"
	"github.com/banshee-data/kilter.report/internal/monitoring"
)

// Stratum identifies one grade bucket at one angle bucket.
type Stratum struct {
	Grade int
	Angle int
}

// Label names the stratum by its grade and angle labels.
func (s Stratum) Label() string {
	return fmt.Sprintf("%s @ %s", crosstab.GradeLabels[s.Grade], crosstab.AngleLabels[s.Angle])
}

// Stratified runs the spatial aggregation separately for every
// (grade, angle) stratum. Only strata that receive a climb are allocated.
type Stratified struct {
	layout *board.Layout
	strata map[Stratum]*Spatial

	// Rejected counts records whose grade or angle falls outside the tables.
	Rejected int
}

// NewStratified returns an empty stratified aggregator.
func NewStratified(l *board.Layout) *Stratified {
	return &Stratified{
		layout: l,
		strata: make(map[Stratum]*Spatial),
	}
}

// Add accumulates c into its stratum. A record outside the grade or angle
// range is counted in Rejected and its *crosstab.RangeError returned; the
// caller may continue. Decode and referential errors are returned as from
// Spatial.Add.
func (st *Stratified) Add(c Climb) error {
	g, err := crosstab.GradeIndex(c.Difficulty)
	if err != nil {
		st.Rejected++
		return fmt.Errorf("climb %s: %w", c.UUID, err)
	}
	a, err := crosstab.AngleIndex(c.Angle)
	if err != nil {
		st.Rejected++
		return fmt.Errorf("climb %s: %w", c.UUID, err)
	}

	key := Stratum{Grade: g, Angle: a}
	sp, ok := st.strata[key]
	if !ok {
		sp = NewSpatial(st.layout)
		st.strata[key] = sp
		monitoring.Logf("allocated stratum %s", key.Label())
	}
	return sp.Add(c)
}

// Strata lists the populated strata ordered by grade then angle.
func (st *Stratified) Strata() []Stratum {
	out := make([]Stratum, 0, len(st.strata))
	for k := range st.strata {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Grade != out[j].Grade {
			return out[i].Grade < out[j].Grade
		}
		return out[i].Angle < out[j].Angle
	})
	return out
}

// Get returns the aggregator of one stratum, or nil if it is empty.
func (st *Stratified) Get(s Stratum) *Spatial {
	return st.strata[s]
}
