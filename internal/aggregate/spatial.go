// Package aggregate accumulates decoded hold uses into per-role board grids.
//
// Every climb is decoded, each hold use resolved to its physical hold
// through the layout, classified by role and mapped onto the board grid.
// Holds that land outside the plotted grid still count toward the role
// total, so for each role:
//
//	sum(Counts(role)) + OutOfBounds(role) == Total(role)
package aggregate

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/holds"
	"github.com/banshee-data/kilter.report/internal/monitoring"
)

// Climb is one climb record as read from the snapshot. Difficulty, Angle
// and Ascents are only populated for the stratified pass.
type Climb struct {
	UUID       string
	Frames     string
	Difficulty float64
	Angle      int
	Ascents    int
}

// HoldUsage is the per-hold summary row for one role. PlacementID and
// RoleCode are taken from the first use seen.
type HoldUsage struct {
	HoldID      int    `json:"hold_id"`
	PlacementID int    `json:"placement_id"`
	RoleCode    string `json:"hold_role"`
	Col         int    `json:"x"`
	Row         int    `json:"y"`
	InGrid      bool   `json:"in_grid"`
	Count       int    `json:"count"`
}

type roleState struct {
	counts      *mat.Dense
	total       int
	outOfBounds int
	holds       map[int]*HoldUsage
}

// Spatial accumulates hold uses of climbs into one counts grid per role.
type Spatial struct {
	layout *board.Layout
	roles  map[holds.Role]*roleState

	// Climbs is the number of climbs added.
	Climbs int
	// UnknownRoles counts hold uses whose role code matched no role.
	UnknownRoles int

	// Metrics, when set, receives hold-use counters as climbs are added.
	Metrics *monitoring.RunMetrics
}

// NewSpatial returns an empty aggregator resolving placements through l.
func NewSpatial(l *board.Layout) *Spatial {
	s := &Spatial{
		layout: l,
		roles:  make(map[holds.Role]*roleState, len(holds.Roles)),
	}
	for _, r := range holds.Roles {
		s.roles[r] = &roleState{
			counts: board.NewGrid(),
			holds:  make(map[int]*HoldUsage),
		}
	}
	return s
}

// Add decodes and accumulates one climb. Decode and referential errors are
// returned wrapped with the climb uuid; the grids may already hold the uses
// that preceded the failing one, so the caller should abandon the run.
func (s *Spatial) Add(c Climb) error {
	uses, err := holds.Decode(c.Frames)
	if err != nil {
		return fmt.Errorf("climb %s: %w", c.UUID, err)
	}
	s.Climbs++
	if s.Metrics != nil {
		s.Metrics.ClimbsDecoded.Inc()
	}

	for _, u := range uses {
		hold, err := s.layout.Resolve(u.PlacementID)
		if err != nil {
			return fmt.Errorf("climb %s: %w", c.UUID, err)
		}

		role := holds.Classify(u.RoleCode)
		if role == holds.Unknown {
			s.UnknownRoles++
			if s.Metrics != nil {
				s.Metrics.UnknownRoles.Inc()
			}
			monitoring.Logger().Warn().
				Str("climb", c.UUID).
				Int("placement", u.PlacementID).
				Str("role_code", u.RoleCode).
				Msg("unknown hold role")
			continue
		}

		st := s.roles[role]
		st.total++
		cell, inGrid := hold.Cell()
		if inGrid {
			board.Add(st.counts, cell, 1)
		} else {
			st.outOfBounds++
		}

		if h, ok := st.holds[hold.ID]; ok {
			h.Count++
		} else {
			st.holds[hold.ID] = &HoldUsage{
				HoldID:      hold.ID,
				PlacementID: u.PlacementID,
				RoleCode:    u.RoleCode,
				Col:         cell.Col,
				Row:         cell.Row,
				InGrid:      inGrid,
				Count:       1,
			}
		}

		if s.Metrics != nil {
			s.Metrics.HoldUses.WithLabelValues(role.String()).Inc()
			if !inGrid {
				s.Metrics.OutOfBounds.WithLabelValues(role.String()).Inc()
			}
		}
	}
	return nil
}

// AddAll adds climbs in order, stopping at the first error.
func (s *Spatial) AddAll(climbs []Climb) error {
	for _, c := range climbs {
		if err := s.Add(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spatial) state(r holds.Role) *roleState {
	st, ok := s.roles[r]
	if !ok {
		panic(fmt.Sprintf("aggregate: no grid for role %v", r))
	}
	return st
}

// Counts returns a copy of the in-grid counts for role r.
func (s *Spatial) Counts(r holds.Role) *mat.Dense {
	return mat.DenseCopyOf(s.state(r).counts)
}

// Total is the number of uses of role r, in or out of the grid.
func (s *Spatial) Total(r holds.Role) int { return s.state(r).total }

// OutOfBounds is the number of uses of role r that fell outside the grid.
func (s *Spatial) OutOfBounds(r holds.Role) int { return s.state(r).outOfBounds }

// Percent returns the counts of role r divided by the role total. The grid
// is all zero when the role was never used.
func (s *Spatial) Percent(r holds.Role) *mat.Dense {
	st := s.state(r)
	return board.Scale(st.counts, float64(st.total))
}

// Smoothed returns the Gaussian-smoothed counts of role r.
func (s *Spatial) Smoothed(r holds.Role, sigma float64) *mat.Dense {
	return board.Smooth(s.state(r).counts, sigma)
}

// HoldSummary lists every distinct hold used in role r, most used first.
// Ties are ordered by hold id.
func (s *Spatial) HoldSummary(r holds.Role) []HoldUsage {
	st := s.state(r)
	out := make([]HoldUsage, 0, len(st.holds))
	for _, h := range st.holds {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].HoldID < out[j].HoldID
	})
	return out
}
