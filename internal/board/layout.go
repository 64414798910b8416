package board

import (
	"fmt"
	"sort"
)

// Hold is one entry of the physical hold catalog ("holes" table).
type Hold struct {
	ID int
	X  int
	Y  int
}

// Cell returns the hold's board cell and whether it lies inside the grid.
func (h Hold) Cell() (Cell, bool) {
	return MapPosition(h.X, h.Y)
}

// Placement links a layout-specific slot to the hold it occupies.
type Placement struct {
	ID     int
	HoldID int
}

// ReferentialError reports a placement or hold id that has no matching
// catalog entry. It indicates a mismatch between layout and climb data.
type ReferentialError struct {
	PlacementID int
	HoldID      int
	Reason      string
}

func (e *ReferentialError) Error() string {
	if e.HoldID != 0 {
		return fmt.Sprintf("placement %d: %s (hold %d)", e.PlacementID, e.Reason, e.HoldID)
	}
	return fmt.Sprintf("placement %d: %s", e.PlacementID, e.Reason)
}

// Layout resolves placements of one board layout to catalog holds. It is
// built once and is read-only afterwards.
type Layout struct {
	holds      map[int]Hold
	placements map[int]int
	byHold     map[int]int
}

// NewLayout indexes the hold catalog and the placements of one layout.
// Duplicate ids in either table are rejected. Placements are checked
// lazily by Resolve so that an unused dangling placement does not abort a
// report.
func NewLayout(catalog []Hold, placements []Placement) (*Layout, error) {
	l := &Layout{
		holds:      make(map[int]Hold, len(catalog)),
		placements: make(map[int]int, len(placements)),
		byHold:     make(map[int]int, len(placements)),
	}
	for _, h := range catalog {
		if _, dup := l.holds[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hold id %d in catalog", h.ID)
		}
		l.holds[h.ID] = h
	}
	for _, p := range placements {
		if _, dup := l.placements[p.ID]; dup {
			return nil, fmt.Errorf("duplicate placement id %d in layout", p.ID)
		}
		l.placements[p.ID] = p.HoldID
		l.byHold[p.HoldID] = p.ID
	}
	return l, nil
}

// Resolve returns the hold that a placement occupies.
func (l *Layout) Resolve(placementID int) (Hold, error) {
	holdID, ok := l.placements[placementID]
	if !ok {
		return Hold{}, &ReferentialError{PlacementID: placementID, Reason: "unknown placement"}
	}
	h, ok := l.holds[holdID]
	if !ok {
		return Hold{}, &ReferentialError{PlacementID: placementID, HoldID: holdID, Reason: "placement references missing hold"}
	}
	return h, nil
}

// PlacementFor returns the placement id that occupies a hold in this layout.
func (l *Layout) PlacementFor(holdID int) (int, bool) {
	id, ok := l.byHold[holdID]
	return id, ok
}

// Holds returns the catalog sorted by hold id.
func (l *Layout) Holds() []Hold {
	out := make([]Hold, 0, len(l.holds))
	for _, h := range l.holds {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NumHolds and NumPlacements report the table sizes.
func (l *Layout) NumHolds() int      { return len(l.holds) }
func (l *Layout) NumPlacements() int { return len(l.placements) }
