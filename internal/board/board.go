// Package board maps physical hold positions on the Kilter Board onto the
// fixed 38 x 47 grid used by the report heat maps, and resolves layout
// placements to the holds they occupy.
package board

import "fmt"

const (
	// Rows and Cols are the dimensions of the plotted board grid.
	Rows = 38
	Cols = 47

	// cellSize is the spacing of the hole pattern in raw catalog units.
	cellSize = 4
	colShift = 5
	rowShift = -1
)

// Cell is a (row, column) position on the board grid. Row 0 is the bottom
// of the board.
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// InGrid reports whether the cell can be written into a Rows x Cols grid.
// Both bounds are strict, so a cell at exactly Rows or Cols is outside.
func (c Cell) InGrid() bool {
	return c.Row >= 0 && c.Row < Rows && c.Col >= 0 && c.Col < Cols
}

// MapPosition converts a raw catalog position into a board cell:
// col = floor(x/4) + 5, row = floor(y/4) - 1. The cell is returned even
// when it falls outside the grid; ok reports whether it is inside.
func MapPosition(x, y int) (cell Cell, ok bool) {
	cell = Cell{
		Row: floorDiv(y, cellSize) + rowShift,
		Col: floorDiv(x, cellSize) + colShift,
	}
	return cell, cell.InGrid()
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
