package board

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NewGrid allocates a zeroed Rows x Cols grid.
func NewGrid() *mat.Dense {
	return mat.NewDense(Rows, Cols, nil)
}

// Add increments a grid cell by v. Cells outside the grid are ignored and
// reported with false.
func Add(g *mat.Dense, c Cell, v float64) bool {
	if !c.InGrid() {
		return false
	}
	g.Set(c.Row, c.Col, g.At(c.Row, c.Col)+v)
	return true
}

// Scale returns g / total, or a zero grid when total is zero.
func Scale(g mat.Matrix, total float64) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(r, c, nil)
	if total == 0 {
		return out
	}
	out.Scale(1/total, g)
	return out
}

// gaussianTruncate matches the common ndimage default: the kernel extends
// to 4 standard deviations.
const gaussianTruncate = 4.0

// Smooth applies a separable Gaussian filter with standard deviation sigma
// over every cell of g, zeros included. Edges use reflect padding
// (d c b a | a b c d | d c b a). A non-positive sigma returns a copy.
func Smooth(g mat.Matrix, sigma float64) *mat.Dense {
	rows, cols := g.Dims()
	out := mat.DenseCopyOf(g)
	if sigma <= 0 {
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := mat.NewDense(rows, cols, nil)
	line := make([]float64, 0, max(rows, cols))

	// Along columns (within each row).
	for r := 0; r < rows; r++ {
		line = line[:0]
		for c := 0; c < cols; c++ {
			line = append(line, out.At(r, c))
		}
		for c := 0; c < cols; c++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * line[reflect(c+k, cols)]
			}
			tmp.Set(r, c, acc)
		}
	}

	// Along rows (within each column).
	for c := 0; c < cols; c++ {
		line = line[:0]
		for r := 0; r < rows; r++ {
			line = append(line, tmp.At(r, c))
		}
		for r := 0; r < rows; r++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * line[reflect(r+k, rows)]
			}
			out.Set(r, c, acc)
		}
	}

	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		k[i+radius] = math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// reflect folds an out-of-range index back into [0, n) with the edge
// sample repeated.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// IdentityGrids returns two grids holding, per cell, the id of the catalog
// hold mapped there and the id of the layout placement occupying that hold.
// Cells with no hold stay zero. When holds collide on one cell the one with
// the highest id wins.
func IdentityGrids(l *Layout) (holdIDs, placementIDs *mat.Dense) {
	holdIDs = NewGrid()
	placementIDs = NewGrid()
	for _, h := range l.Holds() {
		c, ok := h.Cell()
		if !ok {
			continue
		}
		holdIDs.Set(c.Row, c.Col, float64(h.ID))
		if pid, ok := l.PlacementFor(h.ID); ok {
			placementIDs.Set(c.Row, c.Col, float64(pid))
		}
	}
	return holdIDs, placementIDs
}
