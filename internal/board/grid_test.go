package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestGaussianKernel(t *testing.T) {
	t.Parallel()

	k := gaussianKernel(2)
	assert.Len(t, k, 17)
	assert.InDelta(t, 1.0, floats.Sum(k), 1e-12)
	for i := range k {
		assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15)
	}
	assert.Equal(t, 8, floats.MaxIdx(k))
}

func TestReflect(t *testing.T) {
	t.Parallel()

	n := 4
	want := map[int]int{-3: 2, -2: 1, -1: 0, 0: 0, 3: 3, 4: 3, 5: 2, 7: 0, 8: 0}
	for in, out := range want {
		assert.Equal(t, out, reflect(in, n), "reflect(%d)", in)
	}
	assert.Equal(t, 0, reflect(5, 1))
}

func TestSmooth_SpreadsAndConservesInterior(t *testing.T) {
	t.Parallel()

	g := NewGrid()
	g.Set(19, 23, 100)

	s := Smooth(g, 2)
	r, c := s.Dims()
	assert.Equal(t, Rows, r)
	assert.Equal(t, Cols, c)

	// A spike far from the edges keeps its mass and spreads symmetrically.
	assert.InDelta(t, 100.0, mat.Sum(s), 1e-9)
	assert.Less(t, s.At(19, 23), 100.0)
	assert.Greater(t, s.At(19, 23), s.At(19, 24))
	assert.InDelta(t, s.At(19, 22), s.At(19, 24), 1e-12)
	assert.InDelta(t, s.At(18, 23), s.At(20, 23), 1e-12)
	assert.Greater(t, s.At(21, 25), 0.0)
	assert.Equal(t, 0.0, s.At(0, 0))

	// Input is not modified.
	assert.Equal(t, 100.0, g.At(19, 23))
	assert.Equal(t, 0.0, g.At(19, 24))
}

func TestSmooth_ReflectKeepsEdgeMass(t *testing.T) {
	t.Parallel()

	g := NewGrid()
	g.Set(0, 0, 10)
	s := Smooth(g, 2)
	assert.InDelta(t, 10.0, mat.Sum(s), 1e-9)
	assert.Greater(t, s.At(0, 0), s.At(1, 1))
}

func TestSmooth_Uniform(t *testing.T) {
	t.Parallel()

	g := NewGrid()
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			g.Set(r, c, 3)
		}
	}
	s := Smooth(g, 2)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			assert.InDelta(t, 3.0, s.At(r, c), 1e-9)
		}
	}
}

func TestSmooth_ZeroSigmaCopies(t *testing.T) {
	t.Parallel()

	g := NewGrid()
	g.Set(1, 1, 5)
	s := Smooth(g, 0)
	assert.True(t, mat.Equal(g, s))
	s.Set(1, 1, 6)
	assert.Equal(t, 5.0, g.At(1, 1))
}
