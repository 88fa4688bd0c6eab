package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCellFaces(t *testing.T) {
	// Three cells in a row with exterior faces on both ends
	//   f0: ext|0  f1: 0|1  f2: 1|2  f3: 2|ext
	g, err := New(3, []int{-1, 0, 0, 1, 1, 2, 2, -1})
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumFaces)
	assert.Equal(t, []int{0, 2, 4, 6}, g.CellFacePos)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 3}, g.CellFaces)
	assert.Equal(t, []int{1, 2}, g.Faces(1))
	assert.Equal(t, []int{0, 3}, g.BoundaryFaces())
	assert.True(t, g.IsInterior(1))
	assert.False(t, g.IsInterior(3))
	assert.Equal(t, 6, g.NumHalfFaces())
}

func TestNewRejectsMalformedTopology(t *testing.T) {
	cases := map[string][]int{
		"odd length":     {0, 1, 2},
		"both exterior":  {-1, -1},
		"self loop":      {0, 0},
		"out of range":   {0, 5},
		"negative cells": nil,
	}
	for name, fc := range cases {
		n := 2
		if name == "negative cells" {
			n = 0
		}
		_, err := New(n, fc)
		if !errors.Is(err, ErrInvalidTopology) {
			t.Errorf("%s: expected ErrInvalidTopology, got %v", name, err)
		}
	}
}

func TestPerforations(t *testing.T) {
	p, err := NewPerforations([][]int{{0, 2}, {1}}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, p.NumWells())
	assert.Equal(t, 3, p.NumPerforations())
	assert.Equal(t, []int{0, 2}, p.WellCells(0))
	assert.Equal(t, []int{1}, p.WellCells(1))

	_, err = NewPerforations([][]int{{3}}, 3)
	assert.Error(t, err)
	_, err = NewPerforations([][]int{{}}, 3)
	assert.Error(t, err)

	var none *Perforations
	assert.Equal(t, 0, none.NumWells())
}

func TestCartesianConnectivity(t *testing.T) {
	cg, err := NewCartesian(3, 2, 2, 10, 20, 5)
	require.NoError(t, err)

	assert.Equal(t, 12, cg.NumCells)
	assert.Equal(t, 4*2*2+3*3*2+3*2*3, cg.NumFaces)

	// Every cell of a hexahedral grid has six faces
	for c := 0; c < cg.NumCells; c++ {
		assert.Len(t, cg.Faces(c), 6, "cell %d", c)
	}

	i, j, k := cg.CellIJK(cg.CellIndex(2, 1, 1))
	assert.Equal(t, [3]int{2, 1, 1}, [3]int{i, j, k})

	assert.True(t, cg.IsCartesianNeighbour(0, 1))
	assert.True(t, cg.IsCartesianNeighbour(0, 3))
	assert.True(t, cg.IsCartesianNeighbour(0, 6))
	assert.False(t, cg.IsCartesianNeighbour(0, 4))

	// Interior face count matches the structured formula
	interior := 0
	for f := 0; f < cg.NumFaces; f++ {
		if cg.IsInterior(f) {
			interior++
		}
	}
	assert.Equal(t, 2*2*2+3*1*2+3*2*1, interior)
}

func TestCartesianTransmissibility(t *testing.T) {
	cg, err := NewCartesian(2, 1, 1, 2, 1, 1)
	require.NoError(t, err)

	trans, err := cg.Transmissibility([]float64{1, 3})
	require.NoError(t, err)

	// Half transmissibilities k*A/(dx/2): 1 and 3, harmonic sum 0.75
	for f := 0; f < cg.NumFaces; f++ {
		if cg.FaceDirection(f) != XDir {
			continue
		}
		c1, c2 := cg.Neighbours(f)
		switch {
		case c1 == 0 && c2 == 1:
			assert.InDelta(t, 0.75, trans[f], 1e-14)
		case c1 == -1:
			assert.InDelta(t, 1.0, trans[f], 1e-14)
		case c2 == -1:
			assert.InDelta(t, 3.0, trans[f], 1e-14)
		}
	}

	_, err = cg.Transmissibility([]float64{1})
	assert.Error(t, err)
}

func TestHalfFaceGravity(t *testing.T) {
	cg, err := NewCartesian(1, 1, 2, 1, 1, 10)
	require.NoError(t, err)

	gpress, err := HalfFaceGravity(cg.Grid, cg.CellDepths(), cg.FaceDepths(), 1000, 9.81)
	require.NoError(t, err)
	require.Len(t, gpress, cg.NumHalfFaces())

	// The face shared by the two cells lies 5 below the upper cell centre and
	// 5 above the lower one
	for c := 0; c < cg.NumCells; c++ {
		for i := cg.CellFacePos[c]; i < cg.CellFacePos[c+1]; i++ {
			f := cg.CellFaces[i]
			if !cg.IsInterior(f) || cg.FaceDirection(f) != ZDir {
				continue
			}
			want := 1000 * 9.81 * 5.0
			if c == 1 {
				want = -want
			}
			assert.InDelta(t, want, gpress[i], 1e-9)
		}
	}
}

func TestWithNNCs(t *testing.T) {
	cg, err := NewCartesian(3, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	trans := make([]float64, cg.NumFaces)

	g, tr, err := WithNNCs(cg.Grid, trans, []NNC{{Cell1: 0, Cell2: 2, Trans: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, cg.NumFaces+1, g.NumFaces)
	assert.Equal(t, 0.5, tr[len(tr)-1])
	c1, c2 := g.Neighbours(g.NumFaces - 1)
	assert.Equal(t, [2]int{0, 2}, [2]int{c1, c2})

	_, _, err = WithNNCs(cg.Grid, trans, []NNC{{Cell1: 0, Cell2: 9}})
	assert.Error(t, err)
}

func TestExportNNCsThresholds(t *testing.T) {
	cg, err := NewCartesian(4, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	trans := make([]float64, cg.NumFaces)
	for i := range trans {
		trans[i] = 1
	}

	input := []NNC{
		{Cell1: 0, Cell2: 2, Trans: 5.0e-7}, // explicit, below 1e-6: dropped
		{Cell1: 1, Cell2: 3, Trans: 2.0e-6}, // explicit, kept
		{Cell1: 0, Cell2: 1, Trans: 9.0},    // Cartesian neighbours: ignored
	}
	// Faces for the explicit NNCs plus a purely computed one between 0 and 3
	// whose value sits between the two thresholds
	g, tr, err := WithNNCs(cg.Grid, trans, []NNC{
		{Cell1: 0, Cell2: 2, Trans: 5.0e-7},
		{Cell1: 1, Cell2: 3, Trans: 2.0e-6},
		{Cell1: 0, Cell2: 3, Trans: 1.0e-9},
	})
	require.NoError(t, err)

	out := ExportNNCs(cg, g, tr, input)
	assert.Equal(t, []NNC{
		{Cell1: 1, Cell2: 3, Trans: 2.0e-6},
		{Cell1: 0, Cell2: 3, Trans: 1.0e-9},
	}, out)
}

func TestExportNNCsNetOfExplicit(t *testing.T) {
	cg, err := NewCartesian(3, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	trans := make([]float64, cg.NumFaces)

	// Two faces between 0 and 2: explicit 1.0 and an additional computed 1e-13.
	// The remainder after removing the explicit value is below 1e-12.
	g, tr, err := WithNNCs(cg.Grid, trans, []NNC{
		{Cell1: 0, Cell2: 2, Trans: 1.0},
		{Cell1: 0, Cell2: 2, Trans: 1.0e-13},
	})
	require.NoError(t, err)

	out := ExportNNCs(cg, g, tr, []NNC{{Cell1: 2, Cell2: 0, Trans: 1.0}})
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Cell1)
	assert.Equal(t, 2, out[0].Cell2)
	assert.InDelta(t, 1.0+1.0e-13, out[0].Trans, 1e-15)
}
