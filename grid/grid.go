package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology reports a face-to-cell map that cannot describe a grid
var ErrInvalidTopology = errors.New("invalid grid topology")

// Grid is an unstructured polyhedral grid described by its face connectivity.
// Each face references exactly two cells; a negative index marks the exterior.
// The grid is immutable once constructed.
type Grid struct {
	NumCells int
	NumFaces int

	// FaceCells holds the two neighbours of face f at 2*f and 2*f+1
	FaceCells []int

	// Cell to face adjacency, faces of cell c are CellFaces[CellFacePos[c]:CellFacePos[c+1]]
	CellFacePos []int
	CellFaces   []int
}

// New builds a grid from the cell count and the face-to-cell map, deriving
// the per-cell face adjacency lists in ascending face order
func New(numCells int, faceCells []int) (*Grid, error) {
	if numCells <= 0 {
		return nil, fmt.Errorf("%w: cell count %d", ErrInvalidTopology, numCells)
	}
	if len(faceCells)%2 != 0 {
		return nil, fmt.Errorf("%w: face-cell map has odd length %d", ErrInvalidTopology, len(faceCells))
	}

	g := &Grid{
		NumCells:  numCells,
		NumFaces:  len(faceCells) / 2,
		FaceCells: faceCells,
	}

	// Count half-faces per cell
	g.CellFacePos = make([]int, numCells+1)
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 >= numCells || c2 >= numCells {
			return nil, fmt.Errorf("%w: face %d references cell beyond %d", ErrInvalidTopology, f, numCells-1)
		}
		if c1 < 0 && c2 < 0 {
			return nil, fmt.Errorf("%w: face %d has no valid neighbour", ErrInvalidTopology, f)
		}
		if c1 == c2 {
			return nil, fmt.Errorf("%w: face %d connects cell %d to itself", ErrInvalidTopology, f, c1)
		}
		if c1 >= 0 {
			g.CellFacePos[c1+1]++
		}
		if c2 >= 0 {
			g.CellFacePos[c2+1]++
		}
	}
	for c := 0; c < numCells; c++ {
		g.CellFacePos[c+1] += g.CellFacePos[c]
	}

	// Fill adjacency, faces visited in ascending order keep each list sorted
	g.CellFaces = make([]int, g.CellFacePos[numCells])
	next := make([]int, numCells)
	copy(next, g.CellFacePos[:numCells])
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 >= 0 {
			g.CellFaces[next[c1]] = f
			next[c1]++
		}
		if c2 >= 0 {
			g.CellFaces[next[c2]] = f
			next[c2]++
		}
	}

	return g, nil
}

// Neighbours returns the two cells adjacent to face f
func (g *Grid) Neighbours(f int) (c1, c2 int) {
	return g.FaceCells[2*f], g.FaceCells[2*f+1]
}

// IsInterior reports whether both neighbours of face f are cells
func (g *Grid) IsInterior(f int) bool {
	c1, c2 := g.Neighbours(f)
	return c1 >= 0 && c2 >= 0
}

// NumHalfFaces is the length of the cell-face adjacency, i.e. the number of
// (cell, local face) pairs on which gravity potentials are defined
func (g *Grid) NumHalfFaces() int {
	return len(g.CellFaces)
}

// Faces returns the faces of cell c
func (g *Grid) Faces(c int) []int {
	return g.CellFaces[g.CellFacePos[c]:g.CellFacePos[c+1]]
}

// BoundaryFaces lists the faces with exactly one valid neighbour
func (g *Grid) BoundaryFaces() []int {
	var faces []int
	for f := 0; f < g.NumFaces; f++ {
		if !g.IsInterior(f) {
			faces = append(faces, f)
		}
	}
	return faces
}
