package grid

import "fmt"

// HalfFaceGravity returns the gravity potential difference between each
// cell centre and the centroid of each of its faces, rho*g*(zface - zcell),
// laid out in the same order as CellFaces
func HalfFaceGravity(g *Grid, cellDepth, faceDepth []float64, density, gravity float64) ([]float64, error) {
	if len(cellDepth) != g.NumCells {
		return nil, fmt.Errorf("cell depth length %d does not match %d cells", len(cellDepth), g.NumCells)
	}
	if len(faceDepth) != g.NumFaces {
		return nil, fmt.Errorf("face depth length %d does not match %d faces", len(faceDepth), g.NumFaces)
	}

	gpress := make([]float64, g.NumHalfFaces())
	for c := 0; c < g.NumCells; c++ {
		for i := g.CellFacePos[c]; i < g.CellFacePos[c+1]; i++ {
			f := g.CellFaces[i]
			gpress[i] = density * gravity * (faceDepth[f] - cellDepth[c])
		}
	}
	return gpress, nil
}
