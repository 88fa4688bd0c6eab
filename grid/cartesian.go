package grid

import "fmt"

// Direction is the Cartesian axis a face is normal to
type Direction uint8

const (
	XDir Direction = iota
	YDir
	ZDir
)

func (d Direction) String() string {
	switch d {
	case XDir:
		return "X"
	case YDir:
		return "Y"
	case ZDir:
		return "Z"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Cartesian is a logically Cartesian block grid, cells numbered with i
// fastest and k (depth, increasing downwards) slowest. Faces are numbered
// all X faces first, then Y, then Z; boundary faces are included with the
// missing neighbour set to -1.
type Cartesian struct {
	*Grid
	Nx, Ny, Nz int
	Dx, Dy, Dz float64

	faceDir []Direction
}

// NewCartesian builds an nx by ny by nz block grid with uniform spacing
func NewCartesian(nx, ny, nz int, dx, dy, dz float64) (*Cartesian, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid dimensions: nx=%d, ny=%d, nz=%d", nx, ny, nz)
	}
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("invalid spacing: dx=%g, dy=%g, dz=%g", dx, dy, dz)
	}

	cg := &Cartesian{Nx: nx, Ny: ny, Nz: nz, Dx: dx, Dy: dy, Dz: dz}

	numFaces := (nx+1)*ny*nz + nx*(ny+1)*nz + nx*ny*(nz+1)
	faceCells := make([]int, 0, 2*numFaces)
	cg.faceDir = make([]Direction, 0, numFaces)

	cell := func(i, j, k int) int {
		if i < 0 || i >= nx || j < 0 || j >= ny || k < 0 || k >= nz {
			return -1
		}
		return cg.CellIndex(i, j, k)
	}

	// X faces
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i <= nx; i++ {
				faceCells = append(faceCells, cell(i-1, j, k), cell(i, j, k))
				cg.faceDir = append(cg.faceDir, XDir)
			}
		}
	}
	// Y faces
	for k := 0; k < nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i < nx; i++ {
				faceCells = append(faceCells, cell(i, j-1, k), cell(i, j, k))
				cg.faceDir = append(cg.faceDir, YDir)
			}
		}
	}
	// Z faces
	for k := 0; k <= nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				faceCells = append(faceCells, cell(i, j, k-1), cell(i, j, k))
				cg.faceDir = append(cg.faceDir, ZDir)
			}
		}
	}

	g, err := New(nx*ny*nz, faceCells)
	if err != nil {
		return nil, err
	}
	cg.Grid = g
	return cg, nil
}

// CellIndex returns the linear index of cell (i,j,k)
func (cg *Cartesian) CellIndex(i, j, k int) int {
	return i + cg.Nx*(j+cg.Ny*k)
}

// CellIJK returns the logical coordinates of cell c
func (cg *Cartesian) CellIJK(c int) (i, j, k int) {
	i = c % cg.Nx
	j = (c / cg.Nx) % cg.Ny
	k = c / (cg.Nx * cg.Ny)
	return
}

// FaceDirection returns the axis face f is normal to
func (cg *Cartesian) FaceDirection(f int) Direction {
	return cg.faceDir[f]
}

// IsCartesianNeighbour reports whether two cell indices, c1 < c2, are
// adjacent in the i, j or k direction of the logical index space
func (cg *Cartesian) IsCartesianNeighbour(c1, c2 int) bool {
	diff := c2 - c1
	return diff == 1 || diff == cg.Nx || diff == cg.Nx*cg.Ny
}

func (cg *Cartesian) faceArea(d Direction) float64 {
	switch d {
	case XDir:
		return cg.Dy * cg.Dz
	case YDir:
		return cg.Dx * cg.Dz
	}
	return cg.Dx * cg.Dy
}

func (cg *Cartesian) spacing(d Direction) float64 {
	switch d {
	case XDir:
		return cg.Dx
	case YDir:
		return cg.Dy
	}
	return cg.Dz
}

// Transmissibility computes two-point transmissibilities from an isotropic
// cell permeability field. Interior faces use the harmonic average of the
// two half transmissibilities, boundary faces carry the single half
// transmissibility of their interior cell.
func (cg *Cartesian) Transmissibility(perm []float64) ([]float64, error) {
	if len(perm) != cg.NumCells {
		return nil, fmt.Errorf("permeability length %d does not match %d cells", len(perm), cg.NumCells)
	}

	trans := make([]float64, cg.NumFaces)
	for f := 0; f < cg.NumFaces; f++ {
		d := cg.faceDir[f]
		area := cg.faceArea(d)
		half := 0.5 * cg.spacing(d)

		c1, c2 := cg.Neighbours(f)
		var t1, t2 float64
		if c1 >= 0 {
			t1 = perm[c1] * area / half
		}
		if c2 >= 0 {
			t2 = perm[c2] * area / half
		}

		switch {
		case c1 >= 0 && c2 >= 0:
			if t1 > 0 && t2 > 0 {
				trans[f] = 1.0 / (1.0/t1 + 1.0/t2)
			}
		case c1 >= 0:
			trans[f] = t1
		default:
			trans[f] = t2
		}
	}
	return trans, nil
}

// CellDepths returns the depth of each cell centre
func (cg *Cartesian) CellDepths() []float64 {
	depth := make([]float64, cg.NumCells)
	for c := range depth {
		_, _, k := cg.CellIJK(c)
		depth[c] = (float64(k) + 0.5) * cg.Dz
	}
	return depth
}

// FaceDepths returns the depth of each face centroid
func (cg *Cartesian) FaceDepths() []float64 {
	depth := make([]float64, cg.NumFaces)
	for f := range depth {
		c1, c2 := cg.Neighbours(f)
		if cg.faceDir[f] != ZDir {
			c := c1
			if c < 0 {
				c = c2
			}
			_, _, k := cg.CellIJK(c)
			depth[f] = (float64(k) + 0.5) * cg.Dz
			continue
		}
		// Z face sits on top of c2, or at the bottom of c1 on the lower boundary
		if c2 >= 0 {
			_, _, k := cg.CellIJK(c2)
			depth[f] = float64(k) * cg.Dz
		} else {
			_, _, k := cg.CellIJK(c1)
			depth[f] = float64(k+1) * cg.Dz
		}
	}
	return depth
}

// PoreVolumes returns cell pore volumes from porosity
func (cg *Cartesian) PoreVolumes(poro []float64) []float64 {
	bulk := cg.Dx * cg.Dy * cg.Dz
	pv := make([]float64, cg.NumCells)
	for c := range pv {
		pv[c] = bulk * poro[c]
	}
	return pv
}
