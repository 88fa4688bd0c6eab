package tpfa

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/grid"
	"github.com/arturcastiel/opm-simulators/linsys"
	"github.com/arturcastiel/opm-simulators/solver"
)

// Assembler owns the pressure system of one grid. The matrix pattern is
// built once; every Assemble call zeroes and refills the values, so the
// buffers must not be read while an assembly is in progress.
type Assembler struct {
	G     *grid.Grid
	Perfs *grid.Perforations

	A *linsys.CSRMatrix
	B []float64 // Right hand side
	X []float64 // Solution, length A.M

	// Accumulated gravity contribution per face
	fgrav []float64
}

// NewAssembler builds the system pattern for g and the optional wells
func NewAssembler(g *grid.Grid, perfs *grid.Perforations) (*Assembler, error) {
	A, err := linsys.Construct(g, perfs)
	if err != nil {
		return nil, fmt.Errorf("construct pressure system: %w", err)
	}
	return &Assembler{
		G:     g,
		Perfs: perfs,
		A:     A,
		B:     make([]float64, A.M),
		X:     make([]float64, A.M),
		fgrav: make([]float64, g.NumFaces),
	}, nil
}

// FaceGravity returns the gravity term accumulated per face by the last
// assembly
func (a *Assembler) FaceGravity() []float64 {
	return a.fgrav
}

func (a *Assembler) checkInputs(F *Forces, trans, gpress []float64) error {
	if len(trans) != a.G.NumFaces {
		return fmt.Errorf("%d transmissibilities for %d faces", len(trans), a.G.NumFaces)
	}
	if gpress != nil && len(gpress) != a.G.NumHalfFaces() {
		return fmt.Errorf("%d gravity potentials for %d half faces", len(gpress), a.G.NumHalfFaces())
	}
	if F == nil {
		return nil
	}
	if F.Src != nil && len(F.Src) != a.G.NumCells {
		return fmt.Errorf("%d sources for %d cells", len(F.Src), a.G.NumCells)
	}
	if err := F.BC.Validate(a.G); err != nil {
		return err
	}
	if F.Wells != nil {
		if err := F.Wells.Validate(a.Perfs); err != nil {
			return err
		}
	}
	return nil
}

// Assemble fills A and B for one nonlinear iteration from face
// transmissibilities, half-face gravity potentials (nil for none) and the
// driving forces.
//
// A system without any pressure condition (no pressure boundary and no BHP
// controlled well) determines pressure only up to a constant. The first
// diagonal entry is then doubled to remove the zero eigenvalue. This is a
// numerical regularisation that pins the pressure level, it does not model
// any physical condition.
func (a *Assembler) Assemble(F *Forces, trans, gpress []float64) error {
	if err := a.checkInputs(F, trans, gpress); err != nil {
		return err
	}

	g := a.G
	a.A.Zero()
	for i := range a.B {
		a.B[i] = 0
	}

	a.computeGravityTerm(gpress)

	// Interior couplings and gravity driven flow, visited per half-face
	for c := 0; c < g.NumCells; c++ {
		jc := a.A.ElementIndex(c, c)
		for i := g.CellFacePos[c]; i < g.CellFacePos[c+1]; i++ {
			f := g.CellFaces[i]
			c1, c2 := g.Neighbours(f)

			s := 1.0
			other := c2
			if c1 != c {
				s = -1.0
				other = c1
			}

			a.B[c] -= trans[f] * (s * a.fgrav[f])

			if other >= 0 {
				jn := a.A.ElementIndex(c, other)
				a.A.SA[jc] += trans[f]
				a.A.SA[jn] -= trans[f]
			}
		}
	}

	neumann := true
	if F != nil {
		if !a.assembleBoundary(F.BC, trans) {
			neumann = false
		}
		for c, q := range F.Src {
			a.B[c] += q
		}
		if !a.assembleWells(F.Wells) {
			neumann = false
		}
	} else {
		a.assembleWells(nil)
	}

	if neumann {
		a.A.SA[0] *= 2
	}
	return nil
}

// computeGravityTerm accumulates fgrav[f] = sum of sign*gpress over the two
// half-faces of every interior face, sign +1 on the first neighbour
func (a *Assembler) computeGravityTerm(gpress []float64) {
	for f := range a.fgrav {
		a.fgrav[f] = 0
	}
	if gpress == nil {
		return
	}

	g := a.G
	for c := 0; c < g.NumCells; c++ {
		for i := g.CellFacePos[c]; i < g.CellFacePos[c+1]; i++ {
			f := g.CellFaces[i]
			c1, c2 := g.Neighbours(f)
			if c1 < 0 || c2 < 0 {
				continue
			}
			if c1 == c {
				a.fgrav[f] += gpress[i]
			} else {
				a.fgrav[f] -= gpress[i]
			}
		}
	}
}

// assembleBoundary adds the boundary contributions and reports whether the
// set is pure Neumann (no pressure condition). Other condition types are
// ignored.
func (a *Assembler) assembleBoundary(bc *BoundaryConditions, trans []float64) bool {
	neumann := true
	for i := 0; i < bc.Len(); i++ {
		switch bc.Type[i] {
		case BCPressure:
			neumann = false
			for _, f := range bc.ConditionFaces(i) {
				c, outflow := boundaryCell(a.G, f)
				s := -1.0
				if outflow {
					s = 1.0
				}
				t := trans[f]
				a.A.SA[a.A.ElementIndex(c, c)] += t
				a.B[c] += t * bc.Value[i]
				a.B[c] -= s * t * a.fgrav[f]
			}

		case BCFluxTotalVolume:
			f := bc.ConditionFaces(i)[0]
			c, _ := boundaryCell(a.G, f)
			// Flow into the cell
			a.B[c] += bc.Value[i]
		}
	}
	return neumann
}

// assembleWells closes every well unknown and couples it to its perforated
// cells. Perforation inflow is WI*(pw + wdp - pc). Returns false when some
// well fixes its bottom hole pressure.
func (a *Assembler) assembleWells(w *Wells) bool {
	nc := a.G.NumCells
	neumann := true

	for well := 0; well < a.Perfs.NumWells(); well++ {
		u := nc + well
		jw := a.A.ElementIndex(u, u)
		lo, hi := a.Perfs.ConnPos[well], a.Perfs.ConnPos[well+1]

		ctrl := WellControl{Kind: WellShut}
		if w != nil {
			ctrl = w.Controls[well]
		}

		switch ctrl.Kind {
		case WellBHP:
			neumann = false
			bhp := ctrl.Target
			for i := lo; i < hi; i++ {
				c, wi, wdp := a.Perfs.Cells[i], w.WI[i], w.wdp(i)
				a.A.SA[a.A.ElementIndex(c, c)] += wi
				a.B[c] += wi * (bhp + wdp)
				a.A.SA[jw] += wi
				a.B[u] += wi * bhp
			}

		case WellRate:
			for i := lo; i < hi; i++ {
				c, wi, wdp := a.Perfs.Cells[i], w.WI[i], w.wdp(i)
				a.A.SA[a.A.ElementIndex(c, c)] += wi
				a.A.SA[a.A.ElementIndex(c, u)] -= wi
				a.A.SA[a.A.ElementIndex(u, c)] -= wi
				a.A.SA[jw] += wi
				a.B[c] += wi * wdp
				a.B[u] -= wi * wdp
			}
			a.B[u] += ctrl.Target

		case WellShut:
			a.A.SA[jw] = 1
		}
	}
	return neumann
}

// Solve assembles, solves with s and recovers pressures and fluxes
func (a *Assembler) Solve(s solver.Solver, F *Forces, trans, gpress []float64) (*Solution, error) {
	if err := a.Assemble(F, trans, gpress); err != nil {
		return nil, err
	}
	if err := s.Solve(a.A, a.B, a.X); err != nil {
		return nil, fmt.Errorf("pressure solve: %w", err)
	}
	return a.PressureFlux(F, trans, a.X)
}
