package tpfa

import "fmt"

// Solution holds the recovered pressure state
type Solution struct {
	CellPress []float64
	FaceFlux  []float64 // Positive from first to second neighbour

	WellPress []float64 // Bottom hole pressure per well
	WellFlux  []float64 // Inflow into the reservoir per perforation

	connPos []int
}

// WellRate returns the total reservoir inflow of well w
func (s *Solution) WellRate(w int) float64 {
	var q float64
	for _, v := range s.WellFlux[s.connPos[w]:s.connPos[w+1]] {
		q += v
	}
	return q
}

// PressureFlux recovers cell pressures, face fluxes and well quantities from
// the solved unknowns x. F, trans and the gravity term must match the last
// Assemble call.
func (a *Assembler) PressureFlux(F *Forces, trans, x []float64) (*Solution, error) {
	g := a.G
	if len(x) != a.A.M {
		return nil, fmt.Errorf("solution has %d entries, system has %d unknowns", len(x), a.A.M)
	}
	if len(trans) != g.NumFaces {
		return nil, fmt.Errorf("%d transmissibilities for %d faces", len(trans), g.NumFaces)
	}

	soln := &Solution{
		CellPress: make([]float64, g.NumCells),
		FaceFlux:  make([]float64, g.NumFaces),
	}
	copy(soln.CellPress, x[:g.NumCells])
	cpress := soln.CellPress

	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 >= 0 && c2 >= 0 {
			soln.FaceFlux[f] = trans[f] * (cpress[c1] - cpress[c2] + a.fgrav[f])
		}
	}

	if F != nil {
		a.boundaryFluxes(F.BC, trans, cpress, soln.FaceFlux)
	}

	nw := a.Perfs.NumWells()
	if nw > 0 {
		soln.WellPress = make([]float64, nw)
		copy(soln.WellPress, x[g.NumCells:])
		soln.WellFlux = make([]float64, a.Perfs.NumPerforations())
		soln.connPos = a.Perfs.ConnPos
		if F != nil && F.Wells != nil {
			w := F.Wells
			for well := 0; well < nw; well++ {
				if w.Controls[well].Kind == WellShut {
					continue
				}
				pw := soln.WellPress[well]
				for i := a.Perfs.ConnPos[well]; i < a.Perfs.ConnPos[well+1]; i++ {
					c := a.Perfs.Cells[i]
					soln.WellFlux[i] = w.WI[i] * (pw + w.wdp(i) - cpress[c])
				}
			}
		}
	}

	return soln, nil
}

// boundaryFluxes dispatches on the condition type like the assembly does
func (a *Assembler) boundaryFluxes(bc *BoundaryConditions, trans, cpress, fflux []float64) {
	for i := 0; i < bc.Len(); i++ {
		switch bc.Type[i] {
		case BCPressure:
			for _, f := range bc.ConditionFaces(i) {
				c, outflow := boundaryCell(a.G, f)
				var dh float64
				if outflow {
					dh = cpress[c] - bc.Value[i] // c1 -> environment
				} else {
					dh = bc.Value[i] - cpress[c] // environment -> c2
				}
				fflux[f] = trans[f] * (dh + a.fgrav[f])
			}

		case BCFluxTotalVolume:
			f := bc.ConditionFaces(i)[0]
			_, outflow := boundaryCell(a.G, f)
			// Prescribed flux is positive into the reservoir
			s := 1.0
			if outflow {
				s = -1.0
			}
			fflux[f] = s * bc.Value[i]
		}
	}
}
