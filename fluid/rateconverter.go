package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RegionAttributes are the pore volume weighted average conditions of one
// fluid-in-place region
type RegionAttributes struct {
	Pressure float64
	Rs       float64
	Rv       float64
}

// RateConverter converts surface phase rates into reservoir voidage rates
// using averaged region conditions. All conversions are linear: one
// coefficient per active phase multiplies the surface rate of that phase.
type RateConverter struct {
	PU  PhaseUsage
	PVT PVT

	attr []RegionAttributes
}

func NewRateConverter(pu PhaseUsage, pvt PVT) *RateConverter {
	return &RateConverter{PU: pu, PVT: pvt}
}

// DefineState recomputes the region averages from cell values. fipRegion
// maps every cell to its fluid-in-place region.
func (rc *RateConverter) DefineState(press, rs, rv, poreVolume []float64, fipRegion []int) error {
	n := len(press)
	if len(rs) != n || len(rv) != n || len(poreVolume) != n || len(fipRegion) != n {
		return fmt.Errorf("state arrays differ in length: p=%d rs=%d rv=%d pv=%d fip=%d",
			n, len(rs), len(rv), len(poreVolume), len(fipRegion))
	}

	numRegions := 0
	for _, r := range fipRegion {
		if r < 0 {
			return fmt.Errorf("negative fip region %d", r)
		}
		if r+1 > numRegions {
			numRegions = r + 1
		}
	}

	// Gather per region, then weight with pore volume
	type regionCells struct{ pv, p, rs, rv []float64 }
	cells := make([]regionCells, numRegions)
	for c, r := range fipRegion {
		cells[r].pv = append(cells[r].pv, poreVolume[c])
		cells[r].p = append(cells[r].p, press[c])
		cells[r].rs = append(cells[r].rs, rs[c])
		cells[r].rv = append(cells[r].rv, rv[c])
	}

	rc.attr = make([]RegionAttributes, numRegions)
	for r, rcells := range cells {
		if len(rcells.pv) == 0 {
			continue
		}
		total := floats.Sum(rcells.pv)
		if total <= 0 {
			// Degenerate region, fall back to arithmetic means
			w := float64(len(rcells.pv))
			rc.attr[r] = RegionAttributes{
				Pressure: floats.Sum(rcells.p) / w,
				Rs:       floats.Sum(rcells.rs) / w,
				Rv:       floats.Sum(rcells.rv) / w,
			}
			continue
		}
		rc.attr[r] = RegionAttributes{
			Pressure: floats.Dot(rcells.pv, rcells.p) / total,
			Rs:       floats.Dot(rcells.pv, rcells.rs) / total,
			Rv:       floats.Dot(rcells.pv, rcells.rv) / total,
		}
	}
	return nil
}

// SetAttributes installs region averages directly
func (rc *RateConverter) SetAttributes(attr []RegionAttributes) {
	rc.attr = append([]RegionAttributes(nil), attr...)
}

// Attributes returns the averages of region fip
func (rc *RateConverter) Attributes(fip int) (RegionAttributes, error) {
	if fip < 0 || fip >= len(rc.attr) {
		return RegionAttributes{}, fmt.Errorf("fip region %d has no state (%d regions defined)", fip, len(rc.attr))
	}
	return rc.attr[fip], nil
}

type regionFVF struct {
	bw, bo, bg float64
	rs, rv     float64
	det        float64
}

func (rc *RateConverter) evaluate(fip, pvtReg int, dissolved bool) (regionFVF, error) {
	ra, err := rc.Attributes(fip)
	if err != nil {
		return regionFVF{}, err
	}
	var v regionFVF
	if dissolved && rc.PU.Active(Liquid) && rc.PU.Active(Vapour) {
		v.rs, v.rv = ra.Rs, ra.Rv
	}
	v.det = 1 - v.rs*v.rv
	if !(v.det > 0) {
		return v, fmt.Errorf("region %d: 1 - Rs*Rv = %g: %w", fip, v.det, ErrNumericalProblem)
	}

	if rc.PU.Active(Aqua) {
		if v.bw, err = rc.PVT.FVF(Aqua, pvtReg, ra.Pressure, 0, 0); err != nil {
			return v, err
		}
	}
	if rc.PU.Active(Liquid) {
		if v.bo, err = rc.PVT.FVF(Liquid, pvtReg, ra.Pressure, v.rs, 0); err != nil {
			return v, err
		}
	}
	if rc.PU.Active(Vapour) {
		if v.bg, err = rc.PVT.FVF(Vapour, pvtReg, ra.Pressure, 0, v.rv); err != nil {
			return v, err
		}
	}
	return v, nil
}

// CalcCoeff returns surface to reservoir coefficients for produced fluids,
// accounting for gas dissolved in oil and oil vaporised in gas
func (rc *RateConverter) CalcCoeff(fip, pvtReg int) ([]float64, error) {
	v, err := rc.evaluate(fip, pvtReg, true)
	if err != nil {
		return nil, err
	}

	coeff := make([]float64, rc.PU.NumPhases)
	if i := rc.PU.Index(Aqua); i >= 0 {
		coeff[i] = v.bw
	}
	io, ig := rc.PU.Index(Liquid), rc.PU.Index(Vapour)
	if io >= 0 {
		coeff[io] += v.bo / v.det
		if ig >= 0 {
			coeff[ig] -= v.rv * v.bo / v.det
		}
	}
	if ig >= 0 {
		coeff[ig] += v.bg / v.det
		if io >= 0 {
			coeff[io] -= v.rs * v.bg / v.det
		}
	}
	return coeff, nil
}

// CalcInjCoeff returns coefficients for injected pure phases
func (rc *RateConverter) CalcInjCoeff(fip, pvtReg int) ([]float64, error) {
	v, err := rc.evaluate(fip, pvtReg, false)
	if err != nil {
		return nil, err
	}
	coeff := make([]float64, rc.PU.NumPhases)
	if i := rc.PU.Index(Aqua); i >= 0 {
		coeff[i] = v.bw
	}
	if i := rc.PU.Index(Liquid); i >= 0 {
		coeff[i] = v.bo
	}
	if i := rc.PU.Index(Vapour); i >= 0 {
		coeff[i] = v.bg
	}
	return coeff, nil
}

// CalcReservoirVoidageRates converts surface phase rates into reservoir
// condition rates per phase
func (rc *RateConverter) CalcReservoirVoidageRates(fip, pvtReg int, surface []float64) ([]float64, error) {
	if len(surface) != rc.PU.NumPhases {
		return nil, fmt.Errorf("%d surface rates for %d phases", len(surface), rc.PU.NumPhases)
	}
	v, err := rc.evaluate(fip, pvtReg, true)
	if err != nil {
		return nil, err
	}

	voidage := make([]float64, rc.PU.NumPhases)
	if i := rc.PU.Index(Aqua); i >= 0 {
		voidage[i] = v.bw * surface[i]
	}
	io, ig := rc.PU.Index(Liquid), rc.PU.Index(Vapour)
	qo, qg := rc.PU.Value(surface, Liquid), rc.PU.Value(surface, Vapour)
	if io >= 0 {
		voidage[io] = v.bo * (qo - v.rv*qg) / v.det
	}
	if ig >= 0 {
		voidage[ig] = v.bg * (qg - v.rs*qo) / v.det
	}
	return voidage, nil
}
