package simulator

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/fluid"
	"github.com/arturcastiel/opm-simulators/tpfa"
	"github.com/arturcastiel/opm-simulators/wells"
)

// surfaceComposition returns the surface rates produced or injected per
// unit of reservoir inflow for well i
func (s *Simulator) surfaceComposition(i int) ([]float64, error) {
	w := s.model.Wells[i]
	pu := s.model.PU
	if w.IsInjector() && w.Injection.Type != wells.InjectorMulti {
		coeff, err := s.conv.CalcInjCoeff(w.FIPRegion, w.PVTRegion)
		if err != nil {
			return nil, err
		}
		p, _ := w.Injection.Phase(w.Name)
		pos := pu.Index(p)
		if pos < 0 {
			return nil, fmt.Errorf("well %s injects inactive phase %s", w.Name, p)
		}
		out := make([]float64, pu.NumPhases)
		out[pos] = 1 / coeff[pos]
		return out, nil
	}

	coeff, err := s.coefficients(i)
	if err != nil {
		return nil, err
	}
	split := s.model.PhaseSplit[i]
	var voidage float64
	for p := range split {
		voidage += coeff[p] * split[p]
	}
	if voidage <= 0 {
		return nil, fmt.Errorf("well %s has no phase split", w.Name)
	}
	out := make([]float64, len(split))
	for p := range split {
		out[p] = split[p] / voidage
	}
	return out, nil
}

func (s *Simulator) coefficients(i int) ([]float64, error) {
	w := s.model.Wells[i]
	if w.IsInjector() {
		return s.conv.CalcInjCoeff(w.FIPRegion, w.PVTRegion)
	}
	return s.conv.CalcCoeff(w.FIPRegion, w.PVTRegion)
}

// reservoirRate converts a surface rate limit on the phases sel into the
// total reservoir rate producing it
func reservoirRate(comp []float64, pu fluid.PhaseUsage, limit float64, sel ...fluid.Phase) (float64, error) {
	var per float64
	for _, p := range sel {
		per += pu.Value(comp, p)
	}
	if per <= 0 {
		return 0, fmt.Errorf("no %v in the well stream", sel)
	}
	return limit / per, nil
}

// wellControl closes the well unknown of well i according to its current
// control mode. BHP and THP modes fix the pressure, rate modes prescribe
// the reservoir rate implied by the surface limit.
func (s *Simulator) wellControl(i int) (tpfa.WellControl, error) {
	w := s.model.Wells[i]
	ws := s.state.Well(i)
	if w.Shut {
		return tpfa.WellControl{Kind: tpfa.WellShut}, nil
	}
	comp, err := s.surfaceComposition(i)
	if err != nil {
		return tpfa.WellControl{}, fmt.Errorf("well %s: %w", w.Name, err)
	}
	pu := s.model.PU

	if w.IsProducer() {
		ctrl := w.Production
		bhp := tpfa.WellControl{Kind: tpfa.WellBHP, Target: ctrl.BHPLimit}
		var q float64
		switch ws.ProductionMode {
		case wells.ProdBHP:
			return bhp, nil
		case wells.ProdTHP:
			return tpfa.WellControl{Kind: tpfa.WellBHP, Target: ctrl.THPLimit}, nil
		case wells.ORAT:
			q, err = reservoirRate(comp, pu, ctrl.OilRate, fluid.Liquid)
		case wells.WRAT:
			q, err = reservoirRate(comp, pu, ctrl.WaterRate, fluid.Aqua)
		case wells.GRAT:
			q, err = reservoirRate(comp, pu, ctrl.GasRate, fluid.Vapour)
		case wells.LRAT:
			q, err = reservoirRate(comp, pu, ctrl.LiquidRate, fluid.Liquid, fluid.Aqua)
		case wells.ProdRESV:
			q, err = s.eval.ResvLimit(w)
		case wells.ProdGRUP:
			return s.groupProducerControl(i, comp, bhp)
		default:
			return bhp, nil
		}
		if err != nil {
			return tpfa.WellControl{}, fmt.Errorf("well %s: %w", w.Name, err)
		}
		return tpfa.WellControl{Kind: tpfa.WellRate, Target: -q}, nil
	}

	ctrl := w.Injection
	bhp := tpfa.WellControl{Kind: tpfa.WellBHP, Target: ctrl.BHPLimit}
	switch ws.InjectionMode {
	case wells.InjTHP:
		return tpfa.WellControl{Kind: tpfa.WellBHP, Target: ctrl.THPLimit}, nil
	case wells.RATE:
		var total float64
		for _, c := range comp {
			total += c
		}
		return tpfa.WellControl{Kind: tpfa.WellRate, Target: ctrl.SurfaceRate / total}, nil
	case wells.InjRESV:
		return tpfa.WellControl{Kind: tpfa.WellRate, Target: ctrl.ReservoirRate}, nil
	case wells.InjGRUP:
		return s.groupInjectorControl(i, comp, bhp)
	}
	return bhp, nil
}

// currentRate is the total reservoir rate behind the surface rates held in
// the well state
func currentRate(comp, surface []float64) float64 {
	var c, q float64
	for p := range comp {
		c += comp[p]
		q += surface[p]
	}
	if c == 0 {
		return 0
	}
	return q / c
}

// groupProducerControl scales the current reservoir rate by the group
// share. Without a current rate the well falls back to its BHP limit.
func (s *Simulator) groupProducerControl(i int, comp []float64, fallback tpfa.WellControl) (tpfa.WellControl, error) {
	w := s.model.Wells[i]
	parent, err := s.model.Tree.Group(w.Group)
	if err != nil {
		return fallback, err
	}
	scale, err := s.eval.GroupProductionTargetRate(w, parent, s.state, w.Efficiency)
	if err != nil {
		return fallback, fmt.Errorf("well %s: %w", w.Name, err)
	}
	q := currentRate(comp, s.state.Well(i).SurfaceRates)
	if q == 0 {
		return fallback, nil
	}
	return tpfa.WellControl{Kind: tpfa.WellRate, Target: q * scale}, nil
}

func (s *Simulator) groupInjectorControl(i int, comp []float64, fallback tpfa.WellControl) (tpfa.WellControl, error) {
	w := s.model.Wells[i]
	parent, err := s.model.Tree.Group(w.Group)
	if err != nil {
		return fallback, err
	}
	rate, ok, err := s.eval.GroupInjectionTargetRate(w, parent, s.state, w.Efficiency)
	if err != nil {
		return fallback, fmt.Errorf("well %s: %w", w.Name, err)
	}
	if !ok {
		return fallback, nil
	}
	p, err := w.Injection.Phase(w.Name)
	if err != nil {
		return fallback, err
	}
	per := s.model.PU.Value(comp, p)
	if per <= 0 {
		return fallback, nil
	}
	return tpfa.WellControl{Kind: tpfa.WellRate, Target: rate / per}, nil
}
