package wells

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// GuideTarget names the phase combination a guide rate refers to
type GuideTarget int

const (
	GuideNone GuideTarget = iota
	GuideOil
	GuideWat
	GuideGas
	GuideLiq
	GuideRes
)

// modeRater reduces a phase rate vector to the rate a control mode measures
type modeRater interface {
	CalcModeRateFromRates(rates []float64) float64
}

// TargetCalculator evaluates the production target of a group in its
// active mode
type TargetCalculator struct {
	mode          GroupProdCMode
	pu            fluid.PhaseUsage
	resvCoeff     []float64
	gratFromSales float64
}

// NewTargetCalculator fails for modes that carry no rate target
func NewTargetCalculator(mode GroupProdCMode, pu fluid.PhaseUsage, resvCoeff []float64, gratTargetFromSales float64) (*TargetCalculator, error) {
	switch mode {
	case GORAT, GWRAT, GGRAT, GLRAT:
	case GRESV:
		if len(resvCoeff) != pu.NumPhases {
			return nil, fmt.Errorf("RESV target needs %d voidage coefficients, got %d", pu.NumPhases, len(resvCoeff))
		}
	default:
		return nil, fmt.Errorf("group production mode %s has no rate target", mode)
	}
	return &TargetCalculator{mode: mode, pu: pu, resvCoeff: resvCoeff, gratFromSales: gratTargetFromSales}, nil
}

func (tc *TargetCalculator) CalcModeRateFromRates(rates []float64) float64 {
	switch tc.mode {
	case GORAT:
		return tc.pu.Value(rates, fluid.Liquid)
	case GWRAT:
		return tc.pu.Value(rates, fluid.Aqua)
	case GGRAT:
		return tc.pu.Value(rates, fluid.Vapour)
	case GLRAT:
		return tc.pu.Value(rates, fluid.Liquid) + tc.pu.Value(rates, fluid.Aqua)
	}
	var sum float64
	for p := range rates {
		sum += rates[p] * tc.resvCoeff[p]
	}
	return sum
}

// GroupTarget picks the target of the active mode. A sales derived gas
// target takes precedence over the scheduled one.
func (tc *TargetCalculator) GroupTarget(ctrl *GroupProductionControls) float64 {
	switch tc.mode {
	case GORAT:
		return ctrl.OilTarget
	case GWRAT:
		return ctrl.WaterTarget
	case GGRAT:
		if tc.gratFromSales > 0 {
			return tc.gratFromSales
		}
		return ctrl.GasTarget
	case GLRAT:
		return ctrl.LiquidTarget
	}
	return ctrl.ResvTarget
}

func (tc *TargetCalculator) GuideTargetMode() GuideTarget {
	switch tc.mode {
	case GORAT:
		return GuideOil
	case GWRAT:
		return GuideWat
	case GGRAT:
		return GuideGas
	case GLRAT:
		return GuideLiq
	}
	return GuideRes
}

// InjectionTargetCalculator evaluates the injection target of a group for
// one phase
type InjectionTargetCalculator struct {
	mode        GroupInjCMode
	pu          fluid.PhaseUsage
	resvCoeff   []float64
	group       string
	salesTarget float64
	gs          *GroupState
	phase       fluid.Phase
	pos         int
}

func NewInjectionTargetCalculator(mode GroupInjCMode, pu fluid.PhaseUsage, resvCoeff []float64,
	group string, salesTarget float64, gs *GroupState, phase fluid.Phase) (*InjectionTargetCalculator, error) {
	pos := pu.Index(phase)
	if pos < 0 {
		return nil, fmt.Errorf("injection phase %s is not active", phase)
	}
	if len(resvCoeff) != pu.NumPhases {
		return nil, fmt.Errorf("injection target needs %d voidage coefficients, got %d", pu.NumPhases, len(resvCoeff))
	}
	return &InjectionTargetCalculator{
		mode:        mode,
		pu:          pu,
		resvCoeff:   resvCoeff,
		group:       group,
		salesTarget: salesTarget,
		gs:          gs,
		phase:       phase,
		pos:         pos,
	}, nil
}

func (tc *InjectionTargetCalculator) CalcModeRateFromRates(rates []float64) float64 {
	return rates[tc.pos]
}

func (tc *InjectionTargetCalculator) GroupTarget(ctrl *GroupInjectionControls) (float64, error) {
	switch tc.mode {
	case GInjRATE:
		return ctrl.SurfaceMaxRate, nil
	case GInjRESV:
		return ctrl.ResvMaxRate / tc.resvCoeff[tc.pos], nil
	case GInjREIN:
		return ctrl.TargetReinjFraction * tc.gs.InjectionREINRates(tc.group)[tc.pos], nil
	case GInjVREP:
		voidage := tc.gs.InjectionVREPRate(tc.group) * ctrl.TargetVoidFraction
		// Other phases injected by the group replace part of the voidage
		reductions := tc.gs.InjectionReductionRates(tc.group)
		for _, p := range tc.pu.Phases() {
			if p == tc.phase {
				continue
			}
			i := tc.pu.Index(p)
			voidage -= reductions[i] * tc.resvCoeff[i]
		}
		return voidage / tc.resvCoeff[tc.pos], nil
	case GInjSALE:
		return tc.gs.InjectionREINRates(tc.group)[tc.pos] - tc.salesTarget, nil
	}
	return 0, fmt.Errorf("group %s: injection mode %s has no rate target", tc.group, tc.mode)
}

func (tc *InjectionTargetCalculator) GuideTargetMode() GuideTarget {
	switch tc.phase {
	case fluid.Aqua:
		return GuideWat
	case fluid.Liquid:
		return GuideOil
	}
	return GuideGas
}
