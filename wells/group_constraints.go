package wells

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// CheckGroupConstraints checks a well that is not under group control
// against the target of the nearest controlling ancestor. A broken target
// moves the well to GRUP and scales its surface rates to the share it may
// produce or inject.
func (e *Evaluator) CheckGroupConstraints(w *Well, state *WellState) (bool, error) {
	ws, ok := state.ByName(w.Name)
	if !ok {
		return false, fmt.Errorf("well %s has no state", w.Name)
	}
	parent, err := e.Tree.Group(w.Group)
	if err != nil {
		return false, fmt.Errorf("well %s: %w", w.Name, err)
	}

	if w.IsInjector() {
		if ws.InjectionMode == InjGRUP {
			return false, nil
		}
		phase, err := w.Injection.Phase(w.Name)
		if err != nil {
			return false, err
		}
		coeff, err := e.Conv.CalcInjCoeff(w.FIPRegion, w.PVTRegion)
		if err != nil {
			return false, fmt.Errorf("well %s: %w", w.Name, err)
		}
		broken, scale, err := e.checkGroupConstraintsInj(w.Name, parent, state, ws.SurfaceRates, phase, w.Efficiency, coeff)
		if err != nil || !broken {
			return false, err
		}
		e.logger().Debug("Injector switched to group control",
			zap.String("well", w.Name), zap.String("from", ws.InjectionMode.String()), zap.Float64("scale", scale))
		ws.InjectionMode = InjGRUP
		ws.ScaleSurfaceRates(scale)
		return true, nil
	}

	if ws.ProductionMode == ProdGRUP {
		return false, nil
	}
	coeff, err := e.Conv.CalcCoeff(w.FIPRegion, w.PVTRegion)
	if err != nil {
		return false, fmt.Errorf("well %s: %w", w.Name, err)
	}
	broken, scale, err := e.checkGroupConstraintsProd(w.Name, parent, state, ws.SurfaceRates, w.Efficiency, coeff)
	if err != nil || !broken {
		return false, err
	}
	e.logger().Debug("Producer switched to group control",
		zap.String("well", w.Name), zap.String("from", ws.ProductionMode.String()), zap.Float64("scale", scale))
	ws.ProductionMode = ProdGRUP
	ws.ScaleSurfaceRates(scale)
	return true, nil
}

// walkChain applies the reductions and guide rate fractions along the
// chain from the controlling group down to the well. With addBack set, own
// is re-added at the level where the well's rate entered the reduction.
func (e *Evaluator) walkChain(chain []string, target float64, reduction func(string) float64,
	fraction func(string) (float64, error), hasGuide func(string) bool, addBack bool, own float64) (float64, error) {
	numAncestors := len(chain) - 1
	reductionLevel := 0
	for ii := 1; ii < numAncestors; ii++ {
		if hasGuide(chain[ii]) {
			reductionLevel = ii
		}
	}
	for ii := 0; ii < numAncestors; ii++ {
		if ii == 0 || hasGuide(chain[ii]) {
			target -= reduction(chain[ii])
		}
		if addBack && ii == reductionLevel {
			target += own
		}
		f, err := fraction(chain[ii+1])
		if err != nil {
			return 0, err
		}
		target *= f
	}
	return target, nil
}

func (e *Evaluator) checkGroupConstraintsProd(well string, group *Group, state *WellState, rates []float64,
	eff float64, resvCoeff []float64) (bool, float64, error) {
	mode := e.Groups.ProductionControl(group.Name)
	if mode.inherits() {
		if !group.ProductionGroupControlAvailable() {
			return false, 1, nil
		}
		parent, err := e.Tree.Group(group.Parent)
		if err != nil {
			return false, 1, err
		}
		return e.checkGroupConstraintsProd(well, parent, state, rates, eff*group.Efficiency, resvCoeff)
	}
	if !group.IsProductionGroup() {
		return false, 1, nil
	}

	tcalc, err := NewTargetCalculator(mode, e.PU, resvCoeff, e.Groups.GratSalesTarget(group.Name))
	if err != nil {
		return false, 1, err
	}
	fcalc := NewFractionCalculator(e.Tree, state, e.Groups, e.Guide, tcalc, true, fluid.Liquid)
	chain, err := e.Tree.ChainTopBot(well, group.Name)
	if err != nil {
		return false, 1, err
	}

	// Producer rates are negative
	current := -tcalc.CalcModeRateFromRates(rates)
	target, err := e.walkChain(chain, tcalc.GroupTarget(group.Production),
		func(name string) float64 {
			return tcalc.CalcModeRateFromRates(e.Groups.ProductionReductionRates(name))
		},
		func(child string) (float64, error) { return fcalc.LocalFraction(child, well) },
		e.Guide.Has,
		true, current*eff)
	if err != nil {
		return false, 1, err
	}

	targetRate := math.Max(0, target/eff)
	scale := 1.0
	if current > 1e-14 {
		scale = targetRate / current
	}
	return current > targetRate, scale, nil
}

func (e *Evaluator) checkGroupConstraintsInj(well string, group *Group, state *WellState, rates []float64,
	phase fluid.Phase, eff float64, resvCoeff []float64) (bool, float64, error) {
	mode := e.Groups.InjectionControl(group.Name, phase)
	if mode.inherits() {
		if !group.InjectionGroupControlAvailable(phase) {
			return false, 1, nil
		}
		parent, err := e.Tree.Group(group.Parent)
		if err != nil {
			return false, 1, err
		}
		return e.checkGroupConstraintsInj(well, parent, state, rates, phase, eff*group.Efficiency, resvCoeff)
	}
	ctrl, ok := group.Injection[phase]
	if !ok {
		return false, 1, nil
	}

	tcalc, err := NewInjectionTargetCalculator(mode, e.PU, resvCoeff, group.Name, group.GasSalesTarget, e.Groups, phase)
	if err != nil {
		return false, 1, err
	}
	orig, err := tcalc.GroupTarget(ctrl)
	if err != nil {
		return false, 1, err
	}
	fcalc := NewFractionCalculator(e.Tree, state, e.Groups, e.Guide, tcalc, false, phase)
	chain, err := e.Tree.ChainTopBot(well, group.Name)
	if err != nil {
		return false, 1, err
	}

	current := tcalc.CalcModeRateFromRates(rates)
	target, err := e.walkChain(chain, orig,
		func(name string) float64 {
			return tcalc.CalcModeRateFromRates(e.Groups.InjectionReductionRates(name))
		},
		func(child string) (float64, error) { return fcalc.LocalFraction(child, well) },
		func(name string) bool { return e.Guide.HasInjection(name, phase) },
		true, current*eff)
	if err != nil {
		return false, 1, err
	}

	targetRate := math.Max(0, target/eff)
	scale := 1.0
	if current > 1e-14 {
		scale = targetRate / current
	}
	return current > targetRate, scale, nil
}

// GroupProductionTargetRate returns the factor that brings the current
// rates of a GRUP producer onto its share of the controlling group target.
// The result is 1 when no ancestor imposes a target.
func (e *Evaluator) GroupProductionTargetRate(w *Well, group *Group, state *WellState, eff float64) (float64, error) {
	mode := e.Groups.ProductionControl(group.Name)
	if mode.inherits() {
		if !group.ProductionGroupControlAvailable() {
			return 1, nil
		}
		parent, err := e.Tree.Group(group.Parent)
		if err != nil {
			return 1, err
		}
		return e.GroupProductionTargetRate(w, parent, state, eff*group.Efficiency)
	}
	if !group.IsProductionGroup() {
		return 1, nil
	}
	ws, ok := state.ByName(w.Name)
	if !ok {
		return 1, fmt.Errorf("well %s has no state", w.Name)
	}
	coeff, err := e.Conv.CalcCoeff(w.FIPRegion, w.PVTRegion)
	if err != nil {
		return 1, fmt.Errorf("well %s: %w", w.Name, err)
	}
	tcalc, err := NewTargetCalculator(mode, e.PU, coeff, e.Groups.GratSalesTarget(group.Name))
	if err != nil {
		return 1, err
	}
	fcalc := NewFractionCalculator(e.Tree, state, e.Groups, e.Guide, tcalc, true, fluid.Liquid)
	chain, err := e.Tree.ChainTopBot(w.Name, group.Name)
	if err != nil {
		return 1, err
	}

	target, err := e.walkChain(chain, tcalc.GroupTarget(group.Production),
		func(name string) float64 {
			return tcalc.CalcModeRateFromRates(e.Groups.ProductionReductionRates(name))
		},
		func(child string) (float64, error) { return fcalc.LocalFraction(child, child) },
		e.Guide.Has,
		false, 0)
	if err != nil {
		return 1, err
	}

	targetRate := math.Max(0, target/eff)
	if targetRate == 0 {
		return 0, nil
	}
	current := -tcalc.CalcModeRateFromRates(ws.SurfaceRates)
	if current > 1e-14 {
		return targetRate / current, nil
	}
	return 1, nil
}

// GroupInjectionTargetRate returns the surface rate a GRUP injector may
// inject in its phase. ok is false when no ancestor imposes a target.
func (e *Evaluator) GroupInjectionTargetRate(w *Well, group *Group, state *WellState, eff float64) (rate float64, ok bool, err error) {
	phase, err := w.Injection.Phase(w.Name)
	if err != nil {
		return 0, false, err
	}
	mode := e.Groups.InjectionControl(group.Name, phase)
	if mode.inherits() {
		if !group.InjectionGroupControlAvailable(phase) {
			return 0, false, nil
		}
		parent, err := e.Tree.Group(group.Parent)
		if err != nil {
			return 0, false, err
		}
		return e.GroupInjectionTargetRate(w, parent, state, eff*group.Efficiency)
	}
	ctrl, has := group.Injection[phase]
	if !has {
		return 0, false, nil
	}

	coeff, err := e.Conv.CalcCoeff(w.FIPRegion, w.PVTRegion)
	if err != nil {
		return 0, false, fmt.Errorf("well %s: %w", w.Name, err)
	}
	tcalc, err := NewInjectionTargetCalculator(mode, e.PU, coeff, group.Name, group.GasSalesTarget, e.Groups, phase)
	if err != nil {
		return 0, false, err
	}
	orig, err := tcalc.GroupTarget(ctrl)
	if err != nil {
		return 0, false, err
	}
	fcalc := NewFractionCalculator(e.Tree, state, e.Groups, e.Guide, tcalc, false, phase)
	chain, err := e.Tree.ChainTopBot(w.Name, group.Name)
	if err != nil {
		return 0, false, err
	}

	target, err := e.walkChain(chain, orig,
		func(name string) float64 {
			return tcalc.CalcModeRateFromRates(e.Groups.InjectionReductionRates(name))
		},
		func(child string) (float64, error) { return fcalc.LocalFraction(child, child) },
		func(name string) bool { return e.Guide.HasInjection(name, phase) },
		false, 0)
	if err != nil {
		return 0, false, err
	}
	return math.Max(0, target/eff), true, nil
}
