package wells

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/arturcastiel/opm-simulators/fluid"
	"github.com/arturcastiel/opm-simulators/logging"
)

// Evaluator checks well constraints against the group hierarchy. Tree,
// Groups and Conv are required, Guide may be nil when no explicit guide
// rates exist.
type Evaluator struct {
	PU     fluid.PhaseUsage
	Tree   *Tree
	Groups *GroupState
	Guide  *GuideRate
	Conv   *fluid.RateConverter
	Logger *zap.Logger
}

func (e *Evaluator) logger() *zap.Logger {
	return logging.OrNop(e.Logger)
}

type prodCheck struct {
	mode     ProducerCMode
	violated func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error)
}

type injCheck struct {
	mode     InjectorCMode
	violated func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error)
}

// Checked in order, the first violated limit wins
var productionChecks = []prodCheck{
	{ProdBHP, func(_ *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Production.BHPLimit > ws.BHP, nil
	}},
	{ORAT, func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Production.OilRate < -e.PU.Value(ws.SurfaceRates, fluid.Liquid), nil
	}},
	{WRAT, func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Production.WaterRate < -e.PU.Value(ws.SurfaceRates, fluid.Aqua), nil
	}},
	{GRAT, func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Production.GasRate < -e.PU.Value(ws.SurfaceRates, fluid.Vapour), nil
	}},
	{LRAT, lratViolated},
	{ProdRESV, resvViolated},
	{ProdTHP, thpViolatedProd},
}

var injectionChecks = []injCheck{
	{InjBHP, func(_ *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Injection.BHPLimit < ws.BHP, nil
	}},
	{RATE, func(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		p, err := w.Injection.Phase(w.Name)
		if err != nil {
			return false, err
		}
		return w.Injection.SurfaceRate < e.PU.Value(ws.SurfaceRates, p), nil
	}},
	{InjRESV, func(_ *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
		return w.Injection.ReservoirRate < sum(ws.ReservoirRates), nil
	}},
	{InjTHP, thpViolatedInj},
}

// ProductionPriority lists the producer limits in checking order
func ProductionPriority() []ProducerCMode {
	out := make([]ProducerCMode, len(productionChecks))
	for i, c := range productionChecks {
		out[i] = c.mode
	}
	return out
}

// InjectionPriority lists the injector limits in checking order
func InjectionPriority() []InjectorCMode {
	out := make([]InjectorCMode, len(injectionChecks))
	for i, c := range injectionChecks {
		out[i] = c.mode
	}
	return out
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func lratViolated(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
	ctrl := w.Production
	oil := e.PU.Value(ws.SurfaceRates, fluid.Liquid)
	water := e.PU.Value(ws.SurfaceRates, fluid.Aqua)
	// Equal liquid and oil limits with no water produced leave ORAT in
	// charge
	if ctrl.LiquidRate == ctrl.OilRate && math.Abs(water) < 1e-12 {
		e.logger().Debug("LRAT_ORAT_WELL",
			zap.String("well", w.Name),
			zap.String("detail", "Well "+w.Name+" The LRAT target is equal the ORAT target and the water rate is zero, skip checking LRAT"))
		return false, nil
	}
	return ctrl.LiquidRate < -(oil + water), nil
}

func resvViolated(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
	limit, err := e.ResvLimit(w)
	if err != nil {
		return false, err
	}
	return limit < -sum(ws.ReservoirRates), nil
}

// ResvLimit is the reservoir voidage rate a RESV producer is held to. In
// history mode it is the voidage of the observed surface rates.
func (e *Evaluator) ResvLimit(w *Well) (float64, error) {
	ctrl := w.Production
	if ctrl.PredictionMode {
		return ctrl.ResvRate, nil
	}
	surface := make([]float64, e.PU.NumPhases)
	for _, p := range e.PU.Phases() {
		switch p {
		case fluid.Aqua:
			surface[e.PU.Index(p)] = ctrl.WaterRate
		case fluid.Liquid:
			surface[e.PU.Index(p)] = ctrl.OilRate
		case fluid.Vapour:
			surface[e.PU.Index(p)] = ctrl.GasRate
		}
	}
	voidage, err := e.Conv.CalcReservoirVoidageRates(w.FIPRegion, w.PVTRegion, surface)
	if err != nil {
		return 0, fmt.Errorf("well %s: %w", w.Name, err)
	}
	return sum(voidage), nil
}

func thpViolatedProd(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
	if !(w.Production.THPLimit > ws.THP) || ws.TrivialTarget {
		return false, nil
	}
	if w.PreventTHPSwitch && belowPotentials(ws, -1) {
		ws.THPViolatedButNotSwitched = true
		e.logger().Info("NOT_SWITCHING_TO_THP",
			zap.String("well", w.Name),
			zap.String("detail", "The THP limit is violated for producer "+w.Name+
				". But the rate will increase if switched to THP. The well is therefore kept at its current control"))
		return false, nil
	}
	ws.THPViolatedButNotSwitched = false
	return true, nil
}

func thpViolatedInj(e *Evaluator, w *Well, ws *SingleWellState) (bool, error) {
	if !(w.Injection.THPLimit < ws.THP) {
		return false, nil
	}
	if belowPotentials(ws, 1) {
		ws.THPViolatedButNotSwitched = true
		e.logger().Debug("NOT_SWITCHING_TO_THP",
			zap.String("well", w.Name),
			zap.String("detail", "The THP limit is violated for injector "+w.Name+
				". But the rate will increase if switched to THP. The well is therefore kept at its current control"))
		return false, nil
	}
	ws.THPViolatedButNotSwitched = false
	return true, nil
}

// belowPotentials reports whether sign*rate stays within the potential of
// every phase
func belowPotentials(ws *SingleWellState, sign float64) bool {
	for p := range ws.SurfaceRates {
		if sign*ws.SurfaceRates[p] > ws.Potentials[p] {
			return false
		}
	}
	return true
}

// ActiveProductionConstraint returns the first violated limit of a
// producer, skipping the mode it is already in. The current mode is
// returned when nothing is violated.
func (e *Evaluator) ActiveProductionConstraint(w *Well, ws *SingleWellState) (ProducerCMode, error) {
	if w.Production == nil {
		return ws.ProductionMode, fmt.Errorf("well %s has no production controls", w.Name)
	}
	for _, c := range productionChecks {
		if ws.ProductionMode == c.mode || !w.Production.HasControl(c.mode) {
			continue
		}
		bad, err := c.violated(e, w, ws)
		if err != nil {
			return ws.ProductionMode, err
		}
		if bad {
			return c.mode, nil
		}
	}
	return ws.ProductionMode, nil
}

// ActiveInjectionConstraint is the injector counterpart of
// ActiveProductionConstraint
func (e *Evaluator) ActiveInjectionConstraint(w *Well, ws *SingleWellState) (InjectorCMode, error) {
	if w.Injection == nil {
		return ws.InjectionMode, fmt.Errorf("well %s has no injection controls", w.Name)
	}
	for _, c := range injectionChecks {
		if ws.InjectionMode == c.mode || !w.Injection.HasControl(c.mode) {
			continue
		}
		bad, err := c.violated(e, w, ws)
		if err != nil {
			return ws.InjectionMode, err
		}
		if bad {
			return c.mode, nil
		}
	}
	return ws.InjectionMode, nil
}

// CheckIndividualConstraints switches the well to its active limit and
// reports whether the mode changed
func (e *Evaluator) CheckIndividualConstraints(w *Well, ws *SingleWellState) (bool, error) {
	if w.IsProducer() {
		mode, err := e.ActiveProductionConstraint(w, ws)
		if err != nil || mode == ws.ProductionMode {
			return false, err
		}
		ws.ProductionMode = mode
		return true, nil
	}
	mode, err := e.ActiveInjectionConstraint(w, ws)
	if err != nil || mode == ws.InjectionMode {
		return false, err
	}
	ws.InjectionMode = mode
	return true, nil
}

// CheckConstraints checks the individual limits first and the group
// targets only when those hold
func (e *Evaluator) CheckConstraints(w *Well, state *WellState) (bool, error) {
	ws, ok := state.ByName(w.Name)
	if !ok {
		return false, fmt.Errorf("well %s has no state", w.Name)
	}
	broken, err := e.CheckIndividualConstraints(w, ws)
	if err != nil || broken {
		return broken, err
	}
	return e.CheckGroupConstraints(w, state)
}
