package wells

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// counted reports whether a well takes part in the sums of a producing
// (injector false) or injecting group
func counted(w *Well, state *WellState, injector bool) (*SingleWellState, bool) {
	if w.Shut || w.IsInjector() != injector {
		return nil, false
	}
	return state.ByName(w.Name)
}

// sumWellRates accumulates the efficiency weighted surface (or reservoir)
// rates of the wells below group in one phase. Production sums are
// returned positive.
func (e *Evaluator) sumWellRates(group string, state *WellState, pos int, injector, reservoir bool) (float64, error) {
	var rate float64
	for _, child := range e.Tree.ChildGroups(group) {
		g, err := e.Tree.Group(child)
		if err != nil {
			return 0, err
		}
		sub, err := e.sumWellRates(child, state, pos, injector, reservoir)
		if err != nil {
			return 0, err
		}
		rate += g.Efficiency * sub
	}
	for _, name := range e.Tree.ChildWells(group) {
		w, _ := e.Tree.Well(name)
		ws, ok := counted(w, state, injector)
		if !ok {
			continue
		}
		v := ws.SurfaceRates[pos]
		if reservoir {
			v = ws.ReservoirRates[pos]
		}
		if injector {
			rate += w.Efficiency * v
		} else {
			rate -= w.Efficiency * v
		}
	}
	return rate, nil
}

// UpdateGroupTargetReduction recomputes, below and including group, the
// rates that group targets must be reduced by: wells and subgroups outside
// group control consume part of the target.
func (e *Evaluator) UpdateGroupTargetReduction(group string, state *WellState, injector bool) ([]float64, error) {
	np := e.PU.NumPhases
	reduction := make([]float64, np)

	for _, child := range e.Tree.ChildGroups(group) {
		sub, err := e.Tree.Group(child)
		if err != nil {
			return nil, err
		}
		subReduction, err := e.UpdateGroupTargetReduction(child, state, injector)
		if err != nil {
			return nil, err
		}
		if injector {
			for _, p := range e.PU.Phases() {
				pos := e.PU.Index(p)
				individual := !e.Groups.InjectionControl(child, p).inherits()
				controlled := countGroupControlledWells(e.Tree, state, e.Groups, child, "", false, p)
				switch {
				case individual || controlled == 0:
					v, err := e.sumWellRates(child, state, pos, true, false)
					if err != nil {
						return nil, err
					}
					reduction[pos] += v * sub.Efficiency
				case !e.Guide.HasInjection(child, p):
					reduction[pos] += subReduction[pos] * sub.Efficiency
				}
			}
			continue
		}

		individual := !e.Groups.ProductionControl(child).inherits()
		controlled := countGroupControlledWells(e.Tree, state, e.Groups, child, "", true, fluid.Liquid)
		switch {
		case individual || controlled == 0:
			for pos := 0; pos < np; pos++ {
				v, err := e.sumWellRates(child, state, pos, false, false)
				if err != nil {
					return nil, err
				}
				reduction[pos] += sub.Efficiency * v
			}
		case !e.Guide.Has(child):
			// A subgroup with its own guide rate carries its reduction
			// itself
			for pos := 0; pos < np; pos++ {
				reduction[pos] += sub.Efficiency * subReduction[pos]
			}
		}
	}

	for _, name := range e.Tree.ChildWells(group) {
		w, _ := e.Tree.Well(name)
		ws, ok := counted(w, state, injector)
		if !ok {
			continue
		}
		if injector {
			if ws.InjectionMode != InjGRUP {
				for pos := 0; pos < np; pos++ {
					reduction[pos] += ws.SurfaceRates[pos] * w.Efficiency
				}
			}
		} else if ws.ProductionMode != ProdGRUP {
			for pos := 0; pos < np; pos++ {
				reduction[pos] -= ws.SurfaceRates[pos] * w.Efficiency
			}
		}
	}

	if injector {
		e.Groups.SetInjectionReductionRates(group, reduction)
	} else {
		e.Groups.SetProductionReductionRates(group, reduction)
	}
	return reduction, nil
}

// UpdateGroupAggregates stores, per group, the produced surface rates
// available for reinjection and the produced reservoir voidage
func (e *Evaluator) UpdateGroupAggregates(state *WellState) error {
	np := e.PU.NumPhases
	for _, name := range e.Tree.GroupNames() {
		rein := make([]float64, np)
		var voidage float64
		for pos := 0; pos < np; pos++ {
			v, err := e.sumWellRates(name, state, pos, false, false)
			if err != nil {
				return err
			}
			rein[pos] = v
			r, err := e.sumWellRates(name, state, pos, false, true)
			if err != nil {
				return err
			}
			voidage += r
		}
		e.Groups.SetInjectionREINRates(name, rein)
		e.Groups.SetInjectionVREPRate(name, voidage)
	}
	return nil
}

// UpdateWellControls refreshes the group quantities and then checks every
// open, operable well, switching those whose active constraint changed.
// The names of the switched wells are returned in tree order.
func (e *Evaluator) UpdateWellControls(state *WellState) ([]string, error) {
	if err := e.UpdateGroupAggregates(state); err != nil {
		return nil, err
	}
	for _, injector := range []bool{false, true} {
		if _, err := e.UpdateGroupTargetReduction(FieldGroup, state, injector); err != nil {
			return nil, fmt.Errorf("group target reduction: %w", err)
		}
	}

	var switched []string
	for _, name := range e.Tree.WellNames() {
		w, _ := e.Tree.Well(name)
		ws, ok := state.ByName(name)
		if !ok || w.Shut || !ws.Operable {
			continue
		}
		from := ws.ProductionMode.String()
		if w.IsInjector() {
			from = ws.InjectionMode.String()
		}
		changed, err := e.CheckConstraints(w, state)
		if err != nil {
			return switched, err
		}
		if !changed {
			continue
		}
		to := ws.ProductionMode.String()
		if w.IsInjector() {
			to = ws.InjectionMode.String()
		}
		e.logger().Info("Switching control mode for well",
			zap.String("well", name), zap.String("from", from), zap.String("to", to))
		switched = append(switched, name)
	}
	return switched, nil
}
