package wells

import (
	"math"

	"github.com/arturcastiel/opm-simulators/fluid"
)

const guideRateEpsilon = 1e-12

// FractionCalculator splits a group target among its children in
// proportion to their guide rates. Only children taking part in group
// control share the target; alwaysIncluded names one child counted
// regardless.
type FractionCalculator struct {
	tree     *Tree
	ws       *WellState
	gs       *GroupState
	gr       *GuideRate
	rater    modeRater
	producer bool
	phase    fluid.Phase
}

func NewFractionCalculator(tree *Tree, ws *WellState, gs *GroupState, gr *GuideRate,
	rater modeRater, producer bool, phase fluid.Phase) *FractionCalculator {
	return &FractionCalculator{tree: tree, ws: ws, gs: gs, gr: gr, rater: rater, producer: producer, phase: phase}
}

// LocalFraction is the share of name among its included siblings
func (fc *FractionCalculator) LocalFraction(name, alwaysIncluded string) (float64, error) {
	mine, err := fc.guideRate(name, alwaysIncluded)
	if err != nil {
		return 0, err
	}
	parent, err := fc.tree.Parent(name)
	if err != nil {
		return 0, err
	}
	total, err := fc.guideRateSum(parent, alwaysIncluded)
	if err != nil {
		return 0, err
	}
	// Alone among its siblings, even with a zero guide rate
	if math.Abs(mine-total) < guideRateEpsilon || total <= 0 {
		return 1, nil
	}
	return mine / total, nil
}

func (fc *FractionCalculator) included(child, alwaysIncluded string, isWell bool) bool {
	if child == alwaysIncluded {
		return true
	}
	if isWell {
		if fc.producer {
			return fc.ws.IsProductionGrup(child)
		}
		return fc.ws.IsInjectionGrup(child)
	}
	if fc.producer {
		return fc.gs.ProductionControl(child).inherits()
	}
	return fc.gs.InjectionControl(child, fc.phase).inherits()
}

func (fc *FractionCalculator) guideRateSum(group, alwaysIncluded string) (float64, error) {
	var total float64
	for _, child := range fc.tree.ChildGroups(group) {
		if !fc.included(child, alwaysIncluded, false) {
			continue
		}
		v, err := fc.guideRate(child, alwaysIncluded)
		if err != nil {
			return 0, err
		}
		total += v
	}
	for _, child := range fc.tree.ChildWells(group) {
		if !fc.included(child, alwaysIncluded, true) {
			continue
		}
		v, err := fc.guideRate(child, alwaysIncluded)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (fc *FractionCalculator) guideRate(name, alwaysIncluded string) (float64, error) {
	if fc.tree.HasWell(name) {
		return fc.wellGuideRate(name), nil
	}
	if fc.groupControlledWells(name, alwaysIncluded) == 0 {
		return 0, nil
	}
	if fc.producer && fc.gr.Has(name) {
		return fc.gr.Production(name), nil
	}
	if !fc.producer && fc.gr.HasInjection(name, fc.phase) {
		return fc.gr.Injection(name, fc.phase), nil
	}
	// Default group guide rate accumulates the children's
	g, err := fc.tree.Group(name)
	if err != nil {
		return 0, err
	}
	sum, err := fc.guideRateSum(name, alwaysIncluded)
	if err != nil {
		return 0, err
	}
	return g.Efficiency * sum, nil
}

func (fc *FractionCalculator) wellGuideRate(name string) float64 {
	if fc.producer && fc.gr.Has(name) {
		return fc.gr.Production(name)
	}
	if !fc.producer && fc.gr.HasInjection(name, fc.phase) {
		return fc.gr.Injection(name, fc.phase)
	}
	ws, ok := fc.ws.ByName(name)
	if !ok {
		return 0
	}
	return fc.rater.CalcModeRateFromRates(ws.Potentials)
}

// groupControlledWells counts the open wells below group that respond to
// group control
func (fc *FractionCalculator) groupControlledWells(group, alwaysIncluded string) int {
	return countGroupControlledWells(fc.tree, fc.ws, fc.gs, group, alwaysIncluded, fc.producer, fc.phase)
}

func countGroupControlledWells(tree *Tree, ws *WellState, gs *GroupState, group, alwaysIncluded string,
	producer bool, phase fluid.Phase) int {
	n := 0
	for _, child := range tree.ChildGroups(group) {
		var inherits bool
		if producer {
			inherits = gs.ProductionControl(child).inherits()
		} else {
			inherits = gs.InjectionControl(child, phase).inherits()
		}
		if child == alwaysIncluded || inherits {
			n += countGroupControlledWells(tree, ws, gs, child, alwaysIncluded, producer, phase)
		}
	}
	for _, name := range tree.ChildWells(group) {
		w, _ := tree.Well(name)
		if w.Shut || w.IsProducer() != producer {
			continue
		}
		if _, ok := ws.ByName(name); !ok {
			continue
		}
		if name == alwaysIncluded {
			n++
			continue
		}
		if producer && ws.IsProductionGrup(name) || !producer && ws.IsInjectionGrup(name) {
			n++
		}
	}
	return n
}
