package wells

import (
	"github.com/arturcastiel/opm-simulators/fluid"
)

type injKey struct {
	group string
	phase fluid.Phase
}

// GroupState holds the dynamic state of the groups: active control modes,
// target reductions from wells and subgroups outside group control, and the
// aggregates used by reinjection and voidage replacement targets.
type GroupState struct {
	np int

	prodMode map[string]GroupProdCMode
	injMode  map[injKey]GroupInjCMode

	prodReduction map[string][]float64
	injReduction  map[string][]float64

	gratSales map[string]float64
	reinRates map[string][]float64
	vrepRate  map[string]float64
}

func NewGroupState(np int) *GroupState {
	return &GroupState{
		np:            np,
		prodMode:      make(map[string]GroupProdCMode),
		injMode:       make(map[injKey]GroupInjCMode),
		prodReduction: make(map[string][]float64),
		injReduction:  make(map[string][]float64),
		gratSales:     make(map[string]float64),
		reinRates:     make(map[string][]float64),
		vrepRate:      make(map[string]float64),
	}
}

// InitFromTree takes the initial control modes from the group definitions
func (gs *GroupState) InitFromTree(t *Tree) {
	for _, name := range t.GroupNames() {
		g := t.groups[name]
		if g.Production != nil {
			gs.SetProductionControl(name, g.Production.Mode)
		}
		for p, ctrl := range g.Injection {
			gs.SetInjectionControl(name, p, ctrl.Mode)
		}
	}
}

func (gs *GroupState) HasProductionControl(group string) bool {
	_, ok := gs.prodMode[group]
	return ok
}

// ProductionControl returns the active mode, NONE when unset
func (gs *GroupState) ProductionControl(group string) GroupProdCMode {
	return gs.prodMode[group]
}

func (gs *GroupState) SetProductionControl(group string, m GroupProdCMode) {
	gs.prodMode[group] = m
}

func (gs *GroupState) InjectionControl(group string, p fluid.Phase) GroupInjCMode {
	return gs.injMode[injKey{group, p}]
}

func (gs *GroupState) SetInjectionControl(group string, p fluid.Phase, m GroupInjCMode) {
	gs.injMode[injKey{group, p}] = m
}

func (gs *GroupState) zeros() []float64 { return make([]float64, gs.np) }

func (gs *GroupState) ProductionReductionRates(group string) []float64 {
	if r, ok := gs.prodReduction[group]; ok {
		return r
	}
	return gs.zeros()
}

func (gs *GroupState) SetProductionReductionRates(group string, r []float64) {
	gs.prodReduction[group] = append([]float64(nil), r...)
}

func (gs *GroupState) InjectionReductionRates(group string) []float64 {
	if r, ok := gs.injReduction[group]; ok {
		return r
	}
	return gs.zeros()
}

func (gs *GroupState) SetInjectionReductionRates(group string, r []float64) {
	gs.injReduction[group] = append([]float64(nil), r...)
}

// GratSalesTarget returns the gas target implied by a sales constraint, zero
// when none applies
func (gs *GroupState) GratSalesTarget(group string) float64 {
	return gs.gratSales[group]
}

func (gs *GroupState) SetGratSalesTarget(group string, v float64) {
	gs.gratSales[group] = v
}

// InjectionREINRates are the surface production rates of a group available
// for reinjection
func (gs *GroupState) InjectionREINRates(group string) []float64 {
	if r, ok := gs.reinRates[group]; ok {
		return r
	}
	return gs.zeros()
}

func (gs *GroupState) SetInjectionREINRates(group string, r []float64) {
	gs.reinRates[group] = append([]float64(nil), r...)
}

// InjectionVREPRate is the reservoir voidage produced by a group
func (gs *GroupState) InjectionVREPRate(group string) float64 {
	return gs.vrepRate[group]
}

func (gs *GroupState) SetInjectionVREPRate(group string, v float64) {
	gs.vrepRate[group] = v
}

// GuideRate stores the explicit guide rates of wells and groups. Wells
// without one are guided by their potentials.
type GuideRate struct {
	prod map[string]float64
	inj  map[injKey]float64
}

func NewGuideRate() *GuideRate {
	return &GuideRate{prod: make(map[string]float64), inj: make(map[injKey]float64)}
}

func (gr *GuideRate) SetProduction(name string, v float64) { gr.prod[name] = v }

func (gr *GuideRate) SetInjection(name string, p fluid.Phase, v float64) {
	gr.inj[injKey{name, p}] = v
}

// Has reports an explicit production guide rate. A nil receiver has none.
func (gr *GuideRate) Has(name string) bool {
	if gr == nil {
		return false
	}
	_, ok := gr.prod[name]
	return ok
}

func (gr *GuideRate) HasInjection(name string, p fluid.Phase) bool {
	if gr == nil {
		return false
	}
	_, ok := gr.inj[injKey{name, p}]
	return ok
}

func (gr *GuideRate) Production(name string) float64 { return gr.prod[name] }

func (gr *GuideRate) Injection(name string, p fluid.Phase) float64 {
	return gr.inj[injKey{name, p}]
}
