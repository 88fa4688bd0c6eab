package wells

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arturcastiel/opm-simulators/fluid"
)

func TestTreeValidate(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.AddGroup(NewGroup("A", "B")))
	require.NoError(t, tree.AddGroup(NewGroup("B", "A")))
	assert.ErrorIs(t, tree.Validate(), ErrNoFieldRoot)

	require.NoError(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	assert.ErrorIs(t, tree.Validate(), ErrGroupCycle)

	tree = NewTree()
	require.NoError(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	require.NoError(t, tree.AddGroup(NewGroup("G1", "NOWHERE")))
	assert.ErrorIs(t, tree.Validate(), ErrUnknownGroup)

	tree = NewTree()
	require.NoError(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	require.NoError(t, tree.AddWell(NewProducer("P1", "G9", &ProductionControls{})))
	assert.ErrorIs(t, tree.Validate(), ErrUnknownGroup)

	assert.Error(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	assert.Error(t, tree.AddWell(NewProducer("P2", "", &ProductionControls{})))
}

func TestChainTopBot(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	require.NoError(t, tree.AddGroup(NewGroup("G1", FieldGroup)))
	require.NoError(t, tree.AddWell(NewProducer("A", "G1", &ProductionControls{})))
	require.NoError(t, tree.Validate())

	chain, err := tree.ChainTopBot("A", FieldGroup)
	require.NoError(t, err)
	assert.Equal(t, []string{FieldGroup, "G1", "A"}, chain)

	chain, err = tree.ChainTopBot("A", "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "A"}, chain)

	_, err = tree.ChainTopBot("G1", "A")
	assert.Error(t, err)
}

type groupFixture struct {
	e     *Evaluator
	state *WellState
	logs  *observer.ObservedLogs
}

// FIELD produces oil under an ORAT target and optionally has subgroups
func newFixture(t *testing.T, build func(tree *Tree)) *groupFixture {
	pu, rc := testConverter(t)
	tree := NewTree()
	field := NewGroup(FieldGroup, "")
	field.Production = &GroupProductionControls{Mode: GORAT, OilTarget: 1000}
	field.Injection = map[fluid.Phase]*GroupInjectionControls{fluid.Aqua: {Mode: GInjRATE, SurfaceMaxRate: 500}}
	require.NoError(t, tree.AddGroup(field))
	build(tree)
	require.NoError(t, tree.Validate())

	state := NewWellState(pu)
	for _, name := range tree.WellNames() {
		w, _ := tree.Well(name)
		_, err := state.Add(w)
		require.NoError(t, err)
	}
	gs := NewGroupState(pu.NumPhases)
	gs.InitFromTree(tree)

	core, logs := observer.New(zapcore.DebugLevel)
	e := &Evaluator{PU: pu, Tree: tree, Groups: gs, Guide: NewGuideRate(), Conv: rc, Logger: zap.New(core)}
	return &groupFixture{e: e, state: state, logs: logs}
}

func (f *groupFixture) ws(name string) *SingleWellState {
	ws, _ := f.state.ByName(name)
	return ws
}

func (f *groupFixture) well(name string) *Well {
	w, _ := f.e.Tree.Well(name)
	return w
}

func twoProducers(tree *Tree) {
	p1 := NewProducer("P1", FieldGroup, &ProductionControls{Mode: ORAT, Modes: []ProducerCMode{ProdBHP, ORAT}, BHPLimit: 50, OilRate: 900})
	p2 := NewProducer("P2", FieldGroup, &ProductionControls{Mode: ProdGRUP, Modes: []ProducerCMode{ProdBHP}, BHPLimit: 50})
	_ = tree.AddWell(p1)
	_ = tree.AddWell(p2)
}

func (f *groupFixture) setTwoProducerRates() {
	p1, p2 := f.ws("P1"), f.ws("P2")
	p1.BHP, p2.BHP = 100, 100
	p1.SurfaceRates = []float64{0, -800, 0}
	p1.Potentials = []float64{0, 600, 0}
	p2.SurfaceRates = []float64{0, -250, 0}
	p2.Potentials = []float64{0, 300, 0}
}

func TestTargetReductionFromIndividualWells(t *testing.T) {
	f := newFixture(t, twoProducers)
	f.setTwoProducerRates()

	red, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 800, 0}, red, 1e-12)
	assert.InDeltaSlice(t, red, f.e.Groups.ProductionReductionRates(FieldGroup), 0)
}

func TestGroupProductionTargetScale(t *testing.T) {
	f := newFixture(t, twoProducers)
	f.setTwoProducerRates()
	_, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, false)
	require.NoError(t, err)

	// 1000 minus the 800 taken by P1 is left for P2, which produces 250
	field, err := f.e.Tree.Group(FieldGroup)
	require.NoError(t, err)
	scale, err := f.e.GroupProductionTargetRate(f.well("P2"), field, f.state, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, scale, 1e-12)

	// A target fully consumed gives zero
	f.e.Groups.SetProductionReductionRates(FieldGroup, []float64{0, 1200, 0})
	scale, err = f.e.GroupProductionTargetRate(f.well("P2"), field, f.state, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, scale)
}

func TestCheckGroupConstraintsSwitchesToGroupControl(t *testing.T) {
	f := newFixture(t, twoProducers)
	f.setTwoProducerRates()

	switched, err := f.e.UpdateWellControls(f.state)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, switched)

	// P1 gets 1000 * 600/900 after its own rate is added back
	p1 := f.ws("P1")
	assert.Equal(t, ProdGRUP, p1.ProductionMode)
	assert.InDelta(t, -2000.0/3.0, p1.SurfaceRates[1], 1e-9)
	assert.Equal(t, 1, f.logs.FilterMessage("Switching control mode for well").Len())

	// Wells already under group control are left alone
	changed, err := f.e.CheckGroupConstraints(f.well("P2"), f.state)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGroupConstraintHeld(t *testing.T) {
	f := newFixture(t, twoProducers)
	f.setTwoProducerRates()
	f.ws("P1").SurfaceRates[1] = -500
	_, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, false)
	require.NoError(t, err)

	changed, err := f.e.CheckConstraints(f.well("P1"), f.state)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ORAT, f.ws("P1").ProductionMode)
}

func subgroups(tree *Tree) {
	g1 := NewGroup("G1", FieldGroup)
	g2 := NewGroup("G2", FieldGroup)
	_ = tree.AddGroup(g1)
	_ = tree.AddGroup(g2)
	for _, w := range []struct{ name, group string }{{"A", "G1"}, {"B", "G1"}, {"C", "G2"}} {
		_ = tree.AddWell(NewProducer(w.name, w.group, &ProductionControls{Mode: ProdGRUP, Modes: []ProducerCMode{ProdBHP}}))
	}
}

func (f *groupFixture) setSubgroupPotentials() {
	for name, pot := range map[string]float64{"A": 100, "B": 200, "C": 300} {
		ws := f.ws(name)
		ws.Potentials = []float64{0, pot, 0}
		ws.SurfaceRates = []float64{0, -pot / 2, 0}
	}
	f.e.Groups.SetProductionControl("G1", GFLD)
	f.e.Groups.SetProductionControl("G2", GFLD)
}

func TestFractionsFromGuideRates(t *testing.T) {
	f := newFixture(t, subgroups)
	f.setSubgroupPotentials()

	tcalc, err := NewTargetCalculator(GORAT, f.e.PU, nil, 0)
	require.NoError(t, err)
	fc := NewFractionCalculator(f.e.Tree, f.state, f.e.Groups, f.e.Guide, tcalc, true, fluid.Liquid)

	g1, err := fc.LocalFraction("G1", "")
	require.NoError(t, err)
	g2, err := fc.LocalFraction("G2", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, g1, 1e-12)
	assert.InDelta(t, 1.0, g1+g2, 1e-12)

	a, err := fc.LocalFraction("A", "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, a, 1e-12)

	// An explicit group guide rate replaces the accumulated one
	f.e.Guide.SetProduction("G2", 900)
	g1, err = fc.LocalFraction("G1", "")
	require.NoError(t, err)
	g2, err = fc.LocalFraction("G2", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, g1, 1e-12)
	assert.InDelta(t, 1.0, g1+g2, 1e-12)

	// A sole child gets everything
	c, err := fc.LocalFraction("C", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)
}

func TestTargetPassedThroughSubgroups(t *testing.T) {
	f := newFixture(t, subgroups)
	f.e.Tree.groups[FieldGroup].Production.OilTarget = 1200
	f.setSubgroupPotentials()
	_, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, false)
	require.NoError(t, err)

	// FIELD splits 1200 evenly between G1 and G2, G1 gives A a third
	g1, err := f.e.Tree.Group("G1")
	require.NoError(t, err)
	scale, err := f.e.GroupProductionTargetRate(f.well("A"), g1, f.state, 1)
	require.NoError(t, err)
	assert.InDelta(t, 200.0/50.0, scale, 1e-12)
}

func TestGroupInjectionTargetRate(t *testing.T) {
	f := newFixture(t, func(tree *Tree) {
		for _, name := range []string{"I1", "I2"} {
			_ = tree.AddWell(NewInjector(name, FieldGroup, &InjectionControls{Mode: InjGRUP, Modes: []InjectorCMode{InjBHP}, Type: InjectorWater}))
		}
	})
	f.ws("I1").Potentials = []float64{100, 0, 0}
	f.ws("I2").Potentials = []float64{300, 0, 0}
	_, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, true)
	require.NoError(t, err)

	field, err := f.e.Tree.Group(FieldGroup)
	require.NoError(t, err)
	rate, ok, err := f.e.GroupInjectionTargetRate(f.well("I1"), field, f.state, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 125.0, rate, 1e-12)

	// No gas injection target anywhere
	gas := NewInjector("I3", FieldGroup, &InjectionControls{Type: InjectorGas})
	_, ok, err = f.e.GroupInjectionTargetRate(gas, field, f.state, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

// G1 carries its own water guide rate, so the rate I1 injects under its own
// control is taken off G1's share only
func TestGuidedSubgroupInjectionReduction(t *testing.T) {
	f := newFixture(t, func(tree *Tree) {
		_ = tree.AddGroup(NewGroup("G1", FieldGroup))
		_ = tree.AddWell(NewInjector("I1", "G1", &InjectionControls{Mode: RATE, Modes: []InjectorCMode{InjBHP}, Type: InjectorWater, SurfaceRate: 100}))
		_ = tree.AddWell(NewInjector("I2", "G1", &InjectionControls{Mode: InjGRUP, Modes: []InjectorCMode{InjBHP}, Type: InjectorWater}))
	})
	f.e.Groups.SetInjectionControl("G1", fluid.Aqua, GInjFLD)
	f.e.Guide.SetInjection("G1", fluid.Aqua, 1)
	f.ws("I1").SurfaceRates = []float64{100, 0, 0}
	f.ws("I2").Potentials = []float64{300, 0, 0}

	red, err := f.e.UpdateGroupTargetReduction(FieldGroup, f.state, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, red, 0)
	assert.InDeltaSlice(t, []float64{100, 0, 0}, f.e.Groups.InjectionReductionRates("G1"), 0)

	g1, err := f.e.Tree.Group("G1")
	require.NoError(t, err)
	rate, ok, err := f.e.GroupInjectionTargetRate(f.well("I2"), g1, f.state, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 400.0, rate, 1e-12)

	// Without the guide rate FIELD takes the reduction over from G1
	f.e.Guide = NewGuideRate()
	red, err = f.e.UpdateGroupTargetReduction(FieldGroup, f.state, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{100, 0, 0}, red, 0)
	rate, _, err = f.e.GroupInjectionTargetRate(f.well("I2"), g1, f.state, 1)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, rate, 1e-12)
}

func TestCheckGroupConstraintsSwitchesInjectorToGroupControl(t *testing.T) {
	f := newFixture(t, func(tree *Tree) {
		_ = tree.AddWell(NewInjector("I1", FieldGroup, &InjectionControls{Mode: RATE, Modes: []InjectorCMode{InjBHP}, Type: InjectorWater, SurfaceRate: 400, BHPLimit: 500}))
		_ = tree.AddWell(NewInjector("I2", FieldGroup, &InjectionControls{Mode: InjGRUP, Modes: []InjectorCMode{InjBHP}, Type: InjectorWater, BHPLimit: 500}))
	})
	i1, i2 := f.ws("I1"), f.ws("I2")
	i1.BHP, i2.BHP = 100, 100
	i1.SurfaceRates = []float64{400, 0, 0}
	i1.Potentials = []float64{100, 0, 0}
	i2.SurfaceRates = []float64{200, 0, 0}
	i2.Potentials = []float64{300, 0, 0}

	switched, err := f.e.UpdateWellControls(f.state)
	require.NoError(t, err)
	assert.Equal(t, []string{"I1"}, switched)

	// 500 less the 400 of I1, plus its own rate back, times 100/400
	assert.Equal(t, InjGRUP, i1.InjectionMode)
	assert.InDelta(t, 125.0, i1.SurfaceRates[0], 1e-9)
	assert.Equal(t, 1, f.logs.FilterMessage("Injector switched to group control").Len())

	changed, err := f.e.CheckGroupConstraints(f.well("I2"), f.state)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.InDelta(t, 200.0, i2.SurfaceRates[0], 0)
}

func TestReinjectionAggregates(t *testing.T) {
	f := newFixture(t, twoProducers)
	f.setTwoProducerRates()
	f.ws("P1").ReservoirRates = []float64{-1, -2, -3}
	f.ws("P2").ReservoirRates = []float64{0, -4, 0}
	require.NoError(t, f.e.UpdateGroupAggregates(f.state))

	assert.InDeltaSlice(t, []float64{0, 1050, 0}, f.e.Groups.InjectionREINRates(FieldGroup), 1e-12)
	assert.InDelta(t, 10.0, f.e.Groups.InjectionVREPRate(FieldGroup), 1e-12)

	pu := f.e.PU
	coeff := []float64{1, 1, 1}
	tc, err := NewInjectionTargetCalculator(GInjREIN, pu, coeff, FieldGroup, 0, f.e.Groups, fluid.Liquid)
	require.NoError(t, err)
	target, err := tc.GroupTarget(&GroupInjectionControls{TargetReinjFraction: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 525.0, target, 1e-12)

	tc, err = NewInjectionTargetCalculator(GInjVREP, pu, []float64{2, 1, 1}, FieldGroup, 0, f.e.Groups, fluid.Aqua)
	require.NoError(t, err)
	target, err = tc.GroupTarget(&GroupInjectionControls{TargetVoidFraction: 1})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, target, 1e-12)

	_, err = NewTargetCalculator(GPRBL, pu, nil, 0)
	assert.Error(t, err)
	_, err = NewTargetCalculator(GRESV, pu, []float64{1}, 0)
	assert.Error(t, err)
}

func TestSalesTargetOverridesGasTarget(t *testing.T) {
	pu, _ := testConverter(t)
	tc, err := NewTargetCalculator(GGRAT, pu, nil, 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, tc.GroupTarget(&GroupProductionControls{GasTarget: 70}))
	assert.Equal(t, GuideGas, tc.GuideTargetMode())

	tc, err = NewTargetCalculator(GLRAT, pu, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, tc.CalcModeRateFromRates([]float64{3, 4, 100}))
}
