package wells

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arturcastiel/opm-simulators/fluid"
)

func testConverter(t *testing.T) (fluid.PhaseUsage, *fluid.RateConverter) {
	pu, err := fluid.NewPhaseUsage(true, true, true)
	require.NoError(t, err)
	pvt := &fluid.LiveOilPVT{Regions: []fluid.RegionPVT{{
		RefPressure: 100,
		WaterFVF:    1.0,
		OilFVF:      1.2,
		GasFVF:      0.01,
		RsSlope:     0.5,
		RsMax:       100,
		RvSlope:     1e-4,
		RvMax:       0.01,
		PMin:        1,
		PMax:        400,
	}}}
	rc := fluid.NewRateConverter(pu, pvt)
	rc.SetAttributes([]fluid.RegionAttributes{{Pressure: 100, Rs: 50, Rv: 0.002}})
	return pu, rc
}

// evaluator for a single well attached to FIELD without group targets
func singleWell(t *testing.T, w *Well) (*Evaluator, *SingleWellState, *observer.ObservedLogs) {
	pu, rc := testConverter(t)
	tree := NewTree()
	require.NoError(t, tree.AddGroup(NewGroup(FieldGroup, "")))
	require.NoError(t, tree.AddWell(w))
	require.NoError(t, tree.Validate())

	state := NewWellState(pu)
	ws, err := state.Add(w)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	gs := NewGroupState(pu.NumPhases)
	gs.InitFromTree(tree)
	return &Evaluator{PU: pu, Tree: tree, Groups: gs, Conv: rc, Logger: zap.New(core)}, ws, logs
}

func TestPriorityTables(t *testing.T) {
	wantProd := []ProducerCMode{ProdBHP, ORAT, WRAT, GRAT, LRAT, ProdRESV, ProdTHP}
	if diff := cmp.Diff(wantProd, ProductionPriority()); diff != "" {
		t.Errorf("production priority mismatch (-want +got):\n%s", diff)
	}
	wantInj := []InjectorCMode{InjBHP, RATE, InjRESV, InjTHP}
	if diff := cmp.Diff(wantInj, InjectionPriority()); diff != "" {
		t.Errorf("injection priority mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstViolatedProducerLimitWins(t *testing.T) {
	ctrl := &ProductionControls{
		Mode:       LRAT,
		Modes:      []ProducerCMode{ProdBHP, ORAT, LRAT},
		BHPLimit:   100,
		OilRate:    500,
		LiquidRate: 800,
	}
	e, ws, _ := singleWell(t, NewProducer("P1", FieldGroup, ctrl))
	ws.BHP = 200
	ws.SurfaceRates = []float64{-300, -600, -1000}
	ws.ProductionMode = ProdBHP

	// ORAT and LRAT are both violated, ORAT is checked first
	mode, err := e.ActiveProductionConstraint(e.Tree.wells["P1"], ws)
	require.NoError(t, err)
	assert.Equal(t, ORAT, mode)

	// A violated BHP limit precedes every rate limit
	ws.ProductionMode = LRAT
	ws.BHP = 50
	mode, err = e.ActiveProductionConstraint(e.Tree.wells["P1"], ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)
}

func TestCurrentModeIsNotRechecked(t *testing.T) {
	ctrl := &ProductionControls{
		Mode:     ProdBHP,
		Modes:    []ProducerCMode{ProdBHP, ORAT},
		BHPLimit: 2000,
		OilRate:  500,
	}
	w := NewProducer("P1", FieldGroup, ctrl)
	e, ws, _ := singleWell(t, w)
	ws.BHP = 1800
	ws.SurfaceRates = []float64{0, -600, 0}

	changed, err := e.CheckIndividualConstraints(w, ws)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ORAT, ws.ProductionMode)

	// Within all limits the mode stays
	ws.SurfaceRates = []float64{0, -400, 0}
	ws.BHP = 2500
	changed, err = e.CheckIndividualConstraints(w, ws)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ORAT, ws.ProductionMode)
}

func TestInjectorWithinRateLimit(t *testing.T) {
	ctrl := &InjectionControls{
		Mode:        InjBHP,
		Modes:       []InjectorCMode{InjBHP, RATE},
		Type:        InjectorWater,
		SurfaceRate: 300,
		BHPLimit:    500,
	}
	w := NewInjector("I1", FieldGroup, ctrl)
	e, ws, _ := singleWell(t, w)
	ws.BHP = 400
	ws.SurfaceRates = []float64{250, 0, 0}

	changed, err := e.CheckIndividualConstraints(w, ws)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, InjBHP, ws.InjectionMode)

	ws.SurfaceRates[0] = 350
	changed, err = e.CheckIndividualConstraints(w, ws)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, RATE, ws.InjectionMode)
}

func TestLiquidLimitEqualToOilLimitIsSkipped(t *testing.T) {
	ctrl := &ProductionControls{
		Mode:       ProdBHP,
		Modes:      []ProducerCMode{ProdBHP, LRAT},
		OilRate:    500,
		LiquidRate: 500,
	}
	w := NewProducer("P1", FieldGroup, ctrl)
	e, ws, logs := singleWell(t, w)
	ws.SurfaceRates = []float64{0, -600, 0}

	mode, err := e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)
	require.Equal(t, 1, logs.FilterMessage("LRAT_ORAT_WELL").Len())

	// Any water production makes LRAT count again
	ws.SurfaceRates[0] = -1
	mode, err = e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, LRAT, mode)
}

func TestProducerTHPSwitchPrevention(t *testing.T) {
	ctrl := &ProductionControls{
		Mode:     ProdBHP,
		Modes:    []ProducerCMode{ProdBHP, ProdTHP},
		THPLimit: 50,
	}
	w := NewProducer("P1", FieldGroup, ctrl)
	w.PreventTHPSwitch = true
	e, ws, logs := singleWell(t, w)
	ws.THP = 40
	ws.SurfaceRates = []float64{-10, -20, -30}
	ws.Potentials = []float64{20, 30, 40}

	mode, err := e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)
	assert.True(t, ws.THPViolatedButNotSwitched)
	assert.Equal(t, 1, logs.FilterMessage("NOT_SWITCHING_TO_THP").Len())

	// Rates above a potential allow the switch
	ws.Potentials[0] = 5
	mode, err = e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdTHP, mode)
	assert.False(t, ws.THPViolatedButNotSwitched)

	// A trivial target never switches to THP
	ws.TrivialTarget = true
	mode, err = e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)
}

func TestInjectorTHPSwitch(t *testing.T) {
	ctrl := &InjectionControls{
		Mode:     InjBHP,
		Modes:    []InjectorCMode{InjBHP, InjTHP},
		Type:     InjectorGas,
		BHPLimit: 1000,
		THPLimit: 100,
	}
	w := NewInjector("I1", FieldGroup, ctrl)
	e, ws, _ := singleWell(t, w)
	ws.THP = 120
	ws.SurfaceRates = []float64{0, 0, 30}
	ws.Potentials = []float64{0, 0, 40}

	mode, err := e.ActiveInjectionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, InjBHP, mode)
	assert.True(t, ws.THPViolatedButNotSwitched)

	ws.SurfaceRates[2] = 50
	mode, err = e.ActiveInjectionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, InjTHP, mode)
}

func TestReservoirLimitFromObservedRates(t *testing.T) {
	ctrl := &ProductionControls{
		Mode:      ProdBHP,
		Modes:     []ProducerCMode{ProdBHP, ProdRESV},
		OilRate:   10,
		WaterRate: 2,
		GasRate:   1000,
	}
	w := NewProducer("P1", FieldGroup, ctrl)
	e, ws, _ := singleWell(t, w)

	// Observed rates convert to about 18.22 reservoir volumes
	ws.ReservoirRates = []float64{-5, -10, -5}
	mode, err := e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdRESV, mode)

	ws.ReservoirRates = []float64{-5, -5, -5}
	mode, err = e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)

	ctrl.PredictionMode = true
	ctrl.ResvRate = 25
	ws.ReservoirRates = []float64{-5, -10, -5}
	mode, err = e.ActiveProductionConstraint(w, ws)
	require.NoError(t, err)
	assert.Equal(t, ProdBHP, mode)
}

func TestUnknownInjectorType(t *testing.T) {
	ctrl := &InjectionControls{
		Mode:        InjBHP,
		Modes:       []InjectorCMode{InjBHP, RATE},
		Type:        InjectorMulti,
		BHPLimit:    1000,
		SurfaceRate: 10,
	}
	w := NewInjector("INJ-X", FieldGroup, ctrl)
	e, ws, _ := singleWell(t, w)

	_, err := e.ActiveInjectionConstraint(w, ws)
	require.ErrorIs(t, err, ErrUnknownInjectorType)
	assert.Contains(t, err.Error(), "INJ-X")
}

func TestParseModes(t *testing.T) {
	m, err := ParseProducerCMode("orat")
	require.NoError(t, err)
	assert.Equal(t, ORAT, m)
	im, err := ParseInjectorCMode("GRUP")
	require.NoError(t, err)
	assert.Equal(t, InjGRUP, im)
	it, err := ParseInjectorType("gas")
	require.NoError(t, err)
	assert.Equal(t, InjectorGas, it)
	gm, err := ParseGroupProdCMode("FLD")
	require.NoError(t, err)
	assert.Equal(t, GFLD, gm)
	gi, err := ParseGroupInjCMode("vrep")
	require.NoError(t, err)
	assert.Equal(t, GInjVREP, gi)

	_, err = ParseProducerCMode("SPEED")
	assert.Error(t, err)
	assert.Equal(t, "RESV", ProdRESV.String())
	assert.Equal(t, "InjectorCMode(42)", InjectorCMode(42).String())
}
