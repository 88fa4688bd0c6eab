package fluid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testPVT() *LiveOilPVT {
	return &LiveOilPVT{Regions: []RegionPVT{{
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
}

func threePhase(t *testing.T) PhaseUsage {
	pu, err := NewPhaseUsage(true, true, true)
	require.NoError(t, err)
	return pu
}

func TestPhaseUsage(t *testing.T) {
	pu, err := NewPhaseUsage(true, true, false)
	require.NoError(t, err)
	assert.Equal(t, 2, pu.NumPhases)
	assert.Equal(t, 0, pu.Index(Aqua))
	assert.Equal(t, 1, pu.Index(Liquid))
	assert.Equal(t, -1, pu.Index(Vapour))
	assert.Equal(t, []Phase{Aqua, Liquid}, pu.Phases())
	assert.Equal(t, 0.0, pu.Value([]float64{1, 2}, Vapour))
	assert.Equal(t, 2.0, pu.Value([]float64{1, 2}, Liquid))

	_, err = NewPhaseUsage(false, false, false)
	assert.Error(t, err)

	p, err := ParsePhase("Gas")
	require.NoError(t, err)
	assert.Equal(t, Vapour, p)
	assert.Equal(t, "oil", Liquid.String())
}

func TestRateConverterCoefficients(t *testing.T) {
	rc := NewRateConverter(threePhase(t), testPVT())
	rc.SetAttributes([]RegionAttributes{{Pressure: 100, Rs: 50, Rv: 0.002}})

	coeff, err := rc.CalcCoeff(0, 0)
	require.NoError(t, err)
	assert.InDeltaSlicef(t, []float64{1, 0.7 / 0.9, 0.0076 / 0.9}, coeff, 1e-12, "production coefficients")

	inj, err := rc.CalcInjCoeff(0, 0)
	require.NoError(t, err)
	assert.InDeltaSlicef(t, []float64{1, 1.2, 0.01}, inj, 1e-12, "injection coefficients")

	surface := []float64{2, 10, 1000}
	voidage, err := rc.CalcReservoirVoidageRates(0, 0, surface)
	require.NoError(t, err)
	assert.InDeltaSlicef(t, []float64{2, 1.2 * 8 / 0.9, 5 / 0.9}, voidage, 1e-12, "voidage")

	// The coefficients are the linearisation of the voidage conversion
	var total, linear float64
	for i := range surface {
		total += voidage[i]
		linear += coeff[i] * surface[i]
	}
	assert.InDelta(t, total, linear, 1e-12)
}

func TestRateConverterWithoutGas(t *testing.T) {
	pu, err := NewPhaseUsage(true, true, false)
	require.NoError(t, err)
	rc := NewRateConverter(pu, testPVT())
	rc.SetAttributes([]RegionAttributes{{Pressure: 100, Rs: 50, Rv: 0.002}})

	// Dissolved gas is ignored when the gas phase is inactive
	coeff, err := rc.CalcCoeff(0, 0)
	require.NoError(t, err)
	assert.InDeltaSlicef(t, []float64{1, 1.2}, coeff, 1e-12, "two phase coefficients")

	_, err = rc.CalcReservoirVoidageRates(0, 0, []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = rc.CalcCoeff(4, 0)
	assert.Error(t, err)
}

func TestDefineStateWeightsByPoreVolume(t *testing.T) {
	rc := NewRateConverter(threePhase(t), testPVT())
	err := rc.DefineState(
		[]float64{100, 200, 50},
		[]float64{10, 30, 0},
		[]float64{0, 0.004, 0},
		[]float64{1, 3, 2},
		[]int{0, 0, 1},
	)
	require.NoError(t, err)

	ra, err := rc.Attributes(0)
	require.NoError(t, err)
	assert.InDelta(t, 175.0, ra.Pressure, 1e-12)
	assert.InDelta(t, 25.0, ra.Rs, 1e-12)
	assert.InDelta(t, 0.003, ra.Rv, 1e-12)

	ra, err = rc.Attributes(1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, ra.Pressure)

	assert.Error(t, rc.DefineState([]float64{1}, nil, nil, nil, nil))
}

func TestSaturationPressureRoots(t *testing.T) {
	pvt := testPVT()

	pb, err := pvt.BubblePoint(0, 50)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, pb, 1e-6)

	pd, err := pvt.DewPoint(0, 0.002)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, pd, 1e-6)

	_, err = pvt.BubblePoint(0, 500)
	assert.ErrorIs(t, err, ErrNumericalProblem)
	_, err = pvt.DewPoint(0, 0.02)
	assert.ErrorIs(t, err, ErrNumericalProblem)

	_, err = pvt.BubblePoint(3, 1)
	if err == nil || errors.Is(err, ErrNumericalProblem) {
		t.Errorf("Expected a region error, got %v", err)
	}
}

func TestSaturationPressuresRecordFailures(t *testing.T) {
	var log FailureLog
	pb, pd, err := SaturationPressures(testPVT(),
		[]int{0, 0, 0},
		[]float64{50, 500, 10},
		[]float64{0.002, 0.001, 0.05},
		[]int{40, 41, 42},
		&log)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, pb[0], 1e-6)
	assert.Equal(t, 0.0, pb[1])
	assert.InDelta(t, 10.0, pd[1], 1e-6)
	assert.Equal(t, []int{41}, log.Cells(BubblePointFailure))
	assert.Equal(t, []int{42}, log.Cells(DewPointFailure))

	_, _, err = SaturationPressures(testPVT(), []int{5}, []float64{1}, []float64{0}, []int{0}, &log)
	assert.Error(t, err)
}

func TestFailureLogMessage(t *testing.T) {
	var a, b FailureLog
	a.Record(BubblePointFailure, 7)
	a.Record(BubblePointFailure, 3)
	b.Record(BubblePointFailure, 5)
	a.Merge(&b, nil)

	assert.Equal(t, "Finding the bubble point pressure failed for 3 cells [3, 5, 7]", a.Message(BubblePointFailure, 20))
	assert.Equal(t, "Finding the bubble point pressure failed for 3 cells [3, 5, ...]", a.Message(BubblePointFailure, 2))
	assert.Equal(t, "", a.Message(DewPointFailure, 20))

	a.Reset()
	assert.Equal(t, 0, a.Len(BubblePointFailure))
}

func TestFailureLogReport(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	var log FailureLog
	for c := 30; c > 0; c-- {
		log.Record(DewPointFailure, c)
	}
	log.Report(logger, 20)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Dew point numerical problem", entries[0].Message)
	detail := entries[0].ContextMap()["detail"].(string)
	assert.Contains(t, detail, "failed for 30 cells [1, 2, 3")
	assert.Contains(t, detail, ", 20, ...]")
	assert.NotContains(t, detail, "21")
}
