package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/arturcastiel/opm-simulators/grid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func report(step int) *StepReport {
	return &StepReport{
		Step:         step,
		Time:         float64(step) * 10,
		Iterations:   2,
		CellPressure: []float64{100, 150},
		FaceFlux:     []float64{1, -1, 0},
		Wells: []WellReport{{
			Name: "P1", Kind: "producer", Mode: "ORAT", BHP: 90,
			SurfaceRates: []float64{0, -10, -5}, ReservoirRates: []float64{0, -12, -1},
		}},
		Groups: []GroupReport{{Name: "FIELD", ProductionMode: "ORAT", ProductionReduction: []float64{0, 10, 5}}},
	}
}

func TestAsyncWriterOneInFlight(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, true, nil)
	require.NoError(t, err)

	for step := 0; step < 3; step++ {
		require.NoError(t, w.Dispatch(report(step)))
	}
	require.NoError(t, w.Close())

	for step := 0; step < 3; step++ {
		r, err := ReadStep(dir, step)
		require.NoError(t, err)
		assert.Equal(t, step, r.Step)
		assert.Equal(t, w.RunID().String(), r.RunID)
		assert.Equal(t, []float64{100, 150}, r.CellPressure)
		require.Len(t, r.Wells, 1)
		assert.Equal(t, "ORAT", r.Wells[0].Mode)
	}
	assert.FileExists(t, filepath.Join(dir, "step_0002.yaml"))
}

func TestWriterFailureIsSticky(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(dir, true, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	// The failure only surfaces at the next barrier
	require.NoError(t, w.Dispatch(report(0)))
	err = w.Dispatch(report(1))
	require.ErrorIs(t, err, ErrWriterFailed)
	assert.True(t, w.Failed())

	// Restoring the directory does not clear the failure
	require.NoError(t, os.MkdirAll(dir, 0755))
	assert.ErrorIs(t, w.Dispatch(report(2)), ErrWriterFailed)
	assert.ErrorIs(t, w.Close(), ErrWriterFailed)
	_, err = os.Stat(filepath.Join(dir, FileName(2)))
	assert.True(t, os.IsNotExist(err))

	require.Equal(t, 1, logs.FilterMessage(failureMessage).Len())
}

func TestSyncWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sync")
	w, err := NewWriter(dir, false, nil)
	require.NoError(t, err)
	require.NoError(t, w.Dispatch(report(7)))
	assert.FileExists(t, filepath.Join(dir, "step_0007.yaml"))

	require.NoError(t, os.RemoveAll(dir))
	assert.ErrorIs(t, w.Dispatch(report(8)), ErrWriterFailed)
	assert.ErrorIs(t, w.Barrier(), ErrWriterFailed)
}

func TestWriteNNC(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, true, nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteNNC([]grid.NNC{{Cell1: 0, Cell2: 5, Trans: 0.25}}))

	data, err := os.ReadFile(filepath.Join(dir, "nnc.yaml"))
	require.NoError(t, err)
	var back nncFile
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, w.RunID().String(), back.RunID)
	assert.Equal(t, []nncEntry{{Cell1: 0, Cell2: 5, Trans: 0.25}}, back.NNCs)
}
