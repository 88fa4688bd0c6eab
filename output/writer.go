package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/arturcastiel/opm-simulators/grid"
	"github.com/arturcastiel/opm-simulators/logging"
)

// ErrWriterFailed is returned once any background write has failed. The
// condition is sticky for the lifetime of the writer.
var ErrWriterFailed = errors.New("output writer failed")

const failureMessage = "Failure in the TaskletRunner while writing output"

// WellReport is the per-well part of a step report
type WellReport struct {
	Name           string    `yaml:"name"`
	Kind           string    `yaml:"kind"`
	Mode           string    `yaml:"mode"`
	BHP            float64   `yaml:"bhp"`
	SurfaceRates   []float64 `yaml:"surface_rates"`
	ReservoirRates []float64 `yaml:"reservoir_rates"`
}

// GroupReport is the per-group part of a step report
type GroupReport struct {
	Name                string    `yaml:"name"`
	ProductionMode      string    `yaml:"production_mode"`
	ProductionReduction []float64 `yaml:"production_reduction"`
	InjectionReduction  []float64 `yaml:"injection_reduction"`
}

type StepReport struct {
	RunID        string        `yaml:"run_id"`
	Step         int           `yaml:"step"`
	Time         float64       `yaml:"time"`
	Iterations   int           `yaml:"iterations"`
	CellPressure []float64     `yaml:"cell_pressure"`
	FaceFlux     []float64     `yaml:"face_flux"`
	Wells        []WellReport  `yaml:"wells"`
	Groups       []GroupReport `yaml:"groups"`
}

// FileName is the report file of a step
func FileName(step int) string {
	return fmt.Sprintf("step_%04d.yaml", step)
}

// Writer serialises step reports to a directory. In async mode at most one
// write is in flight: every dispatch first waits for the previous one.
type Writer struct {
	dir    string
	async  bool
	runID  uuid.UUID
	logger *zap.Logger

	eg     errgroup.Group
	failed atomic.Bool
}

func NewWriter(dir string, async bool, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	w := &Writer{dir: dir, async: async, runID: uuid.New(), logger: logging.OrNop(logger)}
	w.eg.SetLimit(1)
	return w, nil
}

func (w *Writer) RunID() uuid.UUID { return w.runID }

func (w *Writer) Dir() string { return w.dir }

// Failed reports whether a write has failed
func (w *Writer) Failed() bool { return w.failed.Load() }

// Barrier waits for the write in flight and reports a failure of any
// write so far
func (w *Writer) Barrier() error {
	err := w.eg.Wait()
	switch {
	case err != nil:
		return fmt.Errorf("%w: %v", ErrWriterFailed, err)
	case w.failed.Load():
		return ErrWriterFailed
	}
	return nil
}

// Dispatch stamps the report with the run id and writes it, in the
// background when the writer is asynchronous. The report must not be
// modified until the next barrier.
func (w *Writer) Dispatch(report *StepReport) error {
	if err := w.Barrier(); err != nil {
		return err
	}
	report.RunID = w.runID.String()
	if !w.async {
		if err := w.write(report); err != nil {
			w.fail(err)
			return fmt.Errorf("%w: %v", ErrWriterFailed, err)
		}
		return nil
	}
	w.eg.Go(func() error {
		if err := w.write(report); err != nil {
			w.fail(err)
			return err
		}
		return nil
	})
	return nil
}

func (w *Writer) fail(err error) {
	w.failed.Store(true)
	w.logger.Error(failureMessage, zap.Error(err))
}

func (w *Writer) write(report *StepReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal step %d: %w", report.Step, err)
	}
	path := filepath.Join(w.dir, FileName(report.Step))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Debug("Step report written", zap.String("path", path), zap.Int("step", report.Step))
	return nil
}

// Close waits for outstanding writes
func (w *Writer) Close() error {
	return w.Barrier()
}

type nncFile struct {
	RunID string     `yaml:"run_id"`
	NNCs  []nncEntry `yaml:"nncs"`
}

type nncEntry struct {
	Cell1 int     `yaml:"cell1"`
	Cell2 int     `yaml:"cell2"`
	Trans float64 `yaml:"trans"`
}

// WriteNNC writes the exported non-neighbour connections to nnc.yaml.
// It runs synchronously after waiting for pending step reports.
func (w *Writer) WriteNNC(nncs []grid.NNC) error {
	if err := w.Barrier(); err != nil {
		return err
	}
	out := nncFile{RunID: w.runID.String(), NNCs: make([]nncEntry, len(nncs))}
	for i, n := range nncs {
		out.NNCs[i] = nncEntry{Cell1: n.Cell1, Cell2: n.Cell2, Trans: n.Trans}
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal nnc: %w", err)
	}
	path := filepath.Join(w.dir, "nnc.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadStep loads a step report written by a Writer
func ReadStep(dir string, step int) (*StepReport, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName(step)))
	if err != nil {
		return nil, err
	}
	var r StepReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse step %d: %w", step, err)
	}
	return &r, nil
}
