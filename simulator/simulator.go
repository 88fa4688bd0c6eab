package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arturcastiel/opm-simulators/casefile"
	"github.com/arturcastiel/opm-simulators/fluid"
	"github.com/arturcastiel/opm-simulators/grid"
	"github.com/arturcastiel/opm-simulators/logging"
	"github.com/arturcastiel/opm-simulators/output"
	"github.com/arturcastiel/opm-simulators/solver"
	"github.com/arturcastiel/opm-simulators/tpfa"
	"github.com/arturcastiel/opm-simulators/wells"
)

type Options struct {
	Solver  solver.Solver // Dense LU when nil
	Gravity float64

	MaxNonlinear         int // Iterations per report step, at least one
	MaxSwitchesPerWell   int // Zero means unlimited
	MaxFailedCellsLogged int

	Writer   *output.Writer // Optional
	WriteNNC bool
	Logger   *zap.Logger
}

// Simulator drives the pressure solve and the well control state machine
// for one case. It is not safe for concurrent use.
type Simulator struct {
	model *casefile.Model
	opts  Options
	log   *zap.Logger

	asm   *tpfa.Assembler
	gpres []float64
	wdp   []float64

	conv   *fluid.RateConverter
	state  *wells.WellState
	groups *wells.GroupState
	eval   *wells.Evaluator

	press, rs, rv []float64
	pvtRegion     []int
	fipRegion     []int
	globalCell    []int
	failures      fluid.FailureLog

	switches map[string]int
	solution *tpfa.Solution
}

// Iteration is the outcome of one nonlinear iteration
type Iteration struct {
	Solution *tpfa.Solution
	Switched []string // Wells whose control mode changed
}

func New(m *casefile.Model, opts Options) (*Simulator, error) {
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Solver == nil {
		opts.Solver = solver.DenseLU{}
	}
	if opts.MaxNonlinear < 1 {
		opts.MaxNonlinear = 1
	}

	asm, err := tpfa.NewAssembler(m.Grid, m.Perfs)
	if err != nil {
		return nil, err
	}
	gpres, err := grid.HalfFaceGravity(m.Grid, m.CellDepth, m.FaceDepth, m.Density, opts.Gravity)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		model:    m,
		opts:     opts,
		log:      opts.Logger,
		asm:      asm,
		gpres:    gpres,
		wdp:      wellHeads(m, opts.Gravity),
		conv:     fluid.NewRateConverter(m.PU, m.PVT),
		state:    wells.NewWellState(m.PU),
		groups:   wells.NewGroupState(m.PU.NumPhases),
		switches: make(map[string]int),
	}
	s.groups.InitFromTree(m.Tree)
	s.eval = &wells.Evaluator{
		PU:     m.PU,
		Tree:   m.Tree,
		Groups: s.groups,
		Guide:  m.Guide,
		Conv:   s.conv,
		Logger: opts.Logger,
	}

	for i, w := range m.Wells {
		ws, err := s.state.Add(w)
		if err != nil {
			return nil, err
		}
		copy(ws.Potentials, m.Potentials[i])
	}

	n := m.Grid.NumCells
	s.press = make([]float64, n)
	s.rs = make([]float64, n)
	s.rv = make([]float64, n)
	s.pvtRegion = make([]int, n)
	s.fipRegion = make([]int, n)
	s.globalCell = make([]int, n)
	for c := 0; c < n; c++ {
		s.press[c] = m.Initial.Pressure
		s.rs[c] = m.Initial.Rs
		s.rv[c] = m.Initial.Rv
		s.globalCell[c] = c
	}
	return s, nil
}

// wellHeads is the hydrostatic head of every perforation relative to the
// first perforation of its well
func wellHeads(m *casefile.Model, gravity float64) []float64 {
	perfs := m.Perfs
	if perfs.NumWells() == 0 {
		return nil
	}
	wdp := make([]float64, perfs.NumPerforations())
	for w := 0; w < perfs.NumWells(); w++ {
		lo, hi := perfs.ConnPos[w], perfs.ConnPos[w+1]
		ref := m.CellDepth[perfs.Cells[lo]]
		for i := lo; i < hi; i++ {
			wdp[i] = m.Density * gravity * (m.CellDepth[perfs.Cells[i]] - ref)
		}
	}
	return wdp
}

func (s *Simulator) WellState() *wells.WellState { return s.state }

func (s *Simulator) GroupState() *wells.GroupState { return s.groups }

// Pressure is the current cell pressure
func (s *Simulator) Pressure() []float64 { return s.press }

func (s *Simulator) forces() (*tpfa.Forces, error) {
	F := &tpfa.Forces{BC: s.model.BC, Src: s.model.Src}
	if len(s.model.Wells) == 0 {
		return F, nil
	}
	ctrl := make([]tpfa.WellControl, len(s.model.Wells))
	for i := range s.model.Wells {
		c, err := s.wellControl(i)
		if err != nil {
			return nil, err
		}
		ctrl[i] = c
	}
	F.Wells = &tpfa.Wells{Perfs: s.model.Perfs, WI: s.model.WI, WDP: s.wdp, Controls: ctrl}
	return F, nil
}

// Iterate runs one nonlinear iteration: region averages, pressure solve,
// well rate recovery and the control mode update
func (s *Simulator) Iterate() (*Iteration, error) {
	m := s.model
	if err := s.conv.DefineState(s.press, s.rs, s.rv, m.PoreVolume, s.fipRegion); err != nil {
		return nil, err
	}
	if _, _, err := fluid.SaturationPressures(m.PVT, s.pvtRegion, s.rs, s.rv, s.globalCell, &s.failures); err != nil {
		return nil, err
	}
	s.failures.Report(s.log, s.opts.MaxFailedCellsLogged)
	s.failures.Reset()

	// GRUP targets need reductions that reflect the modes switched in the
	// previous iteration
	if err := s.refreshGroups(); err != nil {
		return nil, err
	}
	F, err := s.forces()
	if err != nil {
		return nil, err
	}
	sol, err := s.asm.Solve(s.opts.Solver, F, m.Trans, s.gpres)
	if err != nil {
		return nil, err
	}
	s.solution = sol
	copy(s.press, sol.CellPress)

	if err := s.recoverWellRates(sol); err != nil {
		return nil, err
	}
	switched, err := s.eval.UpdateWellControls(s.state)
	if err != nil {
		return nil, err
	}
	s.limitSwitches(switched)
	return &Iteration{Solution: sol, Switched: switched}, nil
}

func (s *Simulator) refreshGroups() error {
	if err := s.eval.UpdateGroupAggregates(s.state); err != nil {
		return err
	}
	for _, injector := range []bool{false, true} {
		if _, err := s.eval.UpdateGroupTargetReduction(wells.FieldGroup, s.state, injector); err != nil {
			return fmt.Errorf("group target reduction: %w", err)
		}
	}
	return nil
}

// recoverWellRates distributes the solved reservoir inflow of every well
// over its surface phases
func (s *Simulator) recoverWellRates(sol *tpfa.Solution) error {
	for i, w := range s.model.Wells {
		ws := s.state.Well(i)
		if w.Shut {
			for p := range ws.SurfaceRates {
				ws.SurfaceRates[p], ws.ReservoirRates[p] = 0, 0
			}
			continue
		}
		q := sol.WellRate(i)
		ws.BHP = sol.WellPress[i]
		ws.THP = ws.BHP

		comp, err := s.surfaceComposition(i)
		if err != nil {
			return fmt.Errorf("well %s: %w", w.Name, err)
		}
		for p := range comp {
			ws.SurfaceRates[p] = comp[p] * q
		}

		var resv []float64
		if w.IsInjector() {
			coeff, err := s.coefficients(i)
			if err != nil {
				return err
			}
			resv = make([]float64, len(coeff))
			for p := range coeff {
				resv[p] = coeff[p] * ws.SurfaceRates[p]
			}
		} else if resv, err = s.conv.CalcReservoirVoidageRates(w.FIPRegion, w.PVTRegion, ws.SurfaceRates); err != nil {
			return err
		}
		copy(ws.ReservoirRates, resv)
	}
	return nil
}

// limitSwitches freezes wells that keep oscillating between modes within
// one report step
func (s *Simulator) limitSwitches(switched []string) {
	if s.opts.MaxSwitchesPerWell <= 0 {
		return
	}
	for _, name := range switched {
		s.switches[name]++
		if s.switches[name] < s.opts.MaxSwitchesPerWell {
			continue
		}
		if ws, ok := s.state.ByName(name); ok && ws.Operable {
			ws.Operable = false
			s.log.Warn("Well control oscillates, keeping current mode",
				zap.String("well", name), zap.Int("switches", s.switches[name]))
		}
	}
}

// Step iterates until no well switches control or the iteration limit is
// reached. It returns the number of iterations taken.
func (s *Simulator) Step() (int, error) {
	for name := range s.switches {
		delete(s.switches, name)
	}
	for i := 0; i < s.state.Len(); i++ {
		s.state.Well(i).Operable = true
	}

	for it := 1; it <= s.opts.MaxNonlinear; it++ {
		res, err := s.Iterate()
		if err != nil {
			return it, err
		}
		if len(res.Switched) == 0 {
			return it, nil
		}
	}
	s.log.Debug("Nonlinear iterations exhausted", zap.Int("iterations", s.opts.MaxNonlinear))
	return s.opts.MaxNonlinear, nil
}

// Run simulates steps report steps. Reports go to the writer when one is
// configured, a writer failure stops the run.
func (s *Simulator) Run(ctx context.Context, steps int) error {
	w := s.opts.Writer
	if w != nil && s.opts.WriteNNC {
		nncs := grid.ExportNNCs(s.model.Cart, s.model.Grid, s.model.Trans, s.model.InputNNCs)
		if err := w.WriteNNC(nncs); err != nil {
			return err
		}
	}

	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		iters, err := s.Step()
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		s.log.Info("Report step done", zap.Int("step", step), zap.Int("iterations", iters))
		if w == nil {
			continue
		}
		if err := w.Dispatch(s.report(step, iters)); err != nil {
			return err
		}
	}
	if w != nil {
		return w.Close()
	}
	return nil
}

// report snapshots the state, the writer may still read it after the next
// step has started
func (s *Simulator) report(step, iters int) *output.StepReport {
	r := &output.StepReport{
		Step:         step,
		Time:         float64(step + 1),
		Iterations:   iters,
		CellPressure: append([]float64(nil), s.press...),
	}
	if s.solution != nil {
		r.FaceFlux = append([]float64(nil), s.solution.FaceFlux...)
	}
	for i, w := range s.model.Wells {
		ws := s.state.Well(i)
		mode := ws.ProductionMode.String()
		if w.IsInjector() {
			mode = ws.InjectionMode.String()
		}
		r.Wells = append(r.Wells, output.WellReport{
			Name:           w.Name,
			Kind:           w.Kind.String(),
			Mode:           mode,
			BHP:            ws.BHP,
			SurfaceRates:   append([]float64(nil), ws.SurfaceRates...),
			ReservoirRates: append([]float64(nil), ws.ReservoirRates...),
		})
	}
	for _, name := range s.model.Tree.GroupNames() {
		r.Groups = append(r.Groups, output.GroupReport{
			Name:                name,
			ProductionMode:      s.groups.ProductionControl(name).String(),
			ProductionReduction: append([]float64(nil), s.groups.ProductionReductionRates(name)...),
			InjectionReduction:  append([]float64(nil), s.groups.InjectionReductionRates(name)...),
		})
	}
	return r
}
