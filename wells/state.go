package wells

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// SingleWellState is the dynamic state of one well. Per-phase arrays are
// laid out by the run's PhaseUsage. Producer rates are negative.
type SingleWellState struct {
	Name     string
	Producer bool

	ProductionMode ProducerCMode
	InjectionMode  InjectorCMode

	SurfaceRates   []float64
	ReservoirRates []float64
	Potentials     []float64 // Positive magnitudes

	BHP float64
	THP float64

	Operable      bool
	TrivialTarget bool

	THPViolatedButNotSwitched bool
}

// NewSingleWellState sizes the phase arrays and takes the initial control
// mode from the well's controls
func NewSingleWellState(w *Well, pu fluid.PhaseUsage) *SingleWellState {
	ws := &SingleWellState{
		Name:           w.Name,
		Producer:       w.IsProducer(),
		SurfaceRates:   make([]float64, pu.NumPhases),
		ReservoirRates: make([]float64, pu.NumPhases),
		Potentials:     make([]float64, pu.NumPhases),
		Operable:       true,
	}
	if w.Production != nil {
		ws.ProductionMode = w.Production.Mode
	}
	if w.Injection != nil {
		ws.InjectionMode = w.Injection.Mode
	}
	return ws
}

// ScaleSurfaceRates multiplies every phase rate by f
func (ws *SingleWellState) ScaleSurfaceRates(f float64) {
	for p := range ws.SurfaceRates {
		ws.SurfaceRates[p] *= f
	}
}

// WellState holds the dynamic state of all wells, addressable by index and
// by name
type WellState struct {
	PU fluid.PhaseUsage

	wells []*SingleWellState
	index map[string]int
}

func NewWellState(pu fluid.PhaseUsage) *WellState {
	return &WellState{PU: pu, index: make(map[string]int)}
}

// Add registers a well and returns its state
func (s *WellState) Add(w *Well) (*SingleWellState, error) {
	if _, ok := s.index[w.Name]; ok {
		return nil, fmt.Errorf("well %s already has a state", w.Name)
	}
	ws := NewSingleWellState(w, s.PU)
	s.index[w.Name] = len(s.wells)
	s.wells = append(s.wells, ws)
	return ws, nil
}

func (s *WellState) Len() int { return len(s.wells) }

func (s *WellState) Well(i int) *SingleWellState { return s.wells[i] }

// ByName returns the state of the named well
func (s *WellState) ByName(name string) (*SingleWellState, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.wells[i], true
}

// Index returns the position of the named well, -1 if absent
func (s *WellState) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

func (s *WellState) NumPhases() int { return s.PU.NumPhases }

// IsProductionGrup reports whether the named producer is under group control
func (s *WellState) IsProductionGrup(name string) bool {
	ws, ok := s.ByName(name)
	return ok && ws.Producer && ws.ProductionMode == ProdGRUP
}

// IsInjectionGrup reports whether the named injector is under group control
func (s *WellState) IsInjectionGrup(name string) bool {
	ws, ok := s.ByName(name)
	return ok && !ws.Producer && ws.InjectionMode == InjGRUP
}
