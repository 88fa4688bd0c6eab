package wells

import (
	"errors"
	"fmt"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// ErrUnknownInjectorType reports an injector whose fluid is not water, oil
// or gas where a single phase is required
var ErrUnknownInjectorType = errors.New("expected WATER, OIL or GAS as type for injector")

// ProductionControls are the scheduled limits of a producer. Rates are
// positive magnitudes; current rates of producers are negative.
type ProductionControls struct {
	Mode  ProducerCMode   // Initial control mode
	Modes []ProducerCMode // Limits in effect

	BHPLimit   float64
	THPLimit   float64
	OilRate    float64
	WaterRate  float64
	GasRate    float64
	LiquidRate float64
	ResvRate   float64

	// History matching wells (not in prediction mode) derive their RESV
	// target from the observed phase rates
	PredictionMode bool
}

func (c *ProductionControls) HasControl(m ProducerCMode) bool {
	for _, have := range c.Modes {
		if have == m {
			return true
		}
	}
	return false
}

// InjectionControls are the scheduled limits of an injector
type InjectionControls struct {
	Mode  InjectorCMode
	Modes []InjectorCMode
	Type  InjectorType

	SurfaceRate   float64
	ReservoirRate float64
	BHPLimit      float64
	THPLimit      float64
}

func (c *InjectionControls) HasControl(m InjectorCMode) bool {
	for _, have := range c.Modes {
		if have == m {
			return true
		}
	}
	return false
}

// Phase returns the injected phase, an error for mixed injectors
func (c *InjectionControls) Phase(well string) (fluid.Phase, error) {
	switch c.Type {
	case InjectorWater:
		return fluid.Aqua, nil
	case InjectorOil:
		return fluid.Liquid, nil
	case InjectorGas:
		return fluid.Vapour, nil
	}
	return 0, fmt.Errorf("%w %s (got %s)", ErrUnknownInjectorType, well, c.Type)
}

type WellKind int

const (
	Producer WellKind = iota
	Injector
)

func (k WellKind) String() string {
	if k == Injector {
		return "injector"
	}
	return "producer"
}

// Well is the static definition of a well. Exactly one of Production and
// Injection is set, matching Kind.
type Well struct {
	Name  string
	Group string
	Kind  WellKind

	Production *ProductionControls
	Injection  *InjectionControls

	Efficiency float64
	PVTRegion  int
	FIPRegion  int

	// Keep a producer off THP control while its rates stay below the
	// potentials
	PreventTHPSwitch bool

	Shut bool
}

// NewProducer returns an open producer with unit efficiency
func NewProducer(name, group string, ctrl *ProductionControls) *Well {
	return &Well{Name: name, Group: group, Kind: Producer, Production: ctrl, Efficiency: 1}
}

// NewInjector returns an open injector with unit efficiency
func NewInjector(name, group string, ctrl *InjectionControls) *Well {
	return &Well{Name: name, Group: group, Kind: Injector, Injection: ctrl, Efficiency: 1}
}

func (w *Well) IsProducer() bool { return w.Kind == Producer }
func (w *Well) IsInjector() bool { return w.Kind == Injector }

func (w *Well) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("well without name")
	}
	if w.Group == "" {
		return fmt.Errorf("well %s has no group", w.Name)
	}
	if w.Efficiency <= 0 {
		return fmt.Errorf("well %s: efficiency factor %g must be positive", w.Name, w.Efficiency)
	}
	switch w.Kind {
	case Producer:
		if w.Production == nil || w.Injection != nil {
			return fmt.Errorf("producer %s must carry production controls only", w.Name)
		}
	case Injector:
		if w.Injection == nil || w.Production != nil {
			return fmt.Errorf("injector %s must carry injection controls only", w.Name)
		}
	default:
		return fmt.Errorf("well %s: unknown kind %d", w.Name, w.Kind)
	}
	return nil
}
