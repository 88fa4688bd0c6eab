package tpfa

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/grid"
)

// WellControlKind selects how a well unknown is closed
type WellControlKind uint8

const (
	WellBHP  WellControlKind = iota // Bottom hole pressure fixed at Target
	WellRate                        // Total reservoir volume rate fixed at Target, positive into the reservoir
	WellShut                        // No flow, well pressure pinned to zero
)

func (k WellControlKind) String() string {
	switch k {
	case WellBHP:
		return "BHP"
	case WellRate:
		return "RATE"
	case WellShut:
		return "SHUT"
	}
	return "Unknown"
}

type WellControl struct {
	Kind   WellControlKind
	Target float64
}

// Wells carries the per-perforation coupling data and per-well controls
// consumed by the assembler. WI and WDP are laid out like Perfs.Cells.
type Wells struct {
	Perfs    *grid.Perforations
	WI       []float64 // Well index (connection transmissibility)
	WDP      []float64 // Hydrostatic head from reference depth to perforation, nil for zero
	Controls []WellControl
}

// Validate checks that the well arrays agree with the perforations the
// matrix pattern was built for
func (w *Wells) Validate(perfs *grid.Perforations) error {
	if w == nil {
		return nil
	}
	if w.Perfs.NumWells() != perfs.NumWells() || w.Perfs.NumPerforations() != perfs.NumPerforations() {
		return fmt.Errorf("wells have %d wells/%d perforations, pattern built for %d/%d",
			w.Perfs.NumWells(), w.Perfs.NumPerforations(), perfs.NumWells(), perfs.NumPerforations())
	}
	if len(w.WI) != perfs.NumPerforations() {
		return fmt.Errorf("%d well indices for %d perforations", len(w.WI), perfs.NumPerforations())
	}
	if w.WDP != nil && len(w.WDP) != perfs.NumPerforations() {
		return fmt.Errorf("%d well head corrections for %d perforations", len(w.WDP), perfs.NumPerforations())
	}
	if len(w.Controls) != perfs.NumWells() {
		return fmt.Errorf("%d well controls for %d wells", len(w.Controls), perfs.NumWells())
	}
	for i, c := range w.Controls {
		if c.Kind > WellShut {
			return fmt.Errorf("well %d: unknown control kind %d", i, c.Kind)
		}
	}
	return nil
}

func (w *Wells) wdp(i int) float64 {
	if w.WDP == nil {
		return 0
	}
	return w.WDP[i]
}

// Forces bundles the driving terms of the pressure equation. Any member may
// be nil.
type Forces struct {
	BC    *BoundaryConditions
	Src   []float64 // Volumetric source per cell, positive into the reservoir
	Wells *Wells
}
