package fluid

import (
	"fmt"
	"strings"
)

// Phase identifies one of the black-oil phases
type Phase int

const (
	Aqua   Phase = iota // Water
	Liquid              // Oil
	Vapour              // Gas
)

// MaxPhases is the number of canonical phases
const MaxPhases = 3

func (p Phase) String() string {
	switch p {
	case Aqua:
		return "water"
	case Liquid:
		return "oil"
	case Vapour:
		return "gas"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase accepts the phase names produced by String
func ParsePhase(name string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "water", "wat", "aqua":
		return Aqua, nil
	case "oil", "liquid":
		return Liquid, nil
	case "gas", "vapour", "vapor":
		return Vapour, nil
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// PhaseUsage describes the active phases of a run. Arrays of per-phase
// quantities are sized NumPhases and phase p sits at Pos[p] when Used[p].
type PhaseUsage struct {
	NumPhases int
	Used      [MaxPhases]bool
	Pos       [MaxPhases]int
}

// NewPhaseUsage builds the descriptor, active phases keep canonical order
func NewPhaseUsage(water, oil, gas bool) (PhaseUsage, error) {
	var pu PhaseUsage
	for p, on := range [MaxPhases]bool{water, oil, gas} {
		pu.Pos[p] = -1
		if on {
			pu.Used[p] = true
			pu.Pos[p] = pu.NumPhases
			pu.NumPhases++
		}
	}
	if pu.NumPhases == 0 {
		return pu, fmt.Errorf("no active phase")
	}
	return pu, nil
}

// Active reports whether phase p is used
func (pu PhaseUsage) Active(p Phase) bool {
	return p >= 0 && int(p) < MaxPhases && pu.Used[p]
}

// Index returns the position of p in per-phase arrays, -1 when inactive
func (pu PhaseUsage) Index(p Phase) int {
	if !pu.Active(p) {
		return -1
	}
	return pu.Pos[p]
}

// Value returns v[Index(p)], zero for an inactive phase
func (pu PhaseUsage) Value(v []float64, p Phase) float64 {
	if i := pu.Index(p); i >= 0 {
		return v[i]
	}
	return 0
}

// Phases lists the active phases in array order
func (pu PhaseUsage) Phases() []Phase {
	out := make([]Phase, 0, pu.NumPhases)
	for p := Aqua; p <= Vapour; p++ {
		if pu.Used[p] {
			out = append(out, p)
		}
	}
	return out
}
