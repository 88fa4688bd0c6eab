package tpfa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arturcastiel/opm-simulators/grid"
)

var (
	// ErrBoundaryFace reports a boundary condition on a face that does not
	// have exactly one valid neighbour
	ErrBoundaryFace = errors.New("boundary condition face must have exactly one valid cell")

	// ErrBCFaceCount reports a flux condition spanning more than one face
	ErrBCFaceCount = errors.New("flux boundary condition must name exactly one face")

	// ErrUnknownBC reports a boundary condition type outside the known set
	ErrUnknownBC = errors.New("unknown boundary condition type")
)

// BCType is the kind of a boundary condition
type BCType uint8

const (
	BCPressure        BCType = iota // Prescribed pressure
	BCFluxTotalVolume               // Prescribed total volumetric flux into the reservoir
	BCSaturation                    // Transport only, ignored by the pressure assembly
)

func (t BCType) String() string {
	names := map[BCType]string{
		BCPressure:        "Pressure",
		BCFluxTotalVolume: "FluxTotalVolume",
		BCSaturation:      "Saturation",
	}
	if name, ok := names[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseBCType converts a case-insensitive name into a BCType
func ParseBCType(name string) (BCType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pressure":
		return BCPressure, nil
	case "flux", "flux_total_volume", "fluxtotalvolume":
		return BCFluxTotalVolume, nil
	case "saturation":
		return BCSaturation, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBC, name)
}

// BoundaryConditions is an ordered set of conditions. Condition i applies
// Value[i] of Type[i] to faces Faces[CondPos[i]:CondPos[i+1]].
type BoundaryConditions struct {
	Type    []BCType
	Value   []float64
	CondPos []int
	Faces   []int
}

// NewBoundaryConditions returns an empty set
func NewBoundaryConditions() *BoundaryConditions {
	return &BoundaryConditions{CondPos: []int{0}}
}

// Len is the number of conditions
func (bc *BoundaryConditions) Len() int {
	if bc == nil {
		return 0
	}
	return len(bc.Type)
}

// Append adds one condition over the given faces
func (bc *BoundaryConditions) Append(t BCType, value float64, faces ...int) error {
	if t > BCSaturation {
		return fmt.Errorf("%w: %d", ErrUnknownBC, t)
	}
	if len(faces) == 0 {
		return fmt.Errorf("%s condition without faces", t)
	}
	if t == BCFluxTotalVolume && len(faces) != 1 {
		return fmt.Errorf("%w: got %d", ErrBCFaceCount, len(faces))
	}
	if len(bc.CondPos) == 0 {
		bc.CondPos = []int{0}
	}
	bc.Type = append(bc.Type, t)
	bc.Value = append(bc.Value, value)
	bc.Faces = append(bc.Faces, faces...)
	bc.CondPos = append(bc.CondPos, len(bc.Faces))
	return nil
}

// ConditionFaces returns the faces of condition i
func (bc *BoundaryConditions) ConditionFaces(i int) []int {
	return bc.Faces[bc.CondPos[i]:bc.CondPos[i+1]]
}

// HasPressure reports whether any condition prescribes pressure
func (bc *BoundaryConditions) HasPressure() bool {
	if bc == nil {
		return false
	}
	for _, t := range bc.Type {
		if t == BCPressure {
			return true
		}
	}
	return false
}

// Validate checks the set against grid g: every face index is in range and
// has exactly one valid neighbour, flux conditions have one face each
func (bc *BoundaryConditions) Validate(g *grid.Grid) error {
	if bc == nil {
		return nil
	}
	if len(bc.Value) != len(bc.Type) || len(bc.CondPos) != len(bc.Type)+1 {
		return fmt.Errorf("inconsistent boundary condition arrays: %d types, %d values, %d offsets",
			len(bc.Type), len(bc.Value), len(bc.CondPos))
	}
	for i, t := range bc.Type {
		faces := bc.ConditionFaces(i)
		if t == BCFluxTotalVolume && len(faces) != 1 {
			return fmt.Errorf("condition %d: %w: got %d", i, ErrBCFaceCount, len(faces))
		}
		for _, f := range faces {
			if f < 0 || f >= g.NumFaces {
				return fmt.Errorf("condition %d: face %d outside grid", i, f)
			}
			c1, c2 := g.Neighbours(f)
			if (c1 < 0) == (c2 < 0) {
				return fmt.Errorf("condition %d face %d (%d,%d): %w", i, f, c1, c2, ErrBoundaryFace)
			}
		}
	}
	return nil
}

// boundaryCell returns the valid neighbour of boundary face f and whether
// it is the first neighbour, i.e. the face normal points out of the reservoir
func boundaryCell(g *grid.Grid, f int) (c int, outflow bool) {
	c1, c2 := g.Neighbours(f)
	if (c1 < 0) == (c2 < 0) {
		panic(fmt.Sprintf("face %d (%d,%d): %v", f, c1, c2, ErrBoundaryFace))
	}
	if c1 >= 0 {
		return c1, true
	}
	return c2, false
}
