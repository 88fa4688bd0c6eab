package wells

import (
	"fmt"
	"strings"
)

// ProducerCMode is the control mode of a production well
type ProducerCMode int

const (
	ProdNone ProducerCMode = iota
	ProdBHP
	ORAT
	WRAT
	GRAT
	LRAT
	ProdRESV
	ProdTHP
	ProdGRUP
)

var producerModeNames = map[ProducerCMode]string{
	ProdNone: "NONE",
	ProdBHP:  "BHP",
	ORAT:     "ORAT",
	WRAT:     "WRAT",
	GRAT:     "GRAT",
	LRAT:     "LRAT",
	ProdRESV: "RESV",
	ProdTHP:  "THP",
	ProdGRUP: "GRUP",
}

func (m ProducerCMode) String() string {
	if name, ok := producerModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ProducerCMode(%d)", int(m))
}

func ParseProducerCMode(s string) (ProducerCMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range producerModeNames {
		if name == s {
			return m, nil
		}
	}
	return ProdNone, fmt.Errorf("unknown producer control mode %q", s)
}

// InjectorCMode is the control mode of an injection well
type InjectorCMode int

const (
	InjNone InjectorCMode = iota
	InjBHP
	RATE
	InjRESV
	InjTHP
	InjGRUP
)

var injectorModeNames = map[InjectorCMode]string{
	InjNone: "NONE",
	InjBHP:  "BHP",
	RATE:    "RATE",
	InjRESV: "RESV",
	InjTHP:  "THP",
	InjGRUP: "GRUP",
}

func (m InjectorCMode) String() string {
	if name, ok := injectorModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("InjectorCMode(%d)", int(m))
}

func ParseInjectorCMode(s string) (InjectorCMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range injectorModeNames {
		if name == s {
			return m, nil
		}
	}
	return InjNone, fmt.Errorf("unknown injector control mode %q", s)
}

// InjectorType is the fluid an injector injects
type InjectorType int

const (
	InjectorWater InjectorType = iota
	InjectorOil
	InjectorGas
	InjectorMulti
)

var injectorTypeNames = map[InjectorType]string{
	InjectorWater: "WATER",
	InjectorOil:   "OIL",
	InjectorGas:   "GAS",
	InjectorMulti: "MULTI",
}

func (t InjectorType) String() string {
	if name, ok := injectorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("InjectorType(%d)", int(t))
}

func ParseInjectorType(s string) (InjectorType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range injectorTypeNames {
		if name == s {
			return t, nil
		}
	}
	return InjectorWater, fmt.Errorf("unknown injector type %q", s)
}

// GroupProdCMode is the production control mode of a group
type GroupProdCMode int

const (
	GNone GroupProdCMode = iota
	GORAT
	GWRAT
	GGRAT
	GLRAT
	GCRAT
	GRESV
	GPRBL
	GFLD
)

var groupProdModeNames = map[GroupProdCMode]string{
	GNone: "NONE",
	GORAT: "ORAT",
	GWRAT: "WRAT",
	GGRAT: "GRAT",
	GLRAT: "LRAT",
	GCRAT: "CRAT",
	GRESV: "RESV",
	GPRBL: "PRBL",
	GFLD:  "FLD",
}

func (m GroupProdCMode) String() string {
	if name, ok := groupProdModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("GroupProdCMode(%d)", int(m))
}

// inherits reports whether the group takes its control from its parent
func (m GroupProdCMode) inherits() bool {
	return m == GFLD || m == GNone
}

func ParseGroupProdCMode(s string) (GroupProdCMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range groupProdModeNames {
		if name == s {
			return m, nil
		}
	}
	return GNone, fmt.Errorf("unknown group production control mode %q", s)
}

// GroupInjCMode is the injection control mode of a group for one phase
type GroupInjCMode int

const (
	GInjNone GroupInjCMode = iota
	GInjRATE
	GInjRESV
	GInjREIN
	GInjVREP
	GInjSALE
	GInjFLD
)

var groupInjModeNames = map[GroupInjCMode]string{
	GInjNone: "NONE",
	GInjRATE: "RATE",
	GInjRESV: "RESV",
	GInjREIN: "REIN",
	GInjVREP: "VREP",
	GInjSALE: "SALE",
	GInjFLD:  "FLD",
}

func (m GroupInjCMode) String() string {
	if name, ok := groupInjModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("GroupInjCMode(%d)", int(m))
}

func (m GroupInjCMode) inherits() bool {
	return m == GInjFLD || m == GInjNone
}

func ParseGroupInjCMode(s string) (GroupInjCMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range groupInjModeNames {
		if name == s {
			return m, nil
		}
	}
	return GInjNone, fmt.Errorf("unknown group injection control mode %q", s)
}
