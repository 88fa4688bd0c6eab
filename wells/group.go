package wells

import (
	"errors"
	"fmt"

	"github.com/arturcastiel/opm-simulators/fluid"
)

// FieldGroup is the name of the root of every group tree
const FieldGroup = "FIELD"

var (
	ErrUnknownGroup = errors.New("unknown group")
	ErrGroupCycle   = errors.New("group hierarchy contains a cycle")
	ErrNoFieldRoot  = errors.New("group hierarchy has no FIELD root")
)

// GroupProductionControls are the production targets of a group.
// Available marks a group that may respond to a higher level target.
type GroupProductionControls struct {
	Mode      GroupProdCMode
	Available bool

	OilTarget    float64
	WaterTarget  float64
	GasTarget    float64
	LiquidTarget float64
	ResvTarget   float64
}

// GroupInjectionControls are the injection targets of a group for one phase
type GroupInjectionControls struct {
	Mode      GroupInjCMode
	Available bool

	SurfaceMaxRate      float64
	ResvMaxRate         float64
	TargetReinjFraction float64
	TargetVoidFraction  float64
}

type Group struct {
	Name       string
	Parent     string
	Efficiency float64

	Production *GroupProductionControls
	Injection  map[fluid.Phase]*GroupInjectionControls

	// Gas sales target, zero when the group has none
	GasSalesTarget float64
}

// NewGroup returns a group with unit efficiency and no controls
func NewGroup(name, parent string) *Group {
	return &Group{Name: name, Parent: parent, Efficiency: 1}
}

func (g *Group) IsProductionGroup() bool { return g.Production != nil }

func (g *Group) IsInjectionGroup() bool { return len(g.Injection) > 0 }

// ProductionGroupControlAvailable reports whether the group follows a
// target imposed from above. FIELD never does.
func (g *Group) ProductionGroupControlAvailable() bool {
	if g.Name == FieldGroup {
		return false
	}
	if g.Production == nil {
		return true
	}
	return g.Production.Available
}

func (g *Group) InjectionGroupControlAvailable(p fluid.Phase) bool {
	if g.Name == FieldGroup {
		return false
	}
	ctrl, ok := g.Injection[p]
	if !ok {
		return true
	}
	return ctrl.Available
}

// Tree is the group hierarchy together with the wells hanging off it.
// Children keep insertion order.
type Tree struct {
	groups      map[string]*Group
	wells       map[string]*Well
	groupOrder  []string
	wellOrder   []string
	childGroups map[string][]string
	childWells  map[string][]string
}

func NewTree() *Tree {
	return &Tree{
		groups:      make(map[string]*Group),
		wells:       make(map[string]*Well),
		childGroups: make(map[string][]string),
		childWells:  make(map[string][]string),
	}
}

func (t *Tree) AddGroup(g *Group) error {
	if _, ok := t.groups[g.Name]; ok {
		return fmt.Errorf("group %s defined twice", g.Name)
	}
	if _, ok := t.wells[g.Name]; ok {
		return fmt.Errorf("group %s clashes with a well name", g.Name)
	}
	t.groups[g.Name] = g
	t.groupOrder = append(t.groupOrder, g.Name)
	if g.Parent != "" {
		t.childGroups[g.Parent] = append(t.childGroups[g.Parent], g.Name)
	}
	return nil
}

func (t *Tree) AddWell(w *Well) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if _, ok := t.wells[w.Name]; ok {
		return fmt.Errorf("well %s defined twice", w.Name)
	}
	if _, ok := t.groups[w.Name]; ok {
		return fmt.Errorf("well %s clashes with a group name", w.Name)
	}
	t.wells[w.Name] = w
	t.wellOrder = append(t.wellOrder, w.Name)
	t.childWells[w.Group] = append(t.childWells[w.Group], w.Name)
	return nil
}

func (t *Tree) Group(name string) (*Group, error) {
	g, ok := t.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownGroup, name)
	}
	return g, nil
}

func (t *Tree) Well(name string) (*Well, bool) {
	w, ok := t.wells[name]
	return w, ok
}

func (t *Tree) HasWell(name string) bool {
	_, ok := t.wells[name]
	return ok
}

// GroupNames lists the groups in insertion order
func (t *Tree) GroupNames() []string { return t.groupOrder }

// WellNames lists the wells in insertion order
func (t *Tree) WellNames() []string { return t.wellOrder }

// ChildGroups returns the subgroups of a group
func (t *Tree) ChildGroups(name string) []string { return t.childGroups[name] }

// ChildWells returns the wells attached directly to a group
func (t *Tree) ChildWells(name string) []string { return t.childWells[name] }

// Parent returns the parent group of a well or group
func (t *Tree) Parent(name string) (string, error) {
	if w, ok := t.wells[name]; ok {
		return w.Group, nil
	}
	g, err := t.Group(name)
	if err != nil {
		return "", err
	}
	if g.Parent == "" {
		return "", fmt.Errorf("group %s has no parent", name)
	}
	return g.Parent, nil
}

// Validate checks that FIELD is the parentless root, that every parent
// exists and that every group reaches FIELD without revisiting a node.
func (t *Tree) Validate() error {
	field, ok := t.groups[FieldGroup]
	if !ok {
		return ErrNoFieldRoot
	}
	if field.Parent != "" {
		return fmt.Errorf("%w: FIELD has parent %s", ErrNoFieldRoot, field.Parent)
	}
	for _, name := range t.groupOrder {
		g := t.groups[name]
		if g.Efficiency <= 0 {
			return fmt.Errorf("group %s: efficiency factor %g must be positive", name, g.Efficiency)
		}
		seen := map[string]bool{name: true}
		for cur := g; cur.Name != FieldGroup; {
			if cur.Parent == "" {
				return fmt.Errorf("%w: group %s is detached", ErrNoFieldRoot, cur.Name)
			}
			next, err := t.Group(cur.Parent)
			if err != nil {
				return fmt.Errorf("parent of group %s: %w", cur.Name, err)
			}
			if seen[next.Name] {
				return fmt.Errorf("%w through %s", ErrGroupCycle, next.Name)
			}
			seen[next.Name] = true
			cur = next
		}
	}
	for _, name := range t.wellOrder {
		if _, err := t.Group(t.wells[name].Group); err != nil {
			return fmt.Errorf("group of well %s: %w", name, err)
		}
	}
	return nil
}

// ChainTopBot returns the path from top down to bottom, both included.
// bottom is a well or a group below top.
func (t *Tree) ChainTopBot(bottom, top string) ([]string, error) {
	chain := []string{bottom}
	cur := bottom
	for cur != top {
		parent, err := t.Parent(cur)
		if err != nil {
			return nil, fmt.Errorf("%s is not below %s: %w", bottom, top, err)
		}
		if len(chain) > len(t.groups) {
			return nil, ErrGroupCycle
		}
		chain = append(chain, parent)
		cur = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
