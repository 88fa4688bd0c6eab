package casefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arturcastiel/opm-simulators/fluid"
	"github.com/arturcastiel/opm-simulators/grid"
	"github.com/arturcastiel/opm-simulators/tpfa"
	"github.com/arturcastiel/opm-simulators/wells"
)

// Case is the YAML description of a simulation case
type Case struct {
	Grid struct {
		Dims    [3]int     `yaml:"dims"`
		Spacing [3]float64 `yaml:"spacing"`
	} `yaml:"grid"`

	// One value applies to every cell
	Permeability []float64 `yaml:"permeability"`
	Porosity     []float64 `yaml:"porosity"`
	Density      float64   `yaml:"density"`

	Phases struct {
		Water bool `yaml:"water"`
		Oil   bool `yaml:"oil"`
		Gas   bool `yaml:"gas"`
	} `yaml:"phases"`
	PVT     []fluid.RegionPVT `yaml:"pvt"`
	Initial InitialState      `yaml:"initial"`

	Boundary []BoundarySpec `yaml:"boundary"`
	Sources  []SourceSpec   `yaml:"sources"`
	NNCs     []NNCSpec      `yaml:"nncs"`

	Groups []GroupSpec `yaml:"groups"`
	Wells  []WellSpec  `yaml:"wells"`
}

type InitialState struct {
	Pressure float64 `yaml:"pressure"`
	Rs       float64 `yaml:"rs"`
	Rv       float64 `yaml:"rv"`
}

type BoundarySpec struct {
	Type  string  `yaml:"type"`
	Value float64 `yaml:"value"`
	Faces []int   `yaml:"faces"`
}

type SourceSpec struct {
	Cell int     `yaml:"cell"`
	Rate float64 `yaml:"rate"`
}

type NNCSpec struct {
	Cell1 int     `yaml:"cell1"`
	Cell2 int     `yaml:"cell2"`
	Trans float64 `yaml:"trans"`
}

type GroupProductionSpec struct {
	Mode      string  `yaml:"mode"`
	Available *bool   `yaml:"available"`
	Oil       float64 `yaml:"oil"`
	Water     float64 `yaml:"water"`
	Gas       float64 `yaml:"gas"`
	Liquid    float64 `yaml:"liquid"`
	Resv      float64 `yaml:"resv"`
}

type GroupInjectionSpec struct {
	Mode          string  `yaml:"mode"`
	Available     *bool   `yaml:"available"`
	Surface       float64 `yaml:"surface"`
	Reservoir     float64 `yaml:"reservoir"`
	ReinjFraction float64 `yaml:"reinj_fraction"`
	VoidFraction  float64 `yaml:"void_fraction"`
}

type GroupSpec struct {
	Name       string                        `yaml:"name"`
	Parent     string                        `yaml:"parent"`
	Efficiency float64                       `yaml:"efficiency"`
	Production *GroupProductionSpec          `yaml:"production"`
	Injection  map[string]GroupInjectionSpec `yaml:"injection"`
	GuideRate  *float64                      `yaml:"guide_rate"`
	SalesGas   float64                       `yaml:"sales_gas"`
}

type ProductionSpec struct {
	Mode       string   `yaml:"mode"`
	Modes      []string `yaml:"modes"`
	BHP        float64  `yaml:"bhp"`
	THP        float64  `yaml:"thp"`
	Oil        float64  `yaml:"oil"`
	Water      float64  `yaml:"water"`
	Gas        float64  `yaml:"gas"`
	Liquid     float64  `yaml:"liquid"`
	Resv       float64  `yaml:"resv"`
	Prediction bool     `yaml:"prediction"`
}

type InjectionSpec struct {
	Mode      string   `yaml:"mode"`
	Modes     []string `yaml:"modes"`
	Type      string   `yaml:"type"`
	Surface   float64  `yaml:"surface"`
	Reservoir float64  `yaml:"reservoir"`
	BHP       float64  `yaml:"bhp"`
	THP       float64  `yaml:"thp"`
}

type WellSpec struct {
	Name             string          `yaml:"name"`
	Group            string          `yaml:"group"`
	Cells            []int           `yaml:"cells"`
	WI               []float64       `yaml:"wi"`
	Efficiency       float64         `yaml:"efficiency"`
	PVTRegion        int             `yaml:"pvt_region"`
	FIPRegion        int             `yaml:"fip_region"`
	PreventTHPSwitch bool            `yaml:"prevent_thp_switch"`
	Shut             bool            `yaml:"shut"`
	Production       *ProductionSpec `yaml:"production"`
	Injection        *InjectionSpec  `yaml:"injection"`

	// Surface volume of each phase per unit of reservoir inflow, by phase
	// name
	PhaseSplit map[string]float64 `yaml:"phase_split"`
	Potentials map[string]float64 `yaml:"potentials"`
	GuideRate  *float64           `yaml:"guide_rate"`
}

// Load reads a case file
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Case, error) {
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse case: %w", err)
	}
	return &c, nil
}

// Model is a case resolved into the structures the simulator runs on.
// Wells are indexed like the perforations.
type Model struct {
	Cart       *grid.Cartesian
	Grid       *grid.Grid
	Trans      []float64
	PoreVolume []float64
	CellDepth  []float64
	FaceDepth  []float64
	Density    float64
	InputNNCs  []grid.NNC

	PU      fluid.PhaseUsage
	PVT     *fluid.LiveOilPVT
	Initial InitialState

	BC  *tpfa.BoundaryConditions
	Src []float64

	Perfs      *grid.Perforations
	WI         []float64
	Wells      []*wells.Well
	PhaseSplit [][]float64
	Potentials [][]float64

	Tree  *wells.Tree
	Guide *wells.GuideRate
}

func broadcast(name string, v []float64, n int) ([]float64, error) {
	switch len(v) {
	case n:
		return v, nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s has %d values for %d cells", name, len(v), n)
}

// Build validates the case and assembles the model
func (c *Case) Build() (*Model, error) {
	d, s := c.Grid.Dims, c.Grid.Spacing
	cart, err := grid.NewCartesian(d[0], d[1], d[2], s[0], s[1], s[2])
	if err != nil {
		return nil, err
	}
	m := &Model{Cart: cart, Density: c.Density, Initial: c.Initial}

	perm, err := broadcast("permeability", c.Permeability, cart.NumCells)
	if err != nil {
		return nil, err
	}
	poro, err := broadcast("porosity", c.Porosity, cart.NumCells)
	if err != nil {
		return nil, err
	}
	trans, err := cart.Transmissibility(perm)
	if err != nil {
		return nil, err
	}
	m.PoreVolume = cart.PoreVolumes(poro)

	for _, n := range c.NNCs {
		m.InputNNCs = append(m.InputNNCs, grid.NNC{Cell1: n.Cell1, Cell2: n.Cell2, Trans: n.Trans})
	}
	if len(m.InputNNCs) > 0 {
		if m.Grid, m.Trans, err = grid.WithNNCs(cart.Grid, trans, m.InputNNCs); err != nil {
			return nil, err
		}
	} else {
		m.Grid, m.Trans = cart.Grid, trans
	}
	m.CellDepth = cart.CellDepths()
	m.FaceDepth = faceDepths(cart, m.Grid, m.CellDepth)

	if m.PU, err = fluid.NewPhaseUsage(c.Phases.Water, c.Phases.Oil, c.Phases.Gas); err != nil {
		return nil, err
	}
	m.PVT = &fluid.LiveOilPVT{Regions: c.PVT}
	if err := m.PVT.Validate(); err != nil {
		return nil, err
	}

	if err := c.buildForces(m); err != nil {
		return nil, err
	}
	if err := c.buildWells(m); err != nil {
		return nil, err
	}
	return m, nil
}

// faceDepths extends the Cartesian face depths to NNC faces, which sit
// midway between their cells
func faceDepths(cart *grid.Cartesian, g *grid.Grid, cellDepth []float64) []float64 {
	depth := cart.FaceDepths()
	for f := cart.NumFaces; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		depth = append(depth, 0.5*(cellDepth[c1]+cellDepth[c2]))
	}
	return depth
}

func (c *Case) buildForces(m *Model) error {
	m.BC = tpfa.NewBoundaryConditions()
	for i, b := range c.Boundary {
		t, err := tpfa.ParseBCType(b.Type)
		if err != nil {
			return fmt.Errorf("boundary %d: %w", i, err)
		}
		if err := m.BC.Append(t, b.Value, b.Faces...); err != nil {
			return fmt.Errorf("boundary %d: %w", i, err)
		}
	}
	if err := m.BC.Validate(m.Grid); err != nil {
		return err
	}

	if len(c.Sources) > 0 {
		m.Src = make([]float64, m.Grid.NumCells)
		for _, src := range c.Sources {
			if src.Cell < 0 || src.Cell >= m.Grid.NumCells {
				return fmt.Errorf("source in cell %d outside grid", src.Cell)
			}
			m.Src[src.Cell] += src.Rate
		}
	}
	return nil
}

func phaseVector(pu fluid.PhaseUsage, byName map[string]float64) ([]float64, error) {
	v := make([]float64, pu.NumPhases)
	for name, x := range byName {
		p, err := fluid.ParsePhase(name)
		if err != nil {
			return nil, err
		}
		if !pu.Active(p) {
			return nil, fmt.Errorf("phase %s is not active", p)
		}
		v[pu.Index(p)] = x
	}
	return v, nil
}

func availability(p *bool) bool {
	return p == nil || *p
}

func (c *Case) buildGroups(m *Model) error {
	for _, gs := range c.Groups {
		g := wells.NewGroup(gs.Name, gs.Parent)
		if gs.Efficiency != 0 {
			g.Efficiency = gs.Efficiency
		}
		g.GasSalesTarget = gs.SalesGas
		if ps := gs.Production; ps != nil {
			mode, err := wells.ParseGroupProdCMode(ps.Mode)
			if err != nil {
				return fmt.Errorf("group %s: %w", gs.Name, err)
			}
			g.Production = &wells.GroupProductionControls{
				Mode:         mode,
				Available:    availability(ps.Available),
				OilTarget:    ps.Oil,
				WaterTarget:  ps.Water,
				GasTarget:    ps.Gas,
				LiquidTarget: ps.Liquid,
				ResvTarget:   ps.Resv,
			}
		}
		for name, is := range gs.Injection {
			p, err := fluid.ParsePhase(name)
			if err != nil {
				return fmt.Errorf("group %s: %w", gs.Name, err)
			}
			mode, err := wells.ParseGroupInjCMode(is.Mode)
			if err != nil {
				return fmt.Errorf("group %s: %w", gs.Name, err)
			}
			if g.Injection == nil {
				g.Injection = make(map[fluid.Phase]*wells.GroupInjectionControls)
			}
			g.Injection[p] = &wells.GroupInjectionControls{
				Mode:                mode,
				Available:           availability(is.Available),
				SurfaceMaxRate:      is.Surface,
				ResvMaxRate:         is.Reservoir,
				TargetReinjFraction: is.ReinjFraction,
				TargetVoidFraction:  is.VoidFraction,
			}
			if gs.GuideRate != nil {
				m.Guide.SetInjection(gs.Name, p, *gs.GuideRate)
			}
		}
		if gs.GuideRate != nil && g.Production != nil {
			m.Guide.SetProduction(gs.Name, *gs.GuideRate)
		}
		if err := m.Tree.AddGroup(g); err != nil {
			return err
		}
	}
	return nil
}

func parseModes[M any](names []string, parse func(string) (M, error)) ([]M, error) {
	out := make([]M, 0, len(names))
	for _, n := range names {
		m, err := parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (ws *WellSpec) build() (*wells.Well, error) {
	switch {
	case ws.Production != nil && ws.Injection == nil:
		ps := ws.Production
		mode, err := wells.ParseProducerCMode(ps.Mode)
		if err != nil {
			return nil, err
		}
		modes, err := parseModes(ps.Modes, wells.ParseProducerCMode)
		if err != nil {
			return nil, err
		}
		return wells.NewProducer(ws.Name, ws.Group, &wells.ProductionControls{
			Mode:           mode,
			Modes:          modes,
			BHPLimit:       ps.BHP,
			THPLimit:       ps.THP,
			OilRate:        ps.Oil,
			WaterRate:      ps.Water,
			GasRate:        ps.Gas,
			LiquidRate:     ps.Liquid,
			ResvRate:       ps.Resv,
			PredictionMode: ps.Prediction,
		}), nil
	case ws.Injection != nil && ws.Production == nil:
		is := ws.Injection
		mode, err := wells.ParseInjectorCMode(is.Mode)
		if err != nil {
			return nil, err
		}
		modes, err := parseModes(is.Modes, wells.ParseInjectorCMode)
		if err != nil {
			return nil, err
		}
		typ, err := wells.ParseInjectorType(is.Type)
		if err != nil {
			return nil, err
		}
		return wells.NewInjector(ws.Name, ws.Group, &wells.InjectionControls{
			Mode:          mode,
			Modes:         modes,
			Type:          typ,
			SurfaceRate:   is.Surface,
			ReservoirRate: is.Reservoir,
			BHPLimit:      is.BHP,
			THPLimit:      is.THP,
		}), nil
	}
	return nil, fmt.Errorf("needs exactly one of production and injection")
}

func (c *Case) buildWells(m *Model) error {
	m.Tree = wells.NewTree()
	m.Guide = wells.NewGuideRate()
	if err := c.buildGroups(m); err != nil {
		return err
	}

	cells := make([][]int, 0, len(c.Wells))
	for i := range c.Wells {
		spec := &c.Wells[i]
		w, err := spec.build()
		if err != nil {
			return fmt.Errorf("well %s: %w", spec.Name, err)
		}
		if spec.Efficiency != 0 {
			w.Efficiency = spec.Efficiency
		}
		w.PVTRegion, w.FIPRegion = spec.PVTRegion, spec.FIPRegion
		w.PreventTHPSwitch, w.Shut = spec.PreventTHPSwitch, spec.Shut
		if err := m.Tree.AddWell(w); err != nil {
			return err
		}

		if len(spec.WI) != len(spec.Cells) {
			return fmt.Errorf("well %s: %d well indices for %d cells", spec.Name, len(spec.WI), len(spec.Cells))
		}
		split, err := phaseVector(m.PU, spec.PhaseSplit)
		if err != nil {
			return fmt.Errorf("well %s: %w", spec.Name, err)
		}
		pot, err := phaseVector(m.PU, spec.Potentials)
		if err != nil {
			return fmt.Errorf("well %s: %w", spec.Name, err)
		}
		if spec.GuideRate != nil {
			if w.IsProducer() {
				m.Guide.SetProduction(w.Name, *spec.GuideRate)
			} else if p, err := w.Injection.Phase(w.Name); err == nil {
				m.Guide.SetInjection(w.Name, p, *spec.GuideRate)
			}
		}

		cells = append(cells, spec.Cells)
		m.WI = append(m.WI, spec.WI...)
		m.Wells = append(m.Wells, w)
		m.PhaseSplit = append(m.PhaseSplit, split)
		m.Potentials = append(m.Potentials, pot)
	}
	if err := m.Tree.Validate(); err != nil {
		return err
	}

	if len(cells) > 0 {
		perfs, err := grid.NewPerforations(cells, m.Grid.NumCells)
		if err != nil {
			return err
		}
		m.Perfs = perfs
	}
	return nil
}
