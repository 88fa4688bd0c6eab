package grid

import (
	"fmt"
	"math"
	"sort"
)

const (
	// Explicit NNCs below this transmissibility are dropped from the exported
	// connection structure
	ExplicitNNCThreshold = 1.0e-6

	// Computed (grid-derived) NNCs must exceed this transmissibility to be
	// exported
	ComputedNNCThreshold = 1.0e-12
)

// NNC is a non-neighbour connection between two cells. By construction
// Cell1 <= Cell2.
type NNC struct {
	Cell1 int
	Cell2 int
	Trans float64
}

// WithNNCs returns a new grid with one additional interior face per NNC and
// the correspondingly extended transmissibility array
func WithNNCs(g *Grid, trans []float64, nncs []NNC) (*Grid, []float64, error) {
	if len(trans) != g.NumFaces {
		return nil, nil, fmt.Errorf("transmissibility length %d does not match %d faces", len(trans), g.NumFaces)
	}

	faceCells := make([]int, len(g.FaceCells), len(g.FaceCells)+2*len(nncs))
	copy(faceCells, g.FaceCells)
	newTrans := make([]float64, len(trans), len(trans)+len(nncs))
	copy(newTrans, trans)

	for i, n := range nncs {
		if n.Cell1 < 0 || n.Cell2 < 0 || n.Cell1 >= g.NumCells || n.Cell2 >= g.NumCells {
			return nil, nil, fmt.Errorf("nnc %d: cells (%d,%d) outside grid", i, n.Cell1, n.Cell2)
		}
		faceCells = append(faceCells, n.Cell1, n.Cell2)
		newTrans = append(newTrans, n.Trans)
	}

	ng, err := New(g.NumCells, faceCells)
	if err != nil {
		return nil, nil, err
	}
	return ng, newTrans, nil
}

func isNormal(x float64) bool {
	return x != 0 && !math.IsNaN(x) && !math.IsInf(x, 0) && math.Abs(x) >= 0x1p-1022
}

// ExportNNCs derives the non-neighbour connection structure of a Cartesian
// grid that carries extra faces (see WithNNCs). Explicit input NNCs between
// cells that are not Cartesian neighbours are kept when their
// transmissibility is not below ExplicitNNCThreshold. Every interior face
// between cells that are not direct neighbours is then exported with its
// transmissibility net of the explicit input values, when that remainder
// exceeds ComputedNNCThreshold.
func ExportNNCs(cg *Cartesian, g *Grid, trans []float64, input []NNC) []NNC {
	sorted := make([]NNC, len(input))
	copy(sorted, input)
	for i := range sorted {
		if sorted[i].Cell2 < sorted[i].Cell1 {
			sorted[i].Cell1, sorted[i].Cell2 = sorted[i].Cell2, sorted[i].Cell1
		}
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Cell1 != sorted[b].Cell1 {
			return sorted[a].Cell1 < sorted[b].Cell1
		}
		return sorted[a].Cell2 < sorted[b].Cell2
	})

	// Grid transmissibility summed per cell pair
	pairTrans := make(map[[2]int]float64)
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 < 0 || c2 < 0 {
			continue
		}
		if c2 < c1 {
			c1, c2 = c2, c1
		}
		pairTrans[[2]int{c1, c2}] += trans[f]
	}

	var out []NNC
	for _, entry := range sorted {
		if cg.IsCartesianNeighbour(entry.Cell1, entry.Cell2) {
			continue
		}
		tt := pairTrans[[2]int{entry.Cell1, entry.Cell2}]
		if isNormal(tt) && !(tt < ExplicitNNCThreshold) {
			out = append(out, NNC{Cell1: entry.Cell1, Cell2: entry.Cell2, Trans: tt})
		}
	}

	// Each connection is handled once, in ascending pair order
	pairs := make([][2]int, 0, len(pairTrans))
	for p := range pairTrans {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})

	for _, p := range pairs {
		if cg.IsCartesianNeighbour(p[0], p[1]) {
			continue
		}
		t := pairTrans[p]
		k := sort.Search(len(sorted), func(i int) bool {
			if sorted[i].Cell1 != p[0] {
				return sorted[i].Cell1 >= p[0]
			}
			return sorted[i].Cell2 >= p[1]
		})
		for ; k < len(sorted) && sorted[k].Cell1 == p[0] && sorted[k].Cell2 == p[1]; k++ {
			t -= sorted[k].Trans
		}
		if isNormal(t) && t > ComputedNNCThreshold {
			out = append(out, NNC{Cell1: p[0], Cell2: p[1], Trans: t})
		}
	}

	return out
}
