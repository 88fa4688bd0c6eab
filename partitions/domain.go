package partitions

import (
	"fmt"

	"github.com/arturcastiel/opm-simulators/grid"
)

// HaloFace is a local face whose second cell lives in another partition.
// Locally the face is exterior; the remote cell is recorded for the
// external halo-exchange collaborator.
type HaloFace struct {
	LocalFace       int // Face index in the local grid
	GlobalFace      int // Face index in the global grid
	LocalCell       int // Local index of the owned cell
	RemotePartition int
	RemoteCell      int // Global index of the foreign cell
}

// Domain is the local view of one partition: cells renumbered 0..NumCells-1,
// faces restricted to those touching an owned cell, and wells whose
// perforations are all owned appended after the local cells
type Domain struct {
	PartitionID int
	Grid        *grid.Grid
	Perfs       *grid.Perforations

	// Index maps
	LocalToGlobalCell []int
	GlobalToLocalCell map[int]int
	LocalToGlobalFace []int
	LocalWells        []int // Global well index of each local well

	HaloFaces []HaloFace

	// Unknown index of the first local well, equal to the local cell count
	WellOffset int
}

// LocalDomain extracts the partition p of layout from the global grid and
// perforations. Wells perforating foreign cells are not local to p and are
// reported as an error when they straddle partitions.
func LocalDomain(g *grid.Grid, perfs *grid.Perforations, layout *PartitionLayout, p int) (*Domain, error) {
	if p < 0 || p >= layout.NumPartitions {
		return nil, fmt.Errorf("partition %d outside [0,%d)", p, layout.NumPartitions)
	}
	if layout.TotalCells != g.NumCells {
		return nil, fmt.Errorf("layout covers %d cells, grid has %d", layout.TotalCells, g.NumCells)
	}

	part := layout.Partitions[p]
	d := &Domain{
		PartitionID:       p,
		LocalToGlobalCell: make([]int, 0, part.NumCells),
		GlobalToLocalCell: make(map[int]int, part.NumCells),
	}

	// Build cell mappings
	for _, c := range part.Cells {
		d.GlobalToLocalCell[c] = len(d.LocalToGlobalCell)
		d.LocalToGlobalCell = append(d.LocalToGlobalCell, c)
	}

	// Keep faces touching at least one owned cell
	var faceCells []int
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		l1, own1 := d.localCell(layout, c1, p)
		l2, own2 := d.localCell(layout, c2, p)
		if !own1 && !own2 {
			continue
		}

		localFace := len(d.LocalToGlobalFace)
		switch {
		case own1 && !own2 && c2 >= 0:
			d.HaloFaces = append(d.HaloFaces, HaloFace{
				LocalFace: localFace, GlobalFace: f, LocalCell: l1,
				RemotePartition: layout.GetPartition(c2), RemoteCell: c2,
			})
		case own2 && !own1 && c1 >= 0:
			d.HaloFaces = append(d.HaloFaces, HaloFace{
				LocalFace: localFace, GlobalFace: f, LocalCell: l2,
				RemotePartition: layout.GetPartition(c1), RemoteCell: c1,
			})
		}
		faceCells = append(faceCells, l1, l2)
		d.LocalToGlobalFace = append(d.LocalToGlobalFace, f)
	}

	lg, err := grid.New(part.NumCells, faceCells)
	if err != nil {
		return nil, fmt.Errorf("partition %d: %w", p, err)
	}
	d.Grid = lg
	d.WellOffset = lg.NumCells

	// Wells entirely inside this partition, perforations renumbered
	var wellCells [][]int
	for w := 0; w < perfs.NumWells(); w++ {
		cells := perfs.WellCells(w)
		owned := 0
		for _, c := range cells {
			if layout.GetPartition(c) == p {
				owned++
			}
		}
		if owned == 0 {
			continue
		}
		if owned != len(cells) {
			return nil, fmt.Errorf("well %d perforates cells in more than one partition", w)
		}
		local := make([]int, len(cells))
		for i, c := range cells {
			local[i] = d.GlobalToLocalCell[c]
		}
		wellCells = append(wellCells, local)
		d.LocalWells = append(d.LocalWells, w)
	}
	if len(wellCells) > 0 {
		d.Perfs, err = grid.NewPerforations(wellCells, lg.NumCells)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", p, err)
		}
	}

	return d, nil
}

// localCell maps a global cell to its local index, -1 when exterior or foreign
func (d *Domain) localCell(layout *PartitionLayout, c, p int) (int, bool) {
	if c < 0 || layout.GetPartition(c) != p {
		return -1, false
	}
	return d.GlobalToLocalCell[c], true
}

// Verify checks that the local and global cell maps are inverse
func (d *Domain) Verify() error {
	for l, gc := range d.LocalToGlobalCell {
		if back, ok := d.GlobalToLocalCell[gc]; !ok || back != l {
			return fmt.Errorf("partition %d: local cell %d maps to %d which maps back to %d", d.PartitionID, l, gc, back)
		}
	}
	if len(d.GlobalToLocalCell) != len(d.LocalToGlobalCell) {
		return fmt.Errorf("partition %d: map sizes differ (%d vs %d)", d.PartitionID,
			len(d.GlobalToLocalCell), len(d.LocalToGlobalCell))
	}
	for _, h := range d.HaloFaces {
		c1, c2 := d.Grid.Neighbours(h.LocalFace)
		if (c1 < 0) == (c2 < 0) {
			return fmt.Errorf("partition %d: halo face %d is not exterior locally", d.PartitionID, h.LocalFace)
		}
	}
	return nil
}

// VerifyHalo checks communication symmetry: if partition A sees a halo face
// towards B, partition B must see the same global face towards A
func VerifyHalo(domains []*Domain) error {
	type key struct{ from, to, face int }
	seen := make(map[key]bool)
	for _, d := range domains {
		for _, h := range d.HaloFaces {
			seen[key{d.PartitionID, h.RemotePartition, h.GlobalFace}] = true
		}
	}
	for k := range seen {
		if !seen[key{k.to, k.from, k.face}] {
			return fmt.Errorf("partition %d shares face %d with %d, but %d doesn't share it back",
				k.from, k.face, k.to, k.to)
		}
	}
	return nil
}
