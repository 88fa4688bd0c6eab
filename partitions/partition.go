package partitions

import (
	"fmt"
	"math"
)

// Partition is a set of reservoir cells assembled together as one local
// linear system. Cell indices passed to the assembler for this partition
// are always local, wells come after all local cells.
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Cell membership, ascending global cell indices
	Cells    []int
	NumCells int
}

// PartitionLayout manages the complete decomposition of the grid cells
type PartitionLayout struct {
	// All partitions in the grid
	Partitions []Partition

	// Global sizing information
	MaxCells      int // max(NumCells) across all partitions
	TotalCells    int // Sum of all cells across partitions
	NumPartitions int

	// Cell to partition mapping
	CToP []int // Length TotalCells: cell c belongs to partition CToP[c]
}

// GetPartition returns the partition containing cell c
func (pl *PartitionLayout) GetPartition(cell int) int {
	if cell < 0 || cell >= len(pl.CToP) {
		return -1
	}
	return pl.CToP[cell]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.CToP) != pl.TotalCells {
		return fmt.Errorf("cell map length %d != TotalCells %d", len(pl.CToP), pl.TotalCells)
	}
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("have %d partitions, NumPartitions is %d", len(pl.Partitions), pl.NumPartitions)
	}

	// Verify MaxCells and membership
	actualMax, total := 0, 0
	for _, p := range pl.Partitions {
		if p.NumCells != len(p.Cells) {
			return fmt.Errorf("partition %d: NumCells %d != len(Cells) %d", p.ID, p.NumCells, len(p.Cells))
		}
		if p.NumCells > actualMax {
			actualMax = p.NumCells
		}
		total += p.NumCells
		for _, c := range p.Cells {
			if pl.GetPartition(c) != p.ID {
				return fmt.Errorf("partition %d lists cell %d owned by partition %d", p.ID, c, pl.GetPartition(c))
			}
		}
	}
	if actualMax != pl.MaxCells {
		return fmt.Errorf("computed MaxCells %d != stored MaxCells %d", actualMax, pl.MaxCells)
	}
	if total != pl.TotalCells {
		return fmt.Errorf("partitions hold %d cells, TotalCells is %d", total, pl.TotalCells)
	}
	return nil
}

// PartitionStats summarises load balance
type PartitionStats struct {
	NumPartitions int
	MinCells      int
	MaxCells      int
	AvgCells      float64
	Imbalance     float64 // MaxCells / AvgCells
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinCells:      math.MaxInt32,
		AvgCells:      float64(pl.TotalCells) / float64(pl.NumPartitions),
	}

	for _, p := range pl.Partitions {
		if p.NumCells < stats.MinCells {
			stats.MinCells = p.NumCells
		}
		if p.NumCells > stats.MaxCells {
			stats.MaxCells = p.NumCells
		}
	}

	stats.Imbalance = float64(stats.MaxCells) / stats.AvgCells

	return stats
}
