package partitions

import (
	"fmt"
	"math"
)

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically
)

// PartitionBuilder constructs partitions of the grid cells
type PartitionBuilder struct {
	NumCells int

	// Partitioning parameters
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy
}

// BuildPartitions creates a partition layout
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumCells <= 0 {
		return nil, fmt.Errorf("cannot partition %d cells", pb.NumCells)
	}
	if pb.TargetPartitionSize <= 0 {
		return nil, fmt.Errorf("invalid target partition size %d", pb.TargetPartitionSize)
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the cells
	cToP, err := pb.partitionCells(numPartitions)
	if err != nil {
		return nil, err
	}

	partitions := createPartitions(cToP, numPartitions)

	maxCells := 0
	for _, p := range partitions {
		if p.NumCells > maxCells {
			maxCells = p.NumCells
		}
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		MaxCells:      maxCells,
		TotalCells:    pb.NumCells,
		NumPartitions: numPartitions,
		CToP:          cToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions determines the partition count from the target size
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.NumCells) / float64(pb.TargetPartitionSize)))
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

// partitionCells assigns cells to partitions
func (pb *PartitionBuilder) partitionCells(numPartitions int) ([]int, error) {
	cToP := make([]int, pb.NumCells)

	switch pb.Strategy {
	case BlockPartition:
		cellsPerPartition := int(math.Ceil(float64(pb.NumCells) / float64(numPartitions)))
		for c := 0; c < pb.NumCells; c++ {
			cToP[c] = c / cellsPerPartition
			if cToP[c] >= numPartitions {
				cToP[c] = numPartitions - 1
			}
		}

	case RoundRobin:
		for c := 0; c < pb.NumCells; c++ {
			cToP[c] = c % numPartitions
		}

	default:
		return nil, fmt.Errorf("unknown partition strategy %d", pb.Strategy)
	}

	return cToP, nil
}

// createPartitions builds partition structures from cell assignments
func createPartitions(cToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i}
	}

	for c, part := range cToP {
		partitions[part].Cells = append(partitions[part].Cells, c)
		partitions[part].NumCells++
	}

	return partitions
}
