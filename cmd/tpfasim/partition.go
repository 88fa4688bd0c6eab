package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arturcastiel/opm-simulators/casefile"
	"github.com/arturcastiel/opm-simulators/partitions"
)

var (
	partitionSize     int
	partitionStrategy string
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Split a case grid into local domains and check their halos",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := casefile.Load(casePath)
		if err != nil {
			return err
		}
		model, err := c.Build()
		if err != nil {
			return err
		}

		pb := &partitions.PartitionBuilder{
			NumCells:            model.Grid.NumCells,
			TargetPartitionSize: partitionSize,
		}
		switch partitionStrategy {
		case "block":
			pb.Strategy = partitions.BlockPartition
		case "round-robin":
			pb.Strategy = partitions.RoundRobin
		default:
			return fmt.Errorf("unknown partition strategy %q", partitionStrategy)
		}
		layout, err := pb.BuildPartitions()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		domains := make([]*partitions.Domain, layout.NumPartitions)
		for p := range domains {
			if domains[p], err = partitions.LocalDomain(model.Grid, model.Perfs, layout, p); err != nil {
				return err
			}
			d := domains[p]
			fmt.Fprintf(out, "partition %d: %d cells, %d faces, %d wells, %d halo faces\n",
				p, d.Grid.NumCells, d.Grid.NumFaces, len(d.LocalWells), len(d.HaloFaces))
		}
		if err := partitions.VerifyHalo(domains); err != nil {
			return err
		}

		stats := layout.PartitionStatistics()
		fmt.Fprintf(out, "%d partitions, cells min %d max %d avg %.1f, imbalance %.3f\n",
			stats.NumPartitions, stats.MinCells, stats.MaxCells, stats.AvgCells, stats.Imbalance)
		return nil
	},
}

func init() {
	partitionCmd.Flags().StringVar(&casePath, "case", "", "Case file (YAML)")
	partitionCmd.Flags().IntVar(&partitionSize, "size", 1000, "Target cells per partition")
	partitionCmd.Flags().StringVar(&partitionStrategy, "strategy", "block", "block or round-robin")
	partitionCmd.MarkFlagRequired("case")
}
