package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arturcastiel/opm-simulators/casefile"
	"github.com/arturcastiel/opm-simulators/output"
	"github.com/arturcastiel/opm-simulators/simulator"
	"github.com/arturcastiel/opm-simulators/solver"
)

var (
	casePath  string
	steps     int
	outputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a case",
	Long: `Simulate the report steps of a case. Each step iterates pressure solves and
well control updates until no well switches mode, then writes a step report
to the output directory.`,
	Example: `  tpfasim run --case line.yaml --steps 10
  tpfasim run -c run.yaml --case line.yaml -v`,
	RunE: runCase,
}

func init() {
	runCmd.Flags().StringVar(&casePath, "case", "", "Case file (YAML)")
	runCmd.Flags().IntVar(&steps, "steps", 1, "Number of report steps")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides the configuration)")
	runCmd.MarkFlagRequired("case")
}

func runCase(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := casefile.Load(casePath)
	if err != nil {
		return err
	}
	model, err := c.Build()
	if err != nil {
		return err
	}

	lin, err := solver.New(cfg.Solver.Kind, cfg.Solver.Tolerance, cfg.Solver.MaxIterations)
	if err != nil {
		return err
	}
	dir := cfg.Output.Dir
	if outputDir != "" {
		dir = outputDir
	}
	writer, err := output.NewWriter(dir, cfg.Output.Async, logger)
	if err != nil {
		return err
	}

	sim, err := simulator.New(model, simulator.Options{
		Solver:               lin,
		Gravity:              cfg.Gravity,
		MaxNonlinear:         cfg.Iterations.MaxNonlinear,
		MaxSwitchesPerWell:   cfg.Iterations.MaxSwitchesPerWell,
		MaxFailedCellsLogged: cfg.Diagnostics.MaxFailedCellsLogged,
		Writer:               writer,
		WriteNNC:             cfg.Output.WriteNNC,
		Logger:               logger,
	})
	if err != nil {
		return err
	}

	logger.Info("Starting run",
		zap.String("case", casePath),
		zap.Int("steps", steps),
		zap.Int("cells", model.Grid.NumCells),
		zap.Int("wells", len(model.Wells)),
		zap.String("run_id", writer.RunID().String()))
	if err := sim.Run(ctx, steps); err != nil {
		// Pending writes must finish before the process exits
		_ = writer.Close()
		return err
	}
	logger.Info("Run finished", zap.String("output", writer.Dir()))
	return nil
}
