package experiments

import (
	"hplanning/domains/redundant"
	"hplanning/domains/rooms"
	"hplanning/experiments/metrics"
	"hplanning/pomdp"
	"hplanning/searcher"

	"github.com/spf13/cobra"
)

var (
	expParams    Params
	searchParams searcher.Params
	outputDir    string
	sweep        bool
)

// GetRootCommand wires the shared search and experiment flags plus one
// subcommand per domain.
func GetRootCommand() *cobra.Command {
	expParams = DefaultParams()
	searchParams = searcher.DefaultParams()

	rootCommand := &cobra.Command{
		Use:   "hplanning",
		Short: "Online POMDP planning with flat and hierarchical MCTS",
	}

	flags := rootCommand.PersistentFlags()
	flags.IntVar(&searchParams.Verbose, "verbose", 0, "Verbosity level")
	flags.IntVar(&searchParams.MaxDepth, "depth", 100, "Search horizon cap")
	flags.IntVarP(&searchParams.NumSimulations, "simulations", "n", 1000, "Simulations per action")
	flags.IntVar(&searchParams.NumStartStates, "start-states", 1000, "Initial particle count")
	flags.BoolVar(&searchParams.UseTransforms, "transforms", true, "Replenish beliefs with local transforms")
	flags.BoolVar(&searchParams.UseParticleFilter, "particle-filter", false, "Replenish beliefs by rejection sampling")
	flags.Float64VarP(&searchParams.ExplorationConstant, "exploration", "c", 1.0, "UCB1 exploration constant")
	flags.BoolVar(&searchParams.ReuseTree, "reuse-tree", false, "Re-root instead of rebuilding the flat tree")
	flags.BoolVar(&searchParams.ThompsonSampling, "thompson", false, "Thompson-sampling action selection")
	flags.Float64Var(&searchParams.TimeOutPerAction, "timeout-per-action", -1, "Seconds per action, -1 disables")
	flags.IntVar(&searchParams.MemorySize, "memory-size", -1, "History suffix bound, -1 unbounded")
	flags.IntVar(&searchParams.Converged, "converged", 0, "Convergence exponent, 0 disables caching")
	flags.Float64Var(&searchParams.CacheRate, "cache-rate", 0.5, "Cache substitution probability")
	flags.IntVar(&searchParams.RootGoal, "root-goal", 0, "Abstract observation treated as the root goal")
	flags.BoolVar(&searchParams.Hplanning, "hplanning", true, "Use the hierarchical planner")
	flags.BoolVar(&searchParams.ActionAbstraction, "action-abstraction", true, "Enable macro-actions")
	flags.Uint64Var(&searchParams.Seed, "seed", 1, "RNG seed")
	flags.IntVarP(&expParams.NumRuns, "runs", "r", 100, "Runs per configuration")
	flags.IntVar(&expParams.NumSteps, "steps", 100000, "Step cap per run")
	flags.Float64Var(&expParams.TimeOut, "timeout", 3600, "Experiment timeout in seconds")
	flags.IntVar(&expParams.MinDoubles, "min-doubles", 0, "Smallest power-of-two budget in the sweep")
	flags.IntVar(&expParams.MaxDoubles, "max-doubles", 12, "Largest power-of-two budget in the sweep")
	flags.StringVarP(&outputDir, "output", "o", "results", "Output directory")
	flags.BoolVar(&sweep, "sweep", false, "Sweep doubling simulation budgets")

	rootCommand.AddCommand(roomsCommand())
	rootCommand.AddCommand(redundantCommand())
	return rootCommand
}

func roomsCommand() *cobra.Command {
	roomsX, roomsY, roomSize := 2, 2, 5
	slip := 0.0

	command := &cobra.Command{
		Use:   "rooms",
		Short: "Rooms gridworld",
		RunE: func(cmd *cobra.Command, args []string) error {
			build := func(seed uint64) pomdp.Simulator {
				cfg := rooms.DefaultConfig()
				cfg.RoomsX = roomsX
				cfg.RoomsY = roomsY
				cfg.RoomSize = roomSize
				cfg.SlipProb = slip
				cfg.ActionAbstraction = searchParams.ActionAbstraction
				cfg.Seed = seed
				return rooms.New(cfg)
			}
			return runExperiment("rooms", build)
		},
	}
	command.Flags().IntVar(&roomsX, "rooms-x", 2, "Rooms along x")
	command.Flags().IntVar(&roomsY, "rooms-y", 2, "Rooms along y")
	command.Flags().IntVar(&roomSize, "room-size", 5, "Cells per room side")
	command.Flags().Float64Var(&slip, "slip", 0, "Probability of a random move")
	return command
}

func redundantCommand() *cobra.Command {
	size := 8
	stateAbstraction := true

	command := &cobra.Command{
		Use:   "redundant",
		Short: "Redundant-object world",
		RunE: func(cmd *cobra.Command, args []string) error {
			build := func(seed uint64) pomdp.Simulator {
				cfg := redundant.DefaultConfig()
				cfg.Size = size
				cfg.StateAbstraction = stateAbstraction
				cfg.ActionAbstraction = searchParams.ActionAbstraction
				cfg.Seed = seed
				return redundant.New(cfg)
			}
			return runExperiment("redundant", build)
		},
	}
	command.Flags().IntVar(&size, "size", 8, "Grid side length")
	command.Flags().BoolVar(&stateAbstraction, "state-abstraction", true, "Drop the object from state fingerprints")
	return command
}

func runExperiment(name string, build func(seed uint64) pomdp.Simulator) error {
	writer, err := metrics.NewWriter(outputDir)
	if err != nil {
		return err
	}

	// Distinct instances for the real world and the planner's model.
	real := build(searchParams.Seed)
	sim := build(searchParams.Seed + 1)

	e := New(real, sim, expParams, searchParams)
	if sweep {
		_, err = e.DiscountedReturn(name, writer)
		return err
	}

	e.MultiRun()
	rows := []metrics.Row{e.Results.Summarize(searchParams.NumSimulations)}
	return writer.WriteRows(name, rows)
}
