package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/defense-gen/defense-gen/defense"
)

// frontCmd generates a FRONT machine from positional parameters.
var frontCmd = &cobra.Command{
	Use:   "front <padding_window_seconds> <padding_budget_cells> <num_padding_states>",
	Short: "Generate a FRONT padding machine",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		window := parseFloatArg(args[0], "padding window") // FRONT param W_max (sec)
		budget := parseUintArg(args[1], "padding budget")  // FRONT param N (cells)
		numStates := parseIntArg(args[2], "num states")    // number of PADDING states

		// The Rayleigh scale is in microseconds.
		m, err := defense.GenerateFRONT(defense.FRONTConfig{
			Window:    window * 1e6,
			Budget:    budget,
			NumStates: numStates,
		}, defense.DefaultParams())
		if err != nil {
			logrus.Fatalf("front: %v", err)
		}

		logrus.Debugf("front: %d states", m.Len())
		printMachine("Machine", m)
	},
}

// frontPipelinedCmd generates a FRONT machine whose START state fans
// out across parallel padding pipelines.
var frontPipelinedCmd = &cobra.Command{
	Use:   "front-pipelined <padding_window_seconds> <padding_budget_cells> <num_pipelines> <num_padding_states>",
	Short: "Generate a pipelined FRONT padding machine",
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		window := parseFloatArg(args[0], "padding window")
		budget := parseUintArg(args[1], "padding budget")
		pipelines := parseIntArg(args[2], "num pipelines")
		numStates := parseIntArg(args[3], "num states")

		m, err := defense.GeneratePipelinedFRONT(defense.FRONTConfig{
			Window:    window * 1e6,
			Budget:    budget,
			NumStates: numStates,
			Pipelines: pipelines,
		}, defense.DefaultParams())
		if err != nil {
			logrus.Fatalf("front-pipelined: %v", err)
		}

		logrus.Debugf("front-pipelined: %d states", m.Len())
		printMachine("Machine", m)
	},
}

func init() {
	rootCmd.AddCommand(frontCmd)
	rootCmd.AddCommand(frontPipelinedCmd)
}
