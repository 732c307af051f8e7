package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/defense-gen/defense-gen/defense"
)

// regulatorCmd generates the RegulaTor relay and client machines.
var regulatorCmd = &cobra.Command{
	Use:   "regulator <initial_rate> <decay_rate> <threshold> <upload_ratio> <packets_per_state>",
	Short: "Generate RegulaTor relay and client machines",
	Args:  cobra.ExactArgs(5),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := defense.RegulaTorConfig{
			InitialRate:     parseFloatArg(args[0], "initial rate"),      // RegulaTor param R (packets/sec)
			Decay:           parseFloatArg(args[1], "decay rate"),        // RegulaTor param D
			Threshold:       parseFloatArg(args[2], "threshold"),         // RegulaTor param T
			UploadRatio:     parseFloatArg(args[3], "upload ratio"),      // RegulaTor param U
			PacketsPerState: parseFloatArg(args[4], "packets per state"), // approximation granularity
		}
		params := defense.DefaultParams()

		relay, err := defense.GenerateRegulaTorRelay(cfg, params)
		if err != nil {
			logrus.Fatalf("regulator: %v", err)
		}
		client, err := defense.GenerateRegulaTorClient(cfg, params)
		if err != nil {
			logrus.Fatalf("regulator: %v", err)
		}

		logrus.Debugf("regulator: relay %d states, client %d states", relay.Len(), client.Len())
		printMachine("Relay machine", relay)
		printMachine("Client machine", client)
	},
}

func init() {
	rootCmd.AddCommand(regulatorCmd)
}
