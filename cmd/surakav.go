package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/defense-gen/defense-gen/defense"
)

// surakavCmd generates the Surakav machine pair from a reference trace.
var surakavCmd = &cobra.Command{
	Use:   "surakav <reference_trace_path>",
	Short: "Generate Surakav client and relay machines from a burst trace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, relay, err := defense.GenerateSurakav(args[0], defense.DefaultParams())
		if err != nil {
			logrus.Fatalf("surakav: %v", err)
		}

		logrus.Debugf("surakav: client %d states, relay %d states", client.Len(), relay.Len())
		printMachine("Client machine", client)
		printMachine("Relay machine", relay)
	},
}

func init() {
	rootCmd.AddCommand(surakavCmd)
}
