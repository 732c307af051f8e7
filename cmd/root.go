package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/defense-gen/defense-gen/machine"
	"github.com/defense-gen/defense-gen/machine/wire"
)

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "defense-gen",
	Short: "Generate probabilistic state machines approximating website-fingerprinting defenses",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent CLI flags
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// parseFloatArg parses a positional numeric argument, aborting the
// process on unparsable input.
func parseFloatArg(raw, name string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logrus.Fatalf("Invalid %s: %q", name, raw)
	}
	return v
}

func parseUintArg(raw, name string) uint32 {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		logrus.Fatalf("Invalid %s: %q", name, raw)
	}
	return uint32(v)
}

func parseIntArg(raw, name string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Fatalf("Invalid %s: %q", name, raw)
	}
	return v
}

// printMachine serializes m with the default wire codec and prints the
// artifact in the "label: <serialized> (<byte length>)" form.
func printMachine(label string, m *machine.Machine) {
	serialized, err := wire.V1{}.Serialize(m)
	if err != nil {
		logrus.Fatalf("Serializing %s machine: %v", label, err)
	}
	fmt.Printf("%s: %s (%d)\n\n", label, serialized, len(serialized))
}
