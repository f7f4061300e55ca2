package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Environment variables that supply defaults for unset flags. They may also
// come from a .env file in the working directory.
const (
	envLogLevel = "QNETSIM_LOG_LEVEL"
	envSeed     = "QNETSIM_SEED"
)

var (
	logLevel     string // Log verbosity level
	seed         int64  // Seed for every random stream in the world
	topologyPath string // Topology file (JSON or YAML)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnetsim",
	Short: "Discrete-event simulator for hybrid classical/quantum networks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is not an error.
		_ = godotenv.Load()

		level := logLevel
		if !cmd.Flags().Changed("log") {
			if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
				level = v
			}
		}
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", level)
		}
		logrus.SetLevel(parsed)
		return nil
	},
}

// resolveSeed picks the seed by precedence: explicit --seed flag, then
// QNETSIM_SEED, then fallback (usually the scenario's seed).
func resolveSeed(cmd *cobra.Command, fallback int64) (int64, error) {
	if cmd.Flags().Changed("seed") {
		return seed, nil
	}
	if v, ok := os.LookupEnv(envSeed); ok && v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envSeed, err)
		}
		return s, nil
	}
	return fallback, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(sendCmd)
}
