package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "pricewatch"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Price alert evaluation worker",
		Version: version,
		Long: `pricewatch is the background worker of the trading platform's price alerts:
it polls active alerts, batches quote lookups per user, evaluates level and
crossing conditions, debounces notifications, and coordinates with sibling
instances through a Redis lock so only one evaluator runs at a time.`,
	}

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the evaluation loop with the health/metrics endpoint",
		RunE:  runWorker,
	}
	bindConfigFlag(workerCmd.Flags())

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Perform exactly one evaluation cycle and exit",
		Long:  "Operational shim for debugging and cron-style deployments; respects the cluster lock like a normal cycle.",
		RunE:  runEvaluate,
	}
	bindConfigFlag(evaluateCmd.Flags())

	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(evaluateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func bindConfigFlag(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to YAML config file (defaults apply when omitted)")
}
