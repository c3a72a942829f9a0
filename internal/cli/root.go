// Package cli implements the wrrsched command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"wrrsched/internal/logging"
	"wrrsched/internal/sched"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the wrrsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wrrsched",
		Short: "Weighted round-robin scheduling class simulator",
		Long:  "wrrsched runs workloads through a host scheduler core with a SCHED_WRR class chained to a fair class.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yml", "Scheduler config file (defaults when missing)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newIntervalCmd(),
	)

	return root
}

func loadConfig() (sched.Config, error) {
	cfg, err := sched.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	logger.Debug("config loaded", "path", flagConfig, "tick_ms", cfg.TickMS, "cpus", cfg.CPUs, "wrr_timeslice", cfg.WRR.Timeslice)
	return cfg, nil
}
