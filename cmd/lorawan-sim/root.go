package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lorawan-sim/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lorawan-sim",
	Short: "LoRaWAN scenario simulation toolkit",
	Long:  "lorawan-sim composes LoRaWAN scenarios, runs them in simulated time and reports packet delivery.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logging.NewContext(cmd.Context(), newLogger(logging.Config{})))
	},
	SilenceUsage: true,
}

// newLogger builds the process logger. Flags override the config file.
func newLogger(cfg logging.Config) *slog.Logger {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	return logging.NewWithConfig(os.Stderr, cfg)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}
