package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lorawan-sim/internal/config"
	"lorawan-sim/internal/sim"
	"lorawan-sim/internal/tracker"
)

var (
	replayLogFile string
	replayStop    time.Duration
	replayGrace   time.Duration
	replaySpeed   float64
	replayOutput  string
	replayStates  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild a report or state stream from JSONL logs",
	Long: "replay reads the logs written by simulate --log-file. By default it rebuilds the " +
		"packet ledger and prints the report over [0, stop); with --states it plays the " +
		"state rows back to the console or GreptimeDB.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayLogFile == "" {
			return fmt.Errorf("log file prefix required")
		}
		if replayStates {
			cfg := config.Defaults()
			ws, err := newWriters(cmd.Context(), &cfg, writerOptions{Output: replayOutput})
			if err != nil {
				return err
			}
			defer ws.cleanup()
			return sim.ReplayLogFile(replayLogFile+".state", ws, replaySpeed)
		}

		tr := tracker.New(replayGrace)
		receptions := replayLogFile + ".receptions"
		if _, err := os.Stat(receptions); err != nil {
			receptions = ""
		}
		if err := sim.ReplayLedgerFiles(replayLogFile+".packets", receptions, tr); err != nil {
			return err
		}
		tr.Freeze()
		stop := replayStop
		if stop <= 0 {
			stop = latestSend(tr) + time.Nanosecond
		}
		rep := sim.NewReport(tr, 0, stop)
		return sim.PrintReport(os.Stdout, rep)
	},
}

// latestSend returns the send time of the last packet in tr.
func latestSend(tr *tracker.Tracker) time.Duration {
	var last time.Duration
	for _, p := range tr.Packets() {
		if p.SentAt > last {
			last = p.SentAt
		}
	}
	return last
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayLogFile, "log-file", "", "Prefix the logs were written with")
	f.DurationVar(&replayStop, "stop", 0, "End of the report window (default just after the last send)")
	f.DurationVar(&replayGrace, "grace", tracker.DefaultGracePeriod, "Grace period before an unacknowledged packet counts as failed")
	f.Float64Var(&replaySpeed, "speed", 0, "State playback speed multiplier (0 for no delay)")
	f.StringVar(&replayOutput, "output", outputAuto, "Console output for --states: auto, plain, color, json or none")
	f.BoolVar(&replayStates, "states", false, "Play back state rows instead of printing a report")
	replayCmd.MarkFlagRequired("log-file")
}
